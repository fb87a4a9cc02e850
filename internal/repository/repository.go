// Package repository holds records keyed by identity in memory, merging
// records that share an identity, and folds bulk sources into it.
//
// A Repository is not safe for concurrent use. Callers either hold it
// exclusively or share it read-only; the inventory service enforces this with a
// RWMutex.
package repository

import (
	"context"
	"iter"
	"maps"

	"stockroom/pkg/model"
)

// Repository owns every stored record. Reads hand out copies; only GetMut
// exposes the stored record itself.
type Repository[K comparable, T any, PT model.Model[K, T]] struct {
	storage map[K]PT
}

// New returns an empty repository.
func New[K comparable, T any, PT model.Model[K, T]]() *Repository[K, T, PT] {
	return WithCapacity[K, T, PT](0)
}

// WithCapacity returns an empty repository sized for n records.
func WithCapacity[K comparable, T any, PT model.Model[K, T]](n int) *Repository[K, T, PT] {
	return &Repository[K, T, PT]{storage: make(map[K]PT, n)}
}

// Get returns a copy of the record stored under id.
func (r *Repository[K, T, PT]) Get(id K) (T, bool) {
	if stored, ok := r.storage[id]; ok {
		return *stored, true
	}
	var zero T
	return zero, false
}

// GetMut returns the stored record so the caller can change it in place.
// The record's identity must not be changed.
func (r *Repository[K, T, PT]) GetMut(id K) (PT, bool) {
	stored, ok := r.storage[id]
	return stored, ok
}

// TextSearch normalizes term once and returns every record matching it.
// The result is never nil and carries no meaningful order.
func (r *Repository[K, T, PT]) TextSearch(term string) []T {
	var zero T
	normalized := PT(&zero).NormalizeSearchTerm(term)

	matches := make([]T, 0)
	for _, stored := range r.storage {
		if stored.MatchesTextSearch(normalized) {
			matches = append(matches, *stored)
		}
	}
	return matches
}

// Items yields every stored record in unspecified order. The repository must
// not be mutated while the sequence is being ranged over.
func (r *Repository[K, T, PT]) Items() iter.Seq[T] {
	return func(yield func(T) bool) {
		for stored := range maps.Values(r.storage) {
			if !yield(*stored) {
				return
			}
		}
	}
}

// Len reports the number of distinct identities held.
func (r *Repository[K, T, PT]) Len() int {
	return len(r.storage)
}

// Add inserts record, or merges it into the record already stored under the
// same identity. The stored identity never changes.
func (r *Repository[K, T, PT]) Add(record T) {
	incoming := PT(&record)
	id := incoming.ID()
	if existing, ok := r.storage[id]; ok {
		existing.MergeWith(record)
		return
	}
	r.storage[id] = incoming
}

// Load adds every record src produces, in emission order. Only a failure to
// open the origin is returned; the source skips records it cannot convert.
func (r *Repository[K, T, PT]) Load(ctx context.Context, src Source[T]) error {
	records, err := src.Records(ctx)
	if err != nil {
		return err
	}
	for record := range records {
		r.Add(record)
	}
	return nil
}
