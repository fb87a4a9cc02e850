// Package model defines what a record type must provide to live in a
// repository: an identity, a text-search predicate, a merge policy for
// duplicate identities and a search-term normalizer.
//
// Record types implement the contract on their pointer type. The optional
// behaviors have zero-size defaults that can be embedded:
//
//	type Tag struct {
//		model.Unsearchable
//		model.KeepExisting[Tag]
//		model.VerbatimTerms
//		Name string
//	}
//
//	func (t *Tag) ID() string { return t.Name }
//
// Declaring the method on the record overrides the embedded default.
package model

import (
	"sync"

	"golang.org/x/text/cases"
)

// Model is the constraint satisfied by *T when T can be stored under a key of type K.
//
// NormalizeSearchTerm is called on the zero value of T once per search, so it
// must not depend on record fields.
type Model[K comparable, T any] interface {
	*T
	ID() K
	MatchesTextSearch(term string) bool
	MergeWith(other T)
	NormalizeSearchTerm(term string) string
}

// Unsearchable never matches a text search.
type Unsearchable struct{}

func (Unsearchable) MatchesTextSearch(string) bool { return false }

// KeepExisting ignores the incoming record when an identity is added twice.
type KeepExisting[T any] struct{}

func (KeepExisting[T]) MergeWith(T) {}

// VerbatimTerms leaves search terms untouched.
type VerbatimTerms struct{}

func (VerbatimTerms) NormalizeSearchTerm(term string) string { return term }

// folders holds casers for reuse. A Caser keeps state between calls and must
// not be shared by concurrent searches.
var folders = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

// FoldCase applies Unicode case folding so "WIDGET", "Widget" and "widget"
// compare equal. It is safe for concurrent use.
func FoldCase(s string) string {
	c := folders.Get().(*cases.Caser)
	defer folders.Put(c)
	return c.String(s)
}
