package repository

import (
	"context"
	"iter"

	"stockroom/pkg/model"
)

// Source produces records from an external origin such as a CSV file, a
// database query or a message topic.
//
// Records opens the origin. It fails only when the origin cannot be opened;
// units that cannot be converted to records are skipped. The sequence releases
// the origin once it is exhausted or the consumer stops early, so it must be
// ranged over. Calling Records again reads the origin again.
type Source[T any] interface {
	Records(ctx context.Context) (iter.Seq[T], error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context) (iter.Seq[T], error)

func (f SourceFunc[T]) Records(ctx context.Context) (iter.Seq[T], error) {
	return f(ctx)
}

// SkipFunc receives the reason a source dropped a unit of input. Sources call
// it for malformed units and for read failures that end the sequence early.
type SkipFunc func(err error)

// Fold loads src into a fresh repository.
func Fold[K comparable, T any, PT model.Model[K, T]](ctx context.Context, src Source[T]) (*Repository[K, T, PT], error) {
	return FoldWithCapacity[K, T, PT](ctx, src, 0)
}

// FoldWithCapacity loads src into a fresh repository sized for n records.
func FoldWithCapacity[K comparable, T any, PT model.Model[K, T]](ctx context.Context, src Source[T], n int) (*Repository[K, T, PT], error) {
	repo := WithCapacity[K, T, PT](n)
	if err := repo.Load(ctx, src); err != nil {
		return nil, err
	}
	return repo, nil
}

// Slice is a Source over records already in memory. It never fails.
type Slice[T any] []T

func (s Slice[T]) Records(context.Context) (iter.Seq[T], error) {
	return func(yield func(T) bool) {
		for _, record := range s {
			if !yield(record) {
				return
			}
		}
	}, nil
}
