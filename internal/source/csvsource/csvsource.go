// Package csvsource reads records from delimited text with a header row.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"

	"stockroom/internal/repository"
	"stockroom/internal/source/origin"
	"stockroom/internal/source/record"
)

// Decoder turns one header-addressed row into the intermediate row shape R.
type Decoder[R any] func(record.Fields) (R, error)

// Source reads an origin as CSV, decodes each data row into R and converts it
// to T. Rows with the wrong number of fields or that fail to decode are skipped.
// A quote inside an unquoted field is kept as an ordinary character.
type Source[R, T any] struct {
	origin  origin.Opener
	decode  Decoder[R]
	convert func(R) T
	comma   rune
	onSkip  repository.SkipFunc
}

type Option func(*settings)

type settings struct {
	comma  rune
	onSkip repository.SkipFunc
}

// WithComma sets the field delimiter. Defaults to ','; zero keeps the default.
func WithComma(r rune) Option {
	return func(s *settings) {
		if r != 0 {
			s.comma = r
		}
	}
}

// WithSkipFunc reports rows the source drops.
func WithSkipFunc(fn repository.SkipFunc) Option {
	return func(s *settings) {
		s.onSkip = fn
	}
}

// New returns a CSV source. convert must be total: every decoded row maps to a record.
func New[R, T any](o origin.Opener, decode Decoder[R], convert func(R) T, opts ...Option) Source[R, T] {
	cfg := settings{comma: ','}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Source[R, T]{
		origin:  o,
		decode:  decode,
		convert: convert,
		comma:   cfg.comma,
		onSkip:  cfg.onSkip,
	}
}

// Records opens the origin and reads its header. The sequence closes the origin.
func (s Source[R, T]) Records(ctx context.Context) (iter.Seq[T], error) {
	rc, err := s.origin.Open(ctx)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(rc)
	reader.Comma = s.comma
	reader.LazyQuotes = true
	header, err := reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		switch {
		case errors.Is(err, io.EOF):
			header = nil
		case errors.As(err, &parseErr):
			s.skip(record.Malformed(s.where(parseErr.Line), err))
			header = nil
		default:
			_ = rc.Close()
			return nil, record.Interrupted(s.origin.String(), fmt.Errorf("read header: %w", err))
		}
	}

	return func(yield func(T) bool) {
		defer func() { _ = rc.Close() }()
		if header == nil {
			return
		}
		for {
			values, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					s.skip(record.Malformed(s.where(parseErr.Line), err))
					continue
				}
				s.skip(record.Interrupted(s.origin.String(), err))
				return
			}
			line, _ := reader.FieldPos(0)
			row, err := s.decode(record.FromColumns(header, values))
			if err != nil {
				s.skip(record.Malformed(s.where(line), err))
				continue
			}
			if !yield(s.convert(row)) {
				return
			}
		}
	}, nil
}

func (s Source[R, T]) where(line int) string {
	return fmt.Sprintf("%s line %d", s.origin, line)
}

func (s Source[R, T]) skip(err error) {
	if s.onSkip != nil {
		s.onSkip(err)
	}
}
