// Package yamlsource reads records from a YAML sequence of mappings.
package yamlsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"gopkg.in/yaml.v3"

	"stockroom/internal/repository"
	"stockroom/internal/source/origin"
	"stockroom/internal/source/record"
)

// Source decodes each element of a YAML sequence into R independently, so one
// bad element does not spoil its neighbours. R is decoded with yaml struct tags
// and checked with record.Validate.
type Source[R, T any] struct {
	origin  origin.Opener
	convert func(R) T
	key     string
	onSkip  repository.SkipFunc
}

type Option func(*settings)

type settings struct {
	key    string
	onSkip repository.SkipFunc
}

// WithKey reads the sequence stored under key in a top-level mapping instead
// of expecting the document itself to be a sequence.
func WithKey(key string) Option {
	return func(s *settings) {
		s.key = key
	}
}

// WithSkipFunc reports elements the source drops.
func WithSkipFunc(fn repository.SkipFunc) Option {
	return func(s *settings) {
		s.onSkip = fn
	}
}

func New[R, T any](o origin.Opener, convert func(R) T, opts ...Option) Source[R, T] {
	var cfg settings
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Source[R, T]{origin: o, convert: convert, key: cfg.key, onSkip: cfg.onSkip}
}

// Records reads the whole document up front and releases the origin before
// returning. A document that is not a sequence yields nothing and is reported
// as malformed.
func (s Source[R, T]) Records(ctx context.Context) (iter.Seq[T], error) {
	rc, err := s.origin.Open(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, record.Interrupted(s.origin.String(), err)
	}

	elements := s.elements(data)
	return func(yield func(T) bool) {
		for _, node := range elements {
			var row R
			err := node.Decode(&row)
			if err == nil {
				err = record.Validate(row)
			}
			if err != nil {
				s.skip(record.Malformed(fmt.Sprintf("%s line %d", s.origin, node.Line), err))
				continue
			}
			if !yield(s.convert(row)) {
				return
			}
		}
	}, nil
}

func (s Source[R, T]) elements(data []byte) []*yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.skip(record.Malformed(s.origin.String(), err))
		return nil
	}
	if len(doc.Content) == 0 {
		return nil
	}
	node := doc.Content[0]
	if s.key != "" {
		node = lookup(node, s.key)
		if node == nil {
			s.skip(record.Malformed(s.origin.String(), fmt.Errorf("missing key %q", s.key)))
			return nil
		}
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		s.skip(record.Malformed(s.origin.String(), errors.New("expected a sequence")))
		return nil
	}
	return node.Content
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func (s Source[R, T]) skip(err error) {
	if s.onSkip != nil {
		s.onSkip(err)
	}
}
