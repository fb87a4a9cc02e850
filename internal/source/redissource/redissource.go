// Package redissource reads records stored as Redis hashes under a common key
// prefix, one hash per record.
package redissource

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/redis/go-redis/v9"

	"stockroom/internal/repository"
	"stockroom/internal/source/record"
	"stockroom/pkg/platform/sentinel"
)

const defaultScanCount = 100

// Decoder turns the fields of one hash into the intermediate row shape R.
type Decoder[R any] func(record.Fields) (R, error)

// Source walks keys matching prefix+"*" with SCAN and reads each with HGETALL.
// SCAN may return a key more than once while the keyspace is being rehashed;
// the repository merge policy applies to such repeats.
type Source[R, T any] struct {
	client   redis.UniversalClient
	prefix   string
	decode   Decoder[R]
	convert  func(R) T
	keyField string
	count    int64
	onSkip   repository.SkipFunc
}

type Option func(*settings)

type settings struct {
	keyField string
	count    int64
	onSkip   repository.SkipFunc
}

// WithKeyField exposes the key, minus the prefix, as column when the hash
// does not already carry it.
func WithKeyField(column string) Option {
	return func(s *settings) {
		s.keyField = column
	}
}

// WithScanCount sets the SCAN COUNT hint.
func WithScanCount(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.count = n
		}
	}
}

// WithSkipFunc reports keys the source drops.
func WithSkipFunc(fn repository.SkipFunc) Option {
	return func(s *settings) {
		s.onSkip = fn
	}
}

func New[R, T any](client redis.UniversalClient, prefix string, decode Decoder[R], convert func(R) T, opts ...Option) Source[R, T] {
	cfg := settings{count: defaultScanCount}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Source[R, T]{
		client:   client,
		prefix:   prefix,
		decode:   decode,
		convert:  convert,
		keyField: cfg.keyField,
		count:    cfg.count,
		onSkip:   cfg.onSkip,
	}
}

// Records pings the server and returns a sequence over the matching hashes.
// Commands issued while iterating use ctx.
func (s Source[R, T]) Records(ctx context.Context) (iter.Seq[T], error) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w: %w", sentinel.ErrUnavailable, err)
	}
	return func(yield func(T) bool) {
		keys := s.client.Scan(ctx, 0, s.prefix+"*", s.count).Iterator()
		for keys.Next(ctx) {
			key := keys.Val()
			values, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				if isReply(err) {
					s.skip(record.Malformed(key, err))
					continue
				}
				s.skip(record.Interrupted(key, err))
				return
			}
			fields := record.Fields(values)
			if s.keyField != "" {
				if _, ok := fields[s.keyField]; !ok {
					fields[s.keyField] = strings.TrimPrefix(key, s.prefix)
				}
			}
			row, err := s.decode(fields)
			if err != nil {
				s.skip(record.Malformed(key, err))
				continue
			}
			if !yield(s.convert(row)) {
				return
			}
		}
		if err := keys.Err(); err != nil {
			s.skip(record.Interrupted("redis scan", err))
		}
	}, nil
}

// isReply reports whether err came back from the server, such as WRONGTYPE,
// rather than from the connection.
func isReply(err error) bool {
	var reply redis.Error
	return errors.As(err, &reply)
}

func (s Source[R, T]) skip(err error) {
	if s.onSkip != nil {
		s.onSkip(err)
	}
}
