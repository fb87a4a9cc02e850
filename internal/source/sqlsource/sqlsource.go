// Package sqlsource reads records from the result set of a SQL query.
//
// Any database/sql driver works. The binary registers pgx ("pgx"), lib/pq
// ("postgres") and modernc sqlite ("sqlite"); see Open.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/lib/pq"              // register lib/pq as "postgres"
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"stockroom/internal/repository"
	"stockroom/internal/source/record"
	"stockroom/pkg/platform/sentinel"
)

// Scanner is the part of *sql.Rows a row scanner needs.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads the current row into T. An error skips the row.
type ScanFunc[T any] func(Scanner) (T, error)

// Source runs a query each time Records is called.
type Source[T any] struct {
	db     *sql.DB
	query  string
	args   []any
	scan   ScanFunc[T]
	onSkip repository.SkipFunc
}

type Option func(*settings)

type settings struct {
	args   []any
	onSkip repository.SkipFunc
}

// WithArgs binds query placeholders.
func WithArgs(args ...any) Option {
	return func(s *settings) {
		s.args = args
	}
}

// WithSkipFunc reports rows the source drops.
func WithSkipFunc(fn repository.SkipFunc) Option {
	return func(s *settings) {
		s.onSkip = fn
	}
}

func New[T any](db *sql.DB, query string, scan ScanFunc[T], opts ...Option) Source[T] {
	var cfg settings
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Source[T]{db: db, query: query, args: cfg.args, scan: scan, onSkip: cfg.onSkip}
}

// Open connects with driver and checks the connection. Failures are
// unavailable.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", driver, sentinel.ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w: %w", driver, sentinel.ErrUnavailable, err)
	}
	return db, nil
}

// Records runs the query. The sequence closes the result set.
func (s Source[T]) Records(ctx context.Context) (iter.Seq[T], error) {
	rows, err := s.db.QueryContext(ctx, s.query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w: %w", sentinel.ErrUnavailable, err)
	}
	return func(yield func(T) bool) {
		defer func() { _ = rows.Close() }()
		n := 0
		for rows.Next() {
			n++
			v, err := s.scan(rows)
			if err == nil {
				err = record.Validate(v)
			}
			if err != nil {
				s.skip(record.Malformed(fmt.Sprintf("row %d", n), err))
				continue
			}
			if !yield(v) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			s.skip(record.Interrupted("query", err))
		}
	}, nil
}

func (s Source[T]) skip(err error) {
	if s.onSkip != nil {
		s.onSkip(err)
	}
}
