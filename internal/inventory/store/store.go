// Package store builds the inventory record source selected by configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"stockroom/internal/inventory/models"
	"stockroom/internal/platform/config"
	redisclient "stockroom/internal/platform/redis"
	"stockroom/internal/repository"
	"stockroom/internal/source/csvsource"
	"stockroom/internal/source/kafkasource"
	"stockroom/internal/source/origin"
	"stockroom/internal/source/redissource"
	"stockroom/internal/source/sqlsource"
	"stockroom/internal/source/yamlsource"
	"stockroom/pkg/platform/sentinel"
)

// Repository holds inventory items keyed by product ID.
type Repository = repository.Repository[string, models.Item, *models.Item]

// NewRepository returns an empty Repository.
func NewRepository() *Repository {
	return repository.New[string, models.Item]()
}

// Fold loads src into a fresh Repository sized for capacity items.
func Fold(ctx context.Context, src repository.Source[models.Item], capacity int) (*Repository, error) {
	return repository.FoldWithCapacity[string, models.Item](ctx, src, capacity)
}

// Store is a configured inventory source together with the connections it
// owns. Close releases them.
type Store struct {
	src      repository.Source[models.Item]
	origin   origin.Opener
	kind     string
	capacity int
	closers  []io.Closer
}

type Option func(*settings)

type settings struct {
	opener origin.Opener
	onSkip repository.SkipFunc
}

// WithOpener reads csv and yaml records from o instead of resolving the
// configured origin.
func WithOpener(o origin.Opener) Option {
	return func(s *settings) {
		s.opener = o
	}
}

// WithSkipFunc reports records the source drops.
func WithSkipFunc(fn repository.SkipFunc) Option {
	return func(s *settings) {
		s.onSkip = fn
	}
}

// Open validates cfg and builds its source. Network backed kinds connect
// here, so an unreachable backend fails with sentinel.ErrUnavailable.
func Open(ctx context.Context, cfg config.Source, opts ...Option) (*Store, error) {
	var set settings
	for _, opt := range opts {
		if opt != nil {
			opt(&set)
		}
	}
	if set.opener == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	st := &Store{kind: cfg.Kind, capacity: cfg.Capacity}
	switch cfg.Kind {
	case config.KindCSV, config.KindYAML:
		o := set.opener
		if o == nil {
			var err error
			o, err = origin.Parse(ctx, cfg.Origin, origin.S3Config{
				Region:          cfg.S3.Region,
				Endpoint:        cfg.S3.Endpoint,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				PathStyle:       cfg.S3.PathStyle,
			})
			if err != nil {
				return nil, err
			}
		}
		st.origin = o
		if cfg.Kind == config.KindCSV {
			st.src = csvsource.New(o, models.RowFromFields, models.FromRow,
				csvsource.WithComma(cfg.CSV.Comma),
				csvsource.WithSkipFunc(set.onSkip))
		} else {
			st.src = yamlsource.New(o, models.FromRow,
				yamlsource.WithKey(cfg.YAML.Key),
				yamlsource.WithSkipFunc(set.onSkip))
		}

	case config.KindSQL:
		db, err := sqlsource.Open(ctx, cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db)
		st.src = sqlsource.New(db, cfg.SQL.Query, ScanItem, sqlsource.WithSkipFunc(set.onSkip))

	case config.KindRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, client)
		st.src = redissource.New(client.Client, cfg.Redis.Prefix, models.RowFromFields, models.FromRow,
			redissource.WithKeyField(models.ColumnID),
			redissource.WithSkipFunc(set.onSkip))

	case config.KindKafka:
		st.src = kafkasource.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, models.FromRow,
			kafkasource.WithSkipFunc(set.onSkip))

	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", sentinel.ErrInvalidConfig, cfg.Kind)
	}
	return st, nil
}

// Records reads the configured origin afresh.
func (s *Store) Records(ctx context.Context) (iter.Seq[models.Item], error) {
	return s.src.Records(ctx)
}

// Load folds the source into a fresh Repository.
func (s *Store) Load(ctx context.Context) (*Repository, error) {
	return Fold(ctx, s.src, s.capacity)
}

// Path returns the local file behind a csv or yaml source.
func (s *Store) Path() (string, bool) {
	if s.origin == nil {
		return "", false
	}
	return origin.Path(s.origin)
}

// String describes the source for logs.
func (s *Store) String() string {
	if s.origin != nil {
		return s.kind + ":" + s.origin.String()
	}
	return s.kind
}

func (s *Store) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// ScanItem reads a result row with columns id, name, quantity, note in that
// order. NULL quantity and note are absent; a NULL id or name skips the row.
func ScanItem(row sqlsource.Scanner) (models.Item, error) {
	var r models.Row
	if err := row.Scan(&r.ID, &r.Name, &r.Quantity, &r.Note); err != nil {
		return models.Item{}, err
	}
	return models.FromRow(r), nil
}
