package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockroom/internal/inventory/metrics"
	"stockroom/internal/inventory/models"
	"stockroom/internal/inventory/store"
	"stockroom/internal/platform/logger"
	"stockroom/internal/repository"
	"stockroom/pkg/platform/sentinel"
)

const tracerName = "stockroom/internal/inventory/service"

// Loader folds the configured source into a fresh repository.
type Loader interface {
	Load(ctx context.Context) (*store.Repository, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*store.Repository, error)

func (f LoaderFunc) Load(ctx context.Context) (*store.Repository, error) { return f(ctx) }

// Service owns the live inventory. The repository itself is not safe for
// concurrent use; every read takes the shared lock and every write the
// exclusive one. Reload builds the replacement outside that lock, and reloads
// run one at a time so a slow load never replaces a newer one.
type Service struct {
	reloading sync.Mutex

	mu       sync.RWMutex
	repo     *store.Repository
	loadedAt time.Time

	loader  Loader
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// New returns a Service with an empty inventory. Call Reload to fill it.
func New(loader Loader, opts ...Option) *Service {
	s := &Service{
		repo:   store.NewRepository(),
		loader: loader,
		logger: logger.Discard(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload replaces the inventory with a fresh fold of the source and returns
// the number of distinct items. On failure the previous inventory stays.
func (s *Service) Reload(ctx context.Context) (int, error) {
	s.reloading.Lock()
	defer s.reloading.Unlock()

	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "inventory.reload", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	start := time.Now()
	repo, err := s.loader.Load(ctx)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveLoad("unavailable", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.logger.ErrorContext(ctx, "inventory reload failed",
			"run_id", runID,
			"error", err,
			"duration", elapsed,
		)
		return 0, fmt.Errorf("reload inventory: %w", err)
	}

	n := repo.Len()
	s.mu.Lock()
	s.repo = repo
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.metrics.ObserveLoad("ok", elapsed)
	s.metrics.SetItems(n)
	span.SetAttributes(attribute.Int("items", n))
	s.logger.InfoContext(ctx, "inventory reloaded",
		"run_id", runID,
		"items", n,
		"duration", elapsed,
	)
	return n, nil
}

// List returns every item in no particular order.
func (s *Service) List() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.Item, 0, s.repo.Len())
	for item := range s.repo.Items() {
		items = append(items, item)
	}
	return items
}

// Search returns items whose name contains term, ignoring case.
func (s *Service) Search(term string) []models.Item {
	s.metrics.IncrementSearches()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.TextSearch(term)
}

// Get returns the item with id or sentinel.ErrNotFound.
func (s *Service) Get(id string) (models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.repo.Get(id)
	if !ok {
		return models.Item{}, fmt.Errorf("item %q: %w", id, sentinel.ErrNotFound)
	}
	return item, nil
}

// Receive adds item to the inventory, merging it into an existing item with
// the same ID, and returns the stored result. Received items live until the
// next reload.
func (s *Service) Receive(ctx context.Context, item models.Item) (models.Item, error) {
	if err := item.Validate(); err != nil {
		return models.Item{}, fmt.Errorf("receive item: %w: %w", sentinel.ErrMalformed, err)
	}
	if item.Note != nil && *item.Note == "" {
		item.Note = nil
	}

	s.mu.Lock()
	_, existed := s.repo.Get(item.ProductID)
	s.repo.Add(item)
	stored, _ := s.repo.Get(item.ProductID)
	n := s.repo.Len()
	s.mu.Unlock()

	if existed {
		s.metrics.IncrementMerged()
	}
	s.metrics.SetItems(n)
	s.logger.DebugContext(ctx, "item received",
		"id", item.ProductID,
		"merged", existed,
	)
	return stored, nil
}

// Annotate replaces the note of the item with id. An empty note clears it.
func (s *Service) Annotate(ctx context.Context, id, note string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.repo.GetMut(id)
	if !ok {
		return models.Item{}, fmt.Errorf("item %q: %w", id, sentinel.ErrNotFound)
	}
	if note == "" {
		item.Note = nil
	} else {
		item.Note = &note
	}
	s.logger.DebugContext(ctx, "item annotated", "id", id)
	return *item, nil
}

// Len returns the number of distinct items.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.Len()
}

// LoadedAt returns when the last successful reload finished, or the zero
// time if none has.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// SkipRecorder returns a hook that logs and counts records a source drops.
func SkipRecorder(logger *slog.Logger, m *metrics.Metrics) repository.SkipFunc {
	return func(err error) {
		reason := "malformed"
		if errors.Is(err, sentinel.ErrUnavailable) {
			reason = "interrupted"
		}
		m.IncrementSkipped(reason)
		if logger != nil {
			logger.Warn("record skipped", "reason", reason, "error", err)
		}
	}
}
