package handler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"stockroom/internal/inventory/models"
	"stockroom/pkg/platform/httputil"
	"stockroom/pkg/platform/middleware/admin"
	"stockroom/pkg/platform/sentinel"
)

// Service defines the inventory operations exposed over HTTP.
type Service interface {
	List() []models.Item
	Search(term string) []models.Item
	Get(id string) (models.Item, error)
	Receive(ctx context.Context, item models.Item) (models.Item, error)
	Annotate(ctx context.Context, id, note string) (models.Item, error)
	Reload(ctx context.Context) (int, error)
}

// Handler wires inventory endpoints to the inventory service.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

type Option func(*Handler)

// WithAdminToken requires the X-Admin-Token header on write endpoints.
func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// New constructs an inventory handler with its dependencies.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts inventory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/items", h.HandleList)
	r.Get("/items/search", h.HandleSearch)
	r.Get("/items/{id}", h.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/items", h.HandleReceive)
		r.Patch("/items/{id}/note", h.HandleAnnotate)
		r.Post("/reload", h.HandleReload)
	})
}

// ItemsResponse lists items sorted by ID.
type ItemsResponse struct {
	Items []models.Item `json:"items"`
	Count int           `json:"count"`
}

// ReceiveRequest is the body of POST /items.
type ReceiveRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity *uint64 `json:"quantity,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// AnnotateRequest is the body of PATCH /items/{id}/note. An empty note clears it.
type AnnotateRequest struct {
	Note string `json:"note"`
}

// ReloadResponse reports the size of the freshly loaded inventory.
type ReloadResponse struct {
	Items int `json:"items"`
}

// HandleList handles GET /items.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, itemsResponse(h.service.List()))
}

// HandleSearch handles GET /items/search?q=term.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		httputil.WriteError(w, fmt.Errorf("query parameter q is required: %w", sentinel.ErrMalformed))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, itemsResponse(h.service.Search(term)))
}

// HandleGet handles GET /items/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

// HandleReceive handles POST /items.
func (h *Handler) HandleReceive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.DecodeJSON[ReceiveRequest](w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.service.Receive(ctx, models.Item{
		ProductID: strings.TrimSpace(req.ID),
		Name:      req.Name,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "item received",
		"request_id", chimw.GetReqID(ctx),
		"id", item.ProductID,
	)
	httputil.WriteJSON(w, http.StatusOK, item)
}

// HandleAnnotate handles PATCH /items/{id}/note.
func (h *Handler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.DecodeJSON[AnnotateRequest](w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.service.Annotate(ctx, chi.URLParam(r, "id"), req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

// HandleReload handles POST /reload.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.service.Reload(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reload request failed",
			"request_id", chimw.GetReqID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReloadResponse{Items: n})
}

func itemsResponse(items []models.Item) ItemsResponse {
	slices.SortFunc(items, func(a, b models.Item) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return ItemsResponse{Items: items, Count: len(items)}
}
