package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"stockroom/pkg/platform/httputil"
)

// Status reports the state of the live inventory.
type Status interface {
	Len() int
	LoadedAt() time.Time
}

// Routes is anything that mounts its endpoints on a router.
type Routes interface {
	Register(r chi.Router)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string     `json:"status"`
	Items    int        `json:"items"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// NewRouter wires the public endpoints. The router stays thin: every
// inventory route is owned by its handler, metrics may be nil.
func NewRouter(status Status, metrics http.Handler, routes ...Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Items: status.Len()}
		if at := status.LoadedAt(); !at.IsZero() {
			resp.LoadedAt = &at
		} else {
			resp.Status = "loading"
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	for _, rt := range routes {
		rt.Register(r)
	}
	return r
}
