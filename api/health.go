package api

import (
	"net/http"

	"github.com/lorewarden/lorewarden/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  Store
	logger log.Logger
}

// NewHealthHandler creates a new health handler. The store is probed by
// the readiness check.
func NewHealthHandler(store Store, logger log.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK if the session store is reachable.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if err := h.store.Ping(); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "session store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
