package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler contains dependencies and routes. It is an inbound adapter for HTTP.
// Tasks are started and driven through the Runtime, reconciled state is read
// through the fulfillment use case and leases go to the lease use case.
type Handler struct {
	runtime port.Runtime
	flows   port.FulfillmentUseCase
	leases  port.LeaseUseCase
	logger  *slog.Logger
	router  chi.Router
}

// NewHandler creates a handler with all routes configured. metrics is
// mounted on /metrics when not nil.
func NewHandler(runtime port.Runtime, flows port.FulfillmentUseCase, leases port.LeaseUseCase, metrics http.Handler, logger *slog.Logger) *Handler {
	h := &Handler{runtime: runtime, flows: flows, leases: leases, logger: logger}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tasks", h.handleStartTask)
		r.Get("/tasks/{id}", h.handleGetStatus)
		r.Post("/tasks/{id}/events/{event}", h.handleRaiseEvent)
		r.Post("/leases/next", h.handleLeaseNext)
		r.Post("/leases/{id}/renew", h.handleLeaseRenew)
		r.Delete("/leases/{id}", h.handleLeaseBreak)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

// taskResponse pairs the runtime's view of an instance with its reconciled
// state.
type taskResponse struct {
	Status *port.InstanceStatus  `json:"status,omitempty"`
	State  *domain.InstanceState `json:"state,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var code int
	switch {
	case errors.Is(err, port.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, port.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, port.ErrLeaseConflict),
		errors.Is(err, port.ErrDuplicateRecord),
		errors.Is(err, port.ErrUnexpectedEvent),
		errors.Is(err, port.ErrInstanceTerminal),
		errors.Is(err, port.ErrVersionConflict):
		code = http.StatusConflict
	default:
		h.logger.Error(op+" error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Debug(op+" rejected", slog.Int("code", code), slog.Any("error", err))
	http.Error(w, err.Error(), code)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}
