package httpadapter

import (
	"fmt"
	"net/http"
	"strings"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/core/validate"

	"github.com/go-chi/chi/v5"
)

// handleStartTask validates a campaign request and starts a fulfillment
// instance for it. The optional instanceId query parameter fixes the id;
// otherwise one is generated. Responds 202 with the instance status and
// state.
func (h *Handler) handleStartTask(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := validate.Request(body)
	if err != nil {
		h.writeError(w, "start task", err)
		return
	}

	id := r.URL.Query().Get("instanceId")
	if strings.HasPrefix(id, port.ReservedInstancePrefix) {
		h.writeError(w, "start task", fmt.Errorf("%w: instance id %q uses a reserved prefix", port.ErrValidation, id))
		return
	}

	id, err = h.runtime.StartInstance(r.Context(), port.WorkflowFulfillment, id, req)
	if err != nil {
		h.writeError(w, "start task", err)
		return
	}
	h.writeTask(w, r, id, http.StatusAccepted)
}

// handleGetStatus returns the status and reconciled state of an instance.
func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeTask(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// handleRaiseEvent delivers the body as the payload of the named event.
// Events the instance does not wait for answer 409, malformed payloads 400.
func (h *Handler) handleRaiseEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event := domain.Operation(chi.URLParam(r, "event"))
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := h.runtime.RaiseEvent(r.Context(), id, event, body); err != nil {
		h.writeError(w, "raise event", err)
		return
	}
	h.writeTask(w, r, id, http.StatusOK)
}

func (h *Handler) writeTask(w http.ResponseWriter, r *http.Request, id string, code int) {
	st, err := h.runtime.Status(r.Context(), id)
	if err != nil {
		h.writeError(w, "get status", err)
		return
	}
	if st == nil {
		http.NotFound(w, r)
		return
	}
	s, err := h.flows.State(r.Context(), id)
	if err != nil {
		h.writeError(w, "get status", err)
		return
	}
	h.writeJSON(w, code, taskResponse{Status: st, State: &s})
}
