package httpadapter

import (
	"net/http"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/validate"

	"github.com/go-chi/chi/v5"
)

// handleLeaseNext claims the first free running instance for the claimant
// in the body. Responds 404 when every instance is leased.
func (h *Handler) handleLeaseNext(w http.ResponseWriter, r *http.Request) {
	c, ok := h.claimant(w, r)
	if !ok {
		return
	}
	running, err := h.runtime.RunningInstances(r.Context())
	if err != nil {
		h.writeError(w, "lease next", err)
		return
	}
	st, err := h.leases.ClaimNext(r.Context(), running, c)
	if err != nil {
		h.writeError(w, "lease next", err)
		return
	}
	h.writeTask(w, r, st.InstanceID, http.StatusOK)
}

// handleLeaseRenew extends or takes the lease on one instance. Another
// claimant's active lease answers 409.
func (h *Handler) handleLeaseRenew(w http.ResponseWriter, r *http.Request) {
	c, ok := h.claimant(w, r)
	if !ok {
		return
	}
	s, err := h.leases.Renew(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		h.writeError(w, "lease renew", err)
		return
	}
	h.writeJSON(w, http.StatusOK, taskResponse{State: &s})
}

// handleLeaseBreak releases the claimant's lease on one instance.
func (h *Handler) handleLeaseBreak(w http.ResponseWriter, r *http.Request) {
	c, ok := h.claimant(w, r)
	if !ok {
		return
	}
	s, err := h.leases.Release(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		h.writeError(w, "lease break", err)
		return
	}
	h.writeJSON(w, http.StatusOK, taskResponse{State: &s})
}

func (h *Handler) claimant(w http.ResponseWriter, r *http.Request) (domain.Claimant, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return domain.Claimant{}, false
	}
	c, err := validate.Claimant(body)
	if err != nil {
		h.writeError(w, "parse claimant", err)
		return domain.Claimant{}, false
	}
	return c, true
}
