package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/ledger-engine/internal/service"
)

type PayoutHandler struct {
	svc *service.PayoutService
}

func NewPayoutHandler(svc *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

// GetPayout handles GET /v1/payouts/{id}.
func (h *PayoutHandler) GetPayout(w http.ResponseWriter, r *http.Request) {
	ownerID, isAdmin, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid payout id")
		return
	}
	var payout any
	if isAdmin {
		payout, err = h.svc.Get(r.Context(), id)
	} else {
		payout, err = h.svc.GetForOwner(r.Context(), ownerID, id)
	}
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, payout)
}

// ApprovePayout handles POST /v1/payouts/{id}/approve. Admin only: settles
// a processing payout for rails that confirm delivery out of band.
func (h *PayoutHandler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid payout id")
		return
	}
	var req struct {
		GatewayRef string `json:"gateway_ref"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
			return
		}
	}
	payout, err := h.svc.Approve(r.Context(), id, req.GatewayRef)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, payout)
}

// RejectPayout handles POST /v1/payouts/{id}/reject. Admin only: fails a
// processing payout and refunds amount plus fee.
func (h *PayoutHandler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid payout id")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "payout rejected"
	}
	payout, err := h.svc.Reject(r.Context(), id, req.Reason)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, payout)
}

// CancelPayout handles POST /v1/payouts/{id}/cancel.
func (h *PayoutHandler) CancelPayout(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid payout id")
		return
	}
	payout, err := h.svc.Cancel(r.Context(), ownerID, id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, payout)
}
