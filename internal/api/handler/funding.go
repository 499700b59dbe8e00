package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/ledger-engine/internal/service"
	"github.com/google/uuid"
)

type FundingHandler struct {
	svc *service.FundingService
}

func NewFundingHandler(svc *service.FundingService) *FundingHandler {
	return &FundingHandler{svc: svc}
}

// InitiateFunding handles POST /v1/funding.
func (h *FundingHandler) InitiateFunding(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		AccountID    string `json:"account_id"`
		Method       string `json:"method"`
		AmountMicros int64  `json:"amount_micros"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid account_id")
		return
	}

	funding, err := h.svc.Initiate(r.Context(), ownerID, accountID, req.Method, req.AmountMicros)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, funding)
}

// GetFunding handles GET /v1/funding/{id}.
func (h *FundingHandler) GetFunding(w http.ResponseWriter, r *http.Request) {
	ownerID, isAdmin, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid funding id")
		return
	}
	var funding any
	if isAdmin {
		funding, err = h.svc.Get(r.Context(), id)
	} else {
		funding, err = h.svc.GetForOwner(r.Context(), ownerID, id)
	}
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, funding)
}

// CancelFunding handles POST /v1/funding/{id}/cancel.
func (h *FundingHandler) CancelFunding(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid funding id")
		return
	}
	if err := h.svc.Cancel(r.Context(), ownerID, id); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "CANCELLED"})
}
