package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/ledger-engine/internal/service"
)

type QuoteHandler struct {
	svc *service.QuoteService
}

func NewQuoteHandler(svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// CreateQuote handles POST /v1/quotes.
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		FromAsset        string `json:"from_asset"`
		ToAsset          string `json:"to_asset"`
		FromAmountMicros int64  `json:"from_amount_micros"`
		ToAmountMicros   int64  `json:"to_amount_micros"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	quote, err := h.svc.CreateQuote(r.Context(), ownerID, req.FromAsset, req.ToAsset, req.FromAmountMicros, req.ToAmountMicros)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, quote)
}

// GetQuote handles GET /v1/quotes/{id}.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid quote id")
		return
	}
	quote, err := h.svc.GetQuote(r.Context(), ownerID, id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, quote)
}

// ExecuteQuote handles POST /v1/quotes/{id}/execute.
func (h *QuoteHandler) ExecuteQuote(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid quote id")
		return
	}
	transfer, err := h.svc.ExecuteQuote(r.Context(), ownerID, id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, transfer)
}
