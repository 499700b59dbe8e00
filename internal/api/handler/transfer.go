package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/ledger-engine/internal/service"
	"github.com/google/uuid"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// MakeInternalTransfer handles POST /v1/transfers/internal.
func (h *TransferHandler) MakeInternalTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		FromAccountID string `json:"from_account_id"`
		ToAccountID   string `json:"to_account_id"`
		AmountMicros  int64  `json:"amount_micros"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid from_account_id")
		return
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid to_account_id")
		return
	}

	transfer, err := h.svc.InternalTransfer(r.Context(), ownerID, fromID, toID, req.AmountMicros)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, transfer)
}

// MakeP2PTransfer handles POST /v1/transfers/p2p.
func (h *TransferHandler) MakeP2PTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		FromAccountID string `json:"from_account_id"`
		Recipient     string `json:"recipient"`
		AmountMicros  int64  `json:"amount_micros"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid from_account_id")
		return
	}

	transfer, err := h.svc.P2PTransfer(r.Context(), ownerID, fromID, req.Recipient, req.AmountMicros)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, transfer)
}

type externalTransferRequest struct {
	FromAccountID string            `json:"from_account_id"`
	AmountMicros  int64             `json:"amount_micros"`
	Destination   map[string]string `json:"destination"`
}

func decodeExternalTransfer(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, *externalTransferRequest, bool) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return uuid.Nil, uuid.Nil, nil, false
	}
	var req externalTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return uuid.Nil, uuid.Nil, nil, false
	}
	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid from_account_id")
		return uuid.Nil, uuid.Nil, nil, false
	}
	return ownerID, fromID, &req, true
}

// MakeBankTransfer handles POST /v1/transfers/bank.
func (h *TransferHandler) MakeBankTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, fromID, req, ok := decodeExternalTransfer(w, r)
	if !ok {
		return
	}
	payout, err := h.svc.BankTransfer(r.Context(), ownerID, fromID, req.AmountMicros, req.Destination)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, payout)
}

// MakeMobileMoneyTransfer handles POST /v1/transfers/mobile-money.
func (h *TransferHandler) MakeMobileMoneyTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, fromID, req, ok := decodeExternalTransfer(w, r)
	if !ok {
		return
	}
	payout, err := h.svc.MobileMoneyTransfer(r.Context(), ownerID, fromID, req.AmountMicros, req.Destination)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, payout)
}

// MakeCryptoTransfer handles POST /v1/transfers/crypto.
func (h *TransferHandler) MakeCryptoTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, fromID, req, ok := decodeExternalTransfer(w, r)
	if !ok {
		return
	}
	payout, err := h.svc.CryptoTransfer(r.Context(), ownerID, fromID, req.AmountMicros, req.Destination)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, payout)
}

// GetTransfer handles GET /v1/transfers/{id}.
func (h *TransferHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, isAdmin, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid transfer id")
		return
	}
	transfer, err := h.svc.GetTransfer(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if transfer.OwnerID != ownerID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "transfer not found")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}
