package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/service"
)

type AccountHandler struct {
	svc *service.LedgerService
}

func NewAccountHandler(svc *service.LedgerService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// OpenAccount handles POST /v1/accounts.
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req struct {
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	account, err := h.svc.OpenAccount(r.Context(), ownerID, req.Currency)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, account)
}

// ListAccounts handles GET /v1/accounts.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, _, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	accounts, err := h.svc.ListAccounts(r.Context(), ownerID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, accounts)
}

// GetBalance handles GET /v1/accounts/{id}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, isAdmin, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	accountID, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid account id")
		return
	}

	account, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if account.OwnerID != ownerID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "account not found")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":     account.ID,
		"currency":       account.Currency,
		"balance_micros": account.BalanceMicros,
		"balance":        domain.NewMoney(account.BalanceMicros, account.Currency).String(),
		"status":         account.Status,
	})
}

// GetStatement handles GET /v1/accounts/{id}/statement.
func (h *AccountHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	ownerID, isAdmin, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	accountID, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid account id")
		return
	}

	account, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if account.OwnerID != ownerID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "account not found")
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	txns, err := h.svc.Statement(r.Context(), accountID, q.Get("type"), q.Get("status"), limit, offset)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":   accountID,
		"transactions": txns,
	})
}

// Freeze handles POST /v1/accounts/{id}/freeze (admin only).
func (h *AccountHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid account id")
		return
	}
	if err := h.svc.Freeze(r.Context(), accountID); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": domain.AccountStatusFrozen})
}

// Unfreeze handles POST /v1/accounts/{id}/unfreeze (admin only).
func (h *AccountHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid account id")
		return
	}
	if err := h.svc.Unfreeze(r.Context(), accountID); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": domain.AccountStatusActive})
}

// Close handles POST /v1/accounts/{id}/close.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	ownerID, isAdmin, err := requestOwner(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	accountID, err := pathUUID(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid account id")
		return
	}
	account, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	if account.OwnerID != ownerID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "account not found")
		return
	}
	if err := h.svc.Close(r.Context(), accountID); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": domain.AccountStatusClosed})
}
