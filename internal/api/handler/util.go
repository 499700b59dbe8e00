package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/ledger-engine/internal/api/middleware"
	"github.com/ayo6706/ledger-engine/internal/api/problem"
	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an RFC 7807 error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondDomainError maps kinded business errors onto HTTP statuses and
// problem types. Unkinded errors are treated as internal faults and their
// detail is not leaked.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status, slug := http.StatusInternalServerError, "internal-server-error"
	switch kind {
	case domain.KindValidation:
		status, slug = http.StatusBadRequest, "request/invalid"
	case domain.KindNotFound:
		status, slug = http.StatusNotFound, "resource/not-found"
	case domain.KindInsufficientFunds:
		status, slug = http.StatusUnprocessableEntity, "ledger/insufficient-funds"
	case domain.KindLimitExceeded:
		status, slug = http.StatusUnprocessableEntity, "ledger/limit-exceeded"
	case domain.KindQuoteExpired:
		status, slug = http.StatusGone, "quote/expired"
	case domain.KindConflict:
		status, slug = http.StatusConflict, "resource/conflict"
	case domain.KindProviderUnavailable:
		status, slug = http.StatusServiceUnavailable, "provider/unavailable"
	}

	message := "unexpected server error"
	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
	}
	RespondError(w, r, status, slug, message)
}

func requestOwner(r *http.Request) (uuid.UUID, bool, error) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == "" {
		return uuid.Nil, false, errors.New("missing owner in auth context")
	}

	id, err := uuid.Parse(ownerID)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid owner_id in auth context")
	}

	return id, middleware.OwnerRoleFromContext(r.Context()) == "admin", nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}
