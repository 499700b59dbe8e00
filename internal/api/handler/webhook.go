package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ayo6706/ledger-engine/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookHandler receives settlement events from external deposit rails.
// Events are signed with HMAC-SHA256 over the raw body; delivery is
// at-least-once, so the funding service deduplicates on its side.
type WebhookHandler struct {
	fundingSvc    *service.FundingService
	hmacKey       []byte
	skipSignature bool
}

func NewWebhookHandler(fundingSvc *service.FundingService, hmacKey string, skipSignature bool) *WebhookHandler {
	return &WebhookHandler{
		fundingSvc:    fundingSvc,
		hmacKey:       []byte(hmacKey),
		skipSignature: skipSignature,
	}
}

type fundingEvent struct {
	FundingID           string `json:"funding_id"`
	Event               string `json:"event"` // "completed" or "failed"
	SettledAmountMicros int64  `json:"settled_amount_micros"`
	Reason              string `json:"reason"`
}

// HandleFundingWebhook handles POST /v1/webhooks/funding.
func (h *WebhookHandler) HandleFundingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	if !h.skipSignature {
		signature := r.Header.Get("X-Webhook-Signature")
		if !h.verifySignature(body, signature) {
			zap.L().Warn("webhook signature rejected", zap.String("path", r.URL.Path))
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
			return
		}
	}

	var event fundingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid event payload")
		return
	}
	fundingID, err := uuid.Parse(event.FundingID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid funding_id")
		return
	}

	switch event.Event {
	case "completed":
		funding, err := h.fundingSvc.Complete(r.Context(), fundingID, event.SettledAmountMicros)
		if err != nil {
			RespondDomainError(w, r, err)
			return
		}
		RespondJSON(w, http.StatusOK, funding)
	case "failed":
		if err := h.fundingSvc.Fail(r.Context(), fundingID, event.Reason); err != nil {
			RespondDomainError(w, r, err)
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "FAILED"})
	default:
		RespondError(w, r, http.StatusBadRequest, "webhook/unknown-event", "Unknown event type")
	}
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if len(h.hmacKey) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.hmacKey)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
