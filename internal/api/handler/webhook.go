package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/swift-remit/internal/service"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// WebhookHandler handles settlement callbacks from the settlement network.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
	}
}

// HandleSettlementWebhook handles POST /v1/webhooks/settlement.
// It verifies the HMAC signature and records the settlement outcome.
func (h *WebhookHandler) HandleSettlementWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	resp, err := h.webhookSvc.HandleSettlementWebhook(r.Context(), body, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
			return
		}
		zap.L().Warn("process settlement webhook failed", zap.Error(err))
		RespondServiceError(w, r, "settlement webhook", err)
		return
	}

	RespondJSON(w, http.StatusOK, resp)
}
