package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ayo6706/swift-remit/internal/gateway"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidSignature = errors.New("invalid signature")

// WebhookService handles settlement outcome callbacks from the settlement network.
type WebhookService struct {
	store      TransactionStore
	settlement *SettlementService
	hmacKey    []byte
	skipSig    bool
}

// NewWebhookService creates a new WebhookService instance.
func NewWebhookService(store TransactionStore, settlement *SettlementService, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		store:      store,
		settlement: settlement,
		hmacKey:    []byte(hmacKey),
		skipSig:    skipSignature,
	}
}

// SettlementWebhookPayload is the body the settlement network posts.
type SettlementWebhookPayload struct {
	TransactionID string `json:"transaction_id"`
	UETR          string `json:"uetr,omitempty"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`
}

// SettlementWebhookResponse acknowledges a callback.
type SettlementWebhookResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
}

// HandleSettlementWebhook verifies the HMAC signature and records the reported outcome.
// A replay of an outcome that is already recorded is acknowledged without change.
func (s *WebhookService) HandleSettlementWebhook(ctx context.Context, payload []byte, signature string) (*SettlementWebhookResponse, error) {
	if !s.verifyHMAC(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var body SettlementWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, models.NewValidationError("body", "invalid JSON payload")
	}
	id, err := uuid.Parse(strings.TrimSpace(body.TransactionID))
	if err != nil {
		return nil, models.NewValidationError("transaction_id", "transaction_id must be a UUID")
	}
	outcome := gateway.Outcome(strings.ToLower(strings.TrimSpace(body.Outcome)))
	if outcome != gateway.OutcomeCompleted && outcome != gateway.OutcomeFailed {
		return nil, models.NewValidationError("outcome", "outcome must be completed or failed")
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if body.UETR != "" && (current.SwiftReference == nil || !strings.EqualFold(*current.SwiftReference, body.UETR)) {
		return nil, models.NewValidationError("uetr", "uetr does not match the transaction's settlement reference")
	}
	if current.Status == outcomeStatus(outcome) {
		return &SettlementWebhookResponse{TransactionID: id, Status: current.Status, Message: "Outcome already recorded"}, nil
	}

	t, err := s.settlement.RecordOutcome(ctx, SystemActor("settlement-webhook"), id, outcome, strings.TrimSpace(body.Reason))
	if err != nil {
		return nil, err
	}
	zap.L().Info("settlement webhook applied",
		zap.String("transaction_id", id.String()),
		zap.String("outcome", string(outcome)),
	)
	return &SettlementWebhookResponse{TransactionID: id, Status: t.Status, Message: "Outcome recorded"}, nil
}

// verifyHMAC verifies the HMAC signature of the payload.
func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expectedSig := "sha256=" + hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSig))
}

func outcomeStatus(o gateway.Outcome) string {
	tr := TransitionFail
	if o == gateway.OutcomeCompleted {
		tr = TransitionComplete
	}
	status, _ := tr.Target()
	return status
}
