package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
)

// VerificationService records an employee's approve or reject decision on a pending
// transaction. The decision is attributed to that employee permanently.
type VerificationService struct {
	engine *TransitionEngine
}

func NewVerificationService(engine *TransitionEngine) *VerificationService {
	return &VerificationService{engine: engine}
}

// VerifyRequest is the decision payload.
type VerifyRequest struct {
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes,omitempty"`
}

// Verify applies pending -> verified when approved, pending -> rejected otherwise.
// A second decision on the same transaction fails with ErrInvalidTransition.
func (s *VerificationService) Verify(ctx context.Context, actor models.Actor, id uuid.UUID, req VerifyRequest) (*models.Transaction, error) {
	if err := requireEmployee(actor, "verify"); err != nil {
		return nil, err
	}

	var notes *string
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		if utf8.RuneCountInString(trimmed) > domain.MaxVerifierNotesLength {
			return nil, models.NewValidationError("notes", fmt.Sprintf("notes must be at most %d characters", domain.MaxVerifierNotesLength))
		}
		if trimmed != "" {
			notes = &trimmed
		}
	}

	tr := TransitionReject
	if req.Approved {
		tr = TransitionVerify
	}
	return s.engine.Apply(ctx, id, tr, actor, TransitionPayload{
		Notes:    notes,
		Metadata: map[string]any{"approved": req.Approved},
	})
}
