package gateway

import (
	"context"
	"errors"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/google/uuid"
)

// ErrRejected is returned by Submit when the network refuses an instruction.
var ErrRejected = errors.New("instruction rejected by settlement network")

// ErrUnknownReference is returned by Status for a UETR the network never accepted.
var ErrUnknownReference = errors.New("unknown settlement reference")

// Outcome is the settlement state reported by the network for one instruction.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Instruction is a credit transfer handed to the settlement network.
type Instruction struct {
	UETR               string
	TransactionID      uuid.UUID
	Money              domain.Money
	BeneficiaryName    string
	BeneficiaryAccount string
	BeneficiaryBIC     string
	Reference          string
}

// Status is the network's view of a submitted instruction.
type Status struct {
	Outcome Outcome
	Reason  string
}

// Network represents the external settlement network (SWIFT).
type Network interface {
	// Submit hands an instruction to the network. A rejection wraps ErrRejected.
	Submit(ctx context.Context, in Instruction) error
	// Status reports the current settlement outcome of a previously submitted UETR.
	Status(ctx context.Context, uetr string) (Status, error)
}
