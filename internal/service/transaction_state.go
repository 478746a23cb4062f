package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/events"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transition names one edge of the transaction state machine.
type Transition string

const (
	TransitionVerify   Transition = "verify"
	TransitionReject   Transition = "reject"
	TransitionSubmit   Transition = "submit_to_swift"
	TransitionComplete Transition = "complete"
	TransitionFail     Transition = "fail"
)

const defaultFailureReason = "settlement failed"

var transactionTransitions = map[string]map[string]struct{}{
	domain.StatusPending: {
		domain.StatusVerified: {},
		domain.StatusRejected: {},
	},
	domain.StatusVerified: {
		domain.StatusSubmittedToSwift: {},
	},
	domain.StatusSubmittedToSwift: {
		domain.StatusCompleted: {},
		domain.StatusFailed:    {},
	},
	domain.StatusRejected:  {},
	domain.StatusCompleted: {},
	domain.StatusFailed:    {},
}

type edge struct {
	from  string
	to    string
	roles []string
}

var transitionEdges = map[Transition]edge{
	TransitionVerify:   {from: domain.StatusPending, to: domain.StatusVerified, roles: []string{domain.RoleEmployee}},
	TransitionReject:   {from: domain.StatusPending, to: domain.StatusRejected, roles: []string{domain.RoleEmployee}},
	TransitionSubmit:   {from: domain.StatusVerified, to: domain.StatusSubmittedToSwift, roles: []string{domain.RoleEmployee}},
	TransitionComplete: {from: domain.StatusSubmittedToSwift, to: domain.StatusCompleted, roles: []string{domain.RoleEmployee, domain.RoleSystem}},
	TransitionFail:     {from: domain.StatusSubmittedToSwift, to: domain.StatusFailed, roles: []string{domain.RoleEmployee, domain.RoleSystem}},
}

// CanTransition reports whether next is a legal successor of current.
func CanTransition(current, next string) bool {
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// Transitions lists every named transition.
func Transitions() []Transition {
	return []Transition{TransitionVerify, TransitionReject, TransitionSubmit, TransitionComplete, TransitionFail}
}

// Target returns the status a transition leads to.
func (t Transition) Target() (string, bool) {
	e, ok := transitionEdges[t]
	return e.to, ok
}

func (e edge) allows(role string) bool {
	for _, r := range e.roles {
		if r == role {
			return true
		}
	}
	return false
}

// TransitionPayload carries the edge-specific inputs of Apply.
type TransitionPayload struct {
	Notes          *string
	SwiftReference string
	FailureReason  string
	Metadata       map[string]any
}

// TransitionEngine validates and applies state transitions to single transaction records.
type TransitionEngine struct {
	store     TransactionStore
	audit     *AuditService
	publisher events.Publisher
	now       func() time.Time
}

func NewTransitionEngine(store TransactionStore, publisher events.Publisher) *TransitionEngine {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TransitionEngine{
		store:     store,
		audit:     NewAuditService(store),
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for transition timestamps.
func (e *TransitionEngine) WithClock(now func() time.Time) *TransitionEngine {
	e.now = now
	e.audit.now = now
	return e
}

// Apply moves one transaction along the requested edge. The record is re-read, the edge
// is checked against its current status, and the result is written back with a
// status-guarded store write, so of two concurrent calls at most one succeeds and the
// other gets ErrConflictingTransition. On any error the stored record is unchanged.
func (e *TransitionEngine) Apply(ctx context.Context, id uuid.UUID, tr Transition, actor models.Actor, payload TransitionPayload) (*models.Transaction, error) {
	next, prev, err := e.apply(ctx, id, tr, actor, payload)
	if err != nil {
		kind := models.ErrorKind(err)
		observability.IncrementTransition(string(tr), kind)
		zap.L().Debug("transition refused",
			zap.String("transaction_id", id.String()),
			zap.String("transition", string(tr)),
			zap.String("actor", actor.Email),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, err
	}

	observability.IncrementTransition(string(tr), "applied")
	zap.L().Info("transition applied",
		zap.String("transaction_id", id.String()),
		zap.String("transition", string(tr)),
		zap.String("from", prev),
		zap.String("to", next.Status),
		zap.String("actor", actor.Email),
		zap.String("actor_role", actor.Role),
	)
	e.publish(ctx, next, tr, prev, actor)
	return next, nil
}

func (e *TransitionEngine) apply(ctx context.Context, id uuid.UUID, tr Transition, actor models.Actor, payload TransitionPayload) (*models.Transaction, string, error) {
	ed, ok := transitionEdges[tr]
	if !ok {
		return nil, "", models.NewValidationError("transition", fmt.Sprintf("unknown transition %q", tr))
	}
	if !ed.allows(actor.Role) {
		return nil, "", fmt.Errorf("role %q may not %s: %w", actor.Role, tr, models.ErrForbidden)
	}

	current, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if current.Status != ed.from || !CanTransition(current.Status, ed.to) {
		return nil, "", fmt.Errorf("cannot %s transaction in status %s: %w", tr, current.Status, models.ErrInvalidTransition)
	}

	now := e.now().UTC()
	next := current.Clone()
	next.Status = ed.to
	switch tr {
	case TransitionVerify, TransitionReject:
		next.VerifiedByEmail = stringPtr(actor.Email)
		next.VerifiedByName = stringPtr(actor.Name)
		next.VerifierDepartment = stringPtr(actor.Department)
		next.VerifiedAt = &now
		next.VerifierNotes = payload.Notes
	case TransitionSubmit:
		next.SubmittedToSwiftAt = &now
		if payload.SwiftReference != "" {
			next.SwiftReference = stringPtr(payload.SwiftReference)
		}
	case TransitionComplete:
		next.CompletedAt = &now
	case TransitionFail:
		reason := payload.FailureReason
		if reason == "" {
			reason = defaultFailureReason
		}
		next.FailureReason = stringPtr(reason)
	}

	entry, err := e.audit.NewEntry(next.ID, string(tr), current.Status, next.Status, actor, payload.Metadata)
	if err != nil {
		return nil, "", err
	}
	if err := e.store.PutIfStatus(ctx, current.Status, next, entry); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%s transaction %s: %w", tr, id, err)
	}
	return next, current.Status, nil
}

// publish is best effort; a lost event never undoes a committed transition.
func (e *TransitionEngine) publish(ctx context.Context, t *models.Transaction, tr Transition, prev string, actor models.Actor) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	evt := events.TransactionEvent{
		EventID:       uuid.New(),
		TransactionID: t.ID,
		CustomerID:    t.CustomerID,
		Transition:    string(tr),
		From:          prev,
		To:            t.Status,
		ActorEmail:    actor.Email,
		OccurredAt:    e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		observability.IncrementEventPublish("error")
		zap.L().Warn("lifecycle event publish failed",
			zap.String("transaction_id", t.ID.String()),
			zap.String("transition", string(tr)),
			zap.Error(err),
		)
		return
	}
	observability.IncrementEventPublish("ok")
}
