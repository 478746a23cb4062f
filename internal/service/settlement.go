package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/gateway"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxBatchSize     = 200
	defaultBatchConcurrency = 8
	defaultSubmitTimeout    = 30 * time.Second
)

// SettlementService hands verified transactions to the settlement network and records
// the outcomes the network reports back.
type SettlementService struct {
	store         TransactionStore
	engine        *TransitionEngine
	network       gateway.Network
	maxBatch      int
	concurrency   int
	submitTimeout time.Duration
	newUETR       func() string
}

func NewSettlementService(store TransactionStore, engine *TransitionEngine, network gateway.Network) *SettlementService {
	return &SettlementService{
		store:         store,
		engine:        engine,
		network:       network,
		maxBatch:      defaultMaxBatchSize,
		concurrency:   defaultBatchConcurrency,
		submitTimeout: defaultSubmitTimeout,
		newUETR:       uuid.NewString,
	}
}

// WithBatchLimits sets the maximum batch size and the number of items processed at once.
func (s *SettlementService) WithBatchLimits(maxBatch, concurrency int) *SettlementService {
	if maxBatch > 0 {
		s.maxBatch = maxBatch
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	return s
}

type batchOutcome struct {
	ok      bool
	failure models.BatchFailure
}

// WithSubmitTimeout bounds each network handoff. The handoff outlives the caller's
// context, since the record is already marked submitted when it starts.
func (s *SettlementService) WithSubmitTimeout(d time.Duration) *SettlementService {
	if d > 0 {
		s.submitTimeout = d
	}
	return s
}

// SubmitBatch independently moves every listed transaction from verified to
// submitted_to_swift and hands it to the settlement network. Each item succeeds or fails
// on its own; nothing is rolled back because another item failed.
func (s *SettlementService) SubmitBatch(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.BatchResult, error) {
	if err := requireEmployee(actor, "submit batch"); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, models.NewValidationError("transaction_ids", "at least one transaction id is required")
	}

	unique := dedupeIDs(ids)
	if len(unique) > s.maxBatch {
		return nil, models.NewValidationError("transaction_ids", fmt.Sprintf("a batch may hold at most %d transactions", s.maxBatch))
	}

	outcomes := make([]batchOutcome, len(unique))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range unique {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = s.submitOne(ctx, actor, id)
			return nil
		})
	}
	_ = g.Wait()

	result := &models.BatchResult{
		Successful: make([]uuid.UUID, 0, len(unique)),
		Failed:     make([]models.BatchFailure, 0),
	}
	for i, o := range outcomes {
		if o.ok {
			result.Successful = append(result.Successful, unique[i])
			observability.IncrementBatchItem("submitted")
			continue
		}
		result.Failed = append(result.Failed, o.failure)
		observability.IncrementBatchItem(o.failure.Reason)
	}

	zap.L().Info("settlement batch processed",
		zap.String("actor", actor.Email),
		zap.Int("requested", len(ids)),
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *SettlementService) submitOne(ctx context.Context, actor models.Actor, id uuid.UUID) batchOutcome {
	if err := ctx.Err(); err != nil {
		return itemFailure(id, fmt.Errorf("batch request ended before submission: %w", err))
	}

	uetr := s.newUETR()
	t, err := s.engine.Apply(ctx, id, TransitionSubmit, actor, TransitionPayload{
		SwiftReference: uetr,
		Metadata:       map[string]any{"uetr": uetr},
	})
	if err != nil {
		return itemFailure(id, err)
	}

	// submitted_to_swift is committed; the handoff must not depend on the caller staying.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	defer cancel()
	err = s.network.Submit(submitCtx, instructionFor(t))
	switch {
	case err == nil:
		return batchOutcome{ok: true}
	case errors.Is(err, gateway.ErrRejected):
		s.recordRejection(ctx, id, uetr, err.Error())
		return batchOutcome{failure: models.BatchFailure{
			ID:      id,
			Reason:  models.KindSettlementRejected,
			Message: fmt.Errorf("%s: %w", err.Error(), models.ErrSettlementRejected).Error(),
		}}
	default:
		zap.L().Warn("settlement handoff unconfirmed; left for status polling",
			zap.String("transaction_id", id.String()),
			zap.String("uetr", uetr),
			zap.Error(err),
		)
		return batchOutcome{failure: models.BatchFailure{
			ID:      id,
			Reason:  models.ErrorKind(err),
			Message: "settlement handoff unconfirmed; the outcome will be resolved by status polling",
		}}
	}
}

func (s *SettlementService) recordRejection(ctx context.Context, id uuid.UUID, uetr, reason string) {
	_, err := s.engine.Apply(context.WithoutCancel(ctx), id, TransitionFail, SystemActor("settlement-network"), TransitionPayload{
		FailureReason: reason,
		Metadata:      map[string]any{"uetr": uetr, "stage": "submission"},
	})
	if err != nil {
		zap.L().Error("settlement rejection could not be recorded",
			zap.String("transaction_id", id.String()),
			zap.String("uetr", uetr),
			zap.Error(err),
		)
	}
}

func itemFailure(id uuid.UUID, err error) batchOutcome {
	return batchOutcome{failure: models.BatchFailure{ID: id, Reason: models.ErrorKind(err), Message: models.PublicMessage(err)}}
}

// RecordOutcome applies a final settlement outcome to a submitted transaction.
func (s *SettlementService) RecordOutcome(ctx context.Context, actor models.Actor, id uuid.UUID, outcome gateway.Outcome, reason string) (*models.Transaction, error) {
	var tr Transition
	switch outcome {
	case gateway.OutcomeCompleted:
		tr = TransitionComplete
	case gateway.OutcomeFailed:
		tr = TransitionFail
	default:
		return nil, models.NewValidationError("outcome", "outcome must be completed or failed")
	}

	t, err := s.engine.Apply(ctx, id, tr, actor, TransitionPayload{
		FailureReason: reason,
		Metadata:      map[string]any{"source": actor.Name},
	})
	if err != nil {
		return nil, err
	}
	observability.IncrementSettlementOutcome(actor.Name, string(outcome))
	return t, nil
}

// PollOutcomes asks the network for the status of every transaction awaiting settlement
// and records the final ones. It returns how many outcomes were recorded.
func (s *SettlementService) PollOutcomes(ctx context.Context, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = models.DefaultPageLimit
	}

	var awaiting []models.Transaction
	for offset := 0; ; offset += pageSize {
		page, err := s.store.Query(ctx, models.TransactionFilter{
			Statuses:    []string{domain.StatusSubmittedToSwift},
			OldestFirst: true,
			Limit:       pageSize,
			Offset:      offset,
		})
		if err != nil {
			return 0, fmt.Errorf("load awaiting settlement: %w", err)
		}
		awaiting = append(awaiting, page...)
		if len(page) < pageSize {
			break
		}
	}
	observability.SetAwaitingSettlement(len(awaiting))

	actor := SystemActor("settlement-worker")
	recorded := 0
	for _, t := range awaiting {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}

		outcome, reason, err := s.networkStatus(ctx, t)
		if err != nil {
			zap.L().Warn("settlement status lookup failed", zap.String("transaction_id", t.ID.String()), zap.Error(err))
			continue
		}
		if outcome == gateway.OutcomePending {
			continue
		}

		if _, err := s.RecordOutcome(ctx, actor, t.ID, outcome, reason); err != nil {
			// Another source may have recorded the outcome since the query.
			if errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrConflictingTransition) {
				continue
			}
			return recorded, err
		}
		recorded++
	}
	return recorded, nil
}

func (s *SettlementService) networkStatus(ctx context.Context, t models.Transaction) (gateway.Outcome, string, error) {
	if t.SwiftReference == nil {
		return gateway.OutcomeFailed, "no settlement reference recorded", nil
	}
	st, err := s.network.Status(ctx, *t.SwiftReference)
	if errors.Is(err, gateway.ErrUnknownReference) {
		return gateway.OutcomeFailed, "instruction not received by settlement network", nil
	}
	if err != nil {
		return "", "", err
	}
	return st.Outcome, st.Reason, nil
}

func instructionFor(t *models.Transaction) gateway.Instruction {
	in := gateway.Instruction{
		TransactionID:      t.ID,
		Money:              domain.NewMoney(t.Amount, t.Currency),
		BeneficiaryName:    t.RecipientName,
		BeneficiaryAccount: t.RecipientAccount,
		BeneficiaryBIC:     t.RecipientSwift,
		Reference:          t.Reference,
	}
	if t.SwiftReference != nil {
		in.UETR = *t.SwiftReference
	}
	return in
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
