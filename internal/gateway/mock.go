package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
)

// MockNetwork simulates the settlement network. Instructions are accepted after a short
// latency, rejected at RejectRate, and settle after SettleAfter with FailRate of them failing.
type MockNetwork struct {
	RejectRate  float64
	FailRate    float64
	Latency     time.Duration
	SettleAfter time.Duration

	mu        sync.Mutex
	rng       *rand.Rand
	submitted map[string]mockEntry
	now       func() time.Time
}

type mockEntry struct {
	submittedAt time.Time
	outcome     Outcome
	reason      string
}

// NewMockNetwork creates a MockNetwork with default settings.
func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		RejectRate:  0.05,
		FailRate:    0.1,
		Latency:     200 * time.Millisecond,
		SettleAfter: 30 * time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		submitted:   make(map[string]mockEntry),
		now:         time.Now,
	}
}

// WithSeed makes the simulated outcomes reproducible.
func (g *MockNetwork) WithSeed(seed int64) *MockNetwork {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng = rand.New(rand.NewSource(seed))
	return g
}

// WithClock replaces the time source used to decide when instructions settle.
func (g *MockNetwork) WithClock(now func() time.Time) *MockNetwork {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

func (g *MockNetwork) Submit(ctx context.Context, in Instruction) error {
	if g.Latency > 0 {
		select {
		case <-time.After(g.Latency):
		case <-ctx.Done():
			return fmt.Errorf("settlement submit canceled: %w", ctx.Err())
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !domain.IsValidCurrency(in.Money.Currency) {
		return fmt.Errorf("%s not settled by this network: %w", in.Money, ErrRejected)
	}
	if _, dup := g.submitted[in.UETR]; dup {
		return fmt.Errorf("duplicate UETR %s: %w", in.UETR, ErrRejected)
	}
	if g.rng.Float64() < g.RejectRate {
		return fmt.Errorf("beneficiary bank %s unreachable: %w", in.BeneficiaryBIC, ErrRejected)
	}

	entry := mockEntry{submittedAt: g.now(), outcome: OutcomeCompleted}
	if g.rng.Float64() < g.FailRate {
		entry.outcome = OutcomeFailed
		entry.reason = "beneficiary account closed"
	}
	g.submitted[in.UETR] = entry
	return nil
}

func (g *MockNetwork) Status(ctx context.Context, uetr string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.submitted[uetr]
	if !ok {
		return Status{}, fmt.Errorf("%s: %w", uetr, ErrUnknownReference)
	}
	if g.now().Sub(entry.submittedAt) < g.SettleAfter {
		return Status{Outcome: OutcomePending}, nil
	}
	return Status{Outcome: entry.outcome, Reason: entry.reason}, nil
}
