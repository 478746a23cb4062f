package service

import (
	"context"
	"strings"
	"testing"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ApproveRecordsVerifier(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedTransaction(t, customer1, 0)
	svc := NewVerificationService(env.engine)

	out, err := svc.Verify(context.Background(), employeeA, seeded.ID, VerifyRequest{Approved: true, Notes: strRef("ok")})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusVerified, out.Status)
	assert.Equal(t, "a@bank.com", *out.VerifiedByEmail)
	assert.Equal(t, "Alice Adams", *out.VerifiedByName)
	assert.Equal(t, "Payments", *out.VerifierDepartment)
	assert.Equal(t, testNow, *out.VerifiedAt)
	assert.Equal(t, "ok", *out.VerifierNotes)
	assert.Nil(t, out.SubmittedToSwiftAt)
	assert.Equal(t, "100.00", out.Amount.StringFixed(2))
}

func TestVerify_RejectIsAVerificationAct(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedTransaction(t, customer1, 0)
	svc := NewVerificationService(env.engine)

	out, err := svc.Verify(context.Background(), employeeB, seeded.ID, VerifyRequest{Approved: false, Notes: strRef("  suspicious beneficiary  ")})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, out.Status)
	assert.Equal(t, "b@bank.com", *out.VerifiedByEmail)
	assert.Equal(t, "suspicious beneficiary", *out.VerifierNotes)
}

func TestVerify_SecondCallIsInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedTransaction(t, customer1, 0)
	svc := NewVerificationService(env.engine)
	req := VerifyRequest{Approved: true, Notes: strRef("ok")}

	_, err := svc.Verify(context.Background(), employeeA, seeded.ID, req)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), employeeA, seeded.ID, req)
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	stored, err := env.store.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow, *stored.VerifiedAt)
}

func TestVerify_InputChecks(t *testing.T) {
	cases := []struct {
		name  string
		actor models.Actor
		notes *string
		want  error
	}{
		{name: "customer_forbidden", actor: customer1, want: models.ErrForbidden},
		{name: "system_forbidden", actor: SystemActor("settlement-worker"), want: models.ErrForbidden},
		{name: "notes_too_long", actor: employeeA, notes: strRef(strings.Repeat("x", domain.MaxVerifierNotesLength+1)), want: models.ErrValidation},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			seeded := env.seedTransaction(t, customer1, 0)
			svc := NewVerificationService(env.engine)

			_, err := svc.Verify(context.Background(), tc.actor, seeded.ID, VerifyRequest{Approved: true, Notes: tc.notes})
			require.ErrorIs(t, err, tc.want)

			stored, err := env.store.Get(context.Background(), seeded.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, stored.Status)
		})
	}
}

func TestVerify_BlankNotesStoredAsNull(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedTransaction(t, customer1, 0)

	out, err := NewVerificationService(env.engine).Verify(context.Background(), employeeA, seeded.ID, VerifyRequest{Approved: true, Notes: strRef("   ")})
	require.NoError(t, err)
	assert.Nil(t, out.VerifierNotes)
}
