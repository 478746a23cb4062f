package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: NewValidationError("ids", "at least one id is required"), want: KindValidation},
		{err: fmt.Errorf("verify: %w", ErrInvalidTransition), want: KindInvalidTransition},
		{err: ErrConflictingTransition, want: KindConflictingTransition},
		{err: ErrNotFound, want: KindNotFound},
		{err: ErrNotYetVerified, want: KindNotYetVerified},
		{err: ErrForbidden, want: KindAuthorization},
		{err: fmt.Errorf("get: %w", ErrStoreUnavailable), want: KindStoreUnavailable},
		{err: fmt.Errorf("apply: %w", context.Canceled), want: KindStoreUnavailable},
		{err: context.DeadlineExceeded, want: KindStoreUnavailable},
		{err: ErrSettlementRejected, want: KindSettlementRejected},
		{err: errors.New("boom"), want: KindInternal},
		{err: nil, want: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err))
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("notes", "notes must be at most 1000 characters")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: notes must be at most 1000 characters", err.Error())
}

func TestPublicMessageHidesStoreDetails(t *testing.T) {
	dial := errors.New("failed to connect to `user=remit database=remit`: dial tcp 10.0.3.7:5432: connect: connection refused")
	err := fmt.Errorf("get transaction: %w: %w", ErrStoreUnavailable, dial)

	msg := PublicMessage(err)
	assert.NotContains(t, msg, "10.0.3.7")
	assert.NotContains(t, msg, "user=remit")
	assert.Equal(t, "unexpected server error", PublicMessage(errors.New("nil pointer")))
	assert.Equal(t, "cannot verify: invalid transition", PublicMessage(fmt.Errorf("cannot verify: %w", ErrInvalidTransition)))
	assert.Empty(t, PublicMessage(nil))
}
