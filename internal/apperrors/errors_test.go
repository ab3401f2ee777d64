package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindChecks(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("bad input %d", 1)))
	assert.True(t, IsNotFound(NewNotFoundError("lead")))
	assert.True(t, IsConflict(NewConflictError("already settled")))
	assert.True(t, IsInsufficientFunds(&InsufficientFundsError{DepositID: "d1", Requested: 80}))
	assert.True(t, IsStore(NewStoreError("create lead", errors.New("disk full"))))

	assert.False(t, IsValidation(NewNotFoundError("lead")))
	assert.False(t, IsStore(errors.New("plain error")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorKindChecksThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", NewConflictError("lead is validated"))
	assert.True(t, IsConflict(wrapped))

	inner := errors.New("connection refused")
	store := NewStoreError("get deposit", inner)
	assert.True(t, errors.Is(store, inner))
}

func TestWithRetryRetriesOnlyStoreErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func() error {
		calls++
		return NewStoreError("op", errors.New("transient"))
	})
	assert.True(t, IsStore(err))
	assert.Equal(t, 3, calls)

	calls = 0
	err = WithRetry(context.Background(), 3, func() error {
		calls++
		return NewValidationError("permanent")
	})
	assert.True(t, IsValidation(err))
	assert.Equal(t, 1, calls)

	calls = 0
	err = WithRetry(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return NewStoreError("op", errors.New("transient"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WithRetry(ctx, 10, func() error {
		return NewStoreError("op", errors.New("transient"))
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
