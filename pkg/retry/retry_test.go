package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/c360/ticketfront/errors"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Fixed(3, 5*time.Millisecond), func() error {
		attempts++
		if attempts < 3 {
			return errors.ErrConnectionLost
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_AllAttemptsFail(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Fixed(3, time.Millisecond), func() error {
		attempts++
		return stderrors.New("backend busy")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsOnInvalid(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Fixed(5, time.Millisecond), func() error {
		attempts++
		return errors.WrapInvalid(errors.ErrInvalidConfig, "test", "Do", "check")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, Fixed(10, 100*time.Millisecond), func() error {
		attempts++
		return errors.ErrConnectionLost
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, attempts, 10)
}

func TestDo_RejectsBadPolicy(t *testing.T) {
	err := Do(context.Background(), Config{MaxAttempts: 2, InitialDelay: time.Second, MaxDelay: time.Millisecond}, func() error {
		return nil
	})
	assert.True(t, errors.IsInvalid(err))

	err = Do(context.Background(), Config{InitialDelay: -1}, func() error { return nil })
	assert.True(t, errors.IsInvalid(err))
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), Fixed(3, time.Millisecond), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.ErrBackendUnavailable
		}
		return "ready", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 2, calls)
}

func TestWait(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Wait(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, 0), context.Canceled)
	assert.NoError(t, Wait(context.Background(), 0))
}
