package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExpoJitter_Caps(t *testing.T) {
	b := ExpoJitter{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, b.Next(0))
	assert.Equal(t, 40*time.Millisecond, b.Next(2))
	assert.Equal(t, 50*time.Millisecond, b.Next(10))
	assert.Equal(t, 10*time.Millisecond, b.Next(-3))
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, Policy{Name: "t", Attempts: 5, Backoff: ExpoJitter{Base: time.Millisecond}})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return context.Canceled
	}, DefaultStartupPolicy("db", zap.NewNop()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error { return errors.New("boom") },
		Policy{Attempts: 3, Backoff: ExpoJitter{Base: time.Second}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_PermanentStopsAndUnwraps(t *testing.T) {
	bad := errors.New("bad dsn")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(bad)
	}, Policy{Attempts: 5, Backoff: ExpoJitter{Base: time.Millisecond}})
	assert.Equal(t, bad, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsPermanent(err))
	assert.True(t, IsPermanent(Permanent(bad)))
	assert.NoError(t, Permanent(nil))
}

func TestDo_ExhaustCallback(t *testing.T) {
	var exhausted error
	var seen []int
	err := Do(context.Background(), func() error { return errors.New("down") }, Policy{
		Attempts:  3,
		OnAttempt: func(i int, _ error) { seen = append(seen, i) },
		OnExhaust: func(err error) { exhausted = err },
	})
	require.Error(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, err, exhausted)
}
