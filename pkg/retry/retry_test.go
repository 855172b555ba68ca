package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(5), func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns the last error after exhausting attempts", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			calls++
			return errors.New("still down")
		})

		require.Error(t, err)
		assert.Equal(t, "still down", err.Error())
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		err := Do(ctx, fastConfig(10), func() error {
			calls++
			cancel()
			return errors.New("down")
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
