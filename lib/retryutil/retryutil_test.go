package retryutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient %d", calls)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("always broken")
	})
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestDoPermanentStopsEarly(t *testing.T) {
	calls := 0
	wrapped := fmt.Errorf("bad credentials")
	err := Do(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return Permanent(wrapped)
	})
	require.ErrorIs(t, err, wrapped)
	require.Equal(t, 1, calls)
}

func TestDoValue(t *testing.T) {
	calls := 0
	count, err := DoValue(context.Background(), 3, time.Millisecond, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, fmt.Errorf("not ready")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, count)
}

func TestDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 10, 50*time.Millisecond, func() error {
		calls++
		cancel()
		return fmt.Errorf("transient")
	})
	require.Error(t, err)
	require.LessOrEqual(t, calls, 2)
}
