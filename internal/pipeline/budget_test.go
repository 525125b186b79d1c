package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBudgetZeroValueIsUnlimited(t *testing.T) {
	var b Budget
	require.True(t, b.Unlimited())
	require.False(t, b.Expired())
	require.Equal(t, time.Hour, b.Clamp(time.Hour))
	require.Greater(t, b.Remaining(), 1000*time.Hour)
}

func TestBudgetNonPositiveDurationIsUnlimited(t *testing.T) {
	require.True(t, NewBudget(0).Unlimited())
	require.True(t, NewBudget(-time.Second).Unlimited())
}

func TestBudgetClampsWaits(t *testing.T) {
	b := NewBudget(50 * time.Millisecond)
	require.False(t, b.Expired())
	require.LessOrEqual(t, b.Clamp(time.Hour), 50*time.Millisecond)
	require.Equal(t, time.Millisecond, b.Clamp(time.Millisecond))
}

func TestBudgetExpires(t *testing.T) {
	b := NewBudget(30 * time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	require.True(t, b.Expired())
	require.Equal(t, time.Duration(0), b.Remaining())
	require.Equal(t, time.Duration(0), b.Clamp(time.Minute))
}
