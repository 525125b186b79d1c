package pipeline

import (
	"math"
	"time"
)

// Budget is an absolute deadline derived from a duration. The zero
// value never expires. Budgets are queried, never mutated: the
// orchestrator holds one for the whole run and one per event, and
// every inner wait clamps against them.
type Budget struct {
	deadline time.Time
}

// NewBudget starts a budget of d counted from now. d <= 0 yields an
// unlimited budget.
func NewBudget(d time.Duration) Budget {
	if d <= 0 {
		return Budget{}
	}
	return Budget{deadline: time.Now().Add(d)}
}

func (b Budget) Unlimited() bool {
	return b.deadline.IsZero()
}

func (b Budget) Expired() bool {
	return !b.deadline.IsZero() && !time.Now().Before(b.deadline)
}

// Remaining reports the time left, 0 once expired.
func (b Budget) Remaining() time.Duration {
	if b.deadline.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	if left := time.Until(b.deadline); left > 0 {
		return left
	}
	return 0
}

// Clamp bounds a wait to what the budget still allows.
func (b Budget) Clamp(d time.Duration) time.Duration {
	if left := b.Remaining(); left < d {
		return left
	}
	return d
}
