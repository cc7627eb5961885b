package quota

import (
	"context"
	"sync"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// MemoryLimiter meters scoring attempts per owner per calendar month in
// process memory. Suitable for single-instance and test deployments; the
// Redis limiter covers everything else.
type MemoryLimiter struct {
	allowance int

	mu    sync.Mutex
	month string
	used  map[uuid.UUID]int
}

// NewMemoryLimiter creates an in-memory limiter. An allowance of zero or
// less disables metering.
func NewMemoryLimiter(monthlyAllowance int) *MemoryLimiter {
	return &MemoryLimiter{
		allowance: monthlyAllowance,
		used:      make(map[uuid.UUID]int),
	}
}

// rollover resets counters when the calendar month changes. Callers hold mu.
func (l *MemoryLimiter) rollover() {
	month := time.Now().UTC().Format("2006-01")
	if l.month != month {
		l.month = month
		l.used = make(map[uuid.UUID]int)
	}
}

// CheckAllowance returns domain.ErrScoreLimitReached once the owner has used
// up this month's allowance.
func (l *MemoryLimiter) CheckAllowance(_ context.Context, owner domain.Owner) error {
	if l.allowance <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	if l.used[owner.ID] >= l.allowance {
		return domain.ErrScoreLimitReached
	}
	return nil
}

// RecordScore counts one scoring attempt against this month's allowance.
func (l *MemoryLimiter) RecordScore(_ context.Context, owner domain.Owner) error {
	if l.allowance <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	l.used[owner.ID]++
	return nil
}
