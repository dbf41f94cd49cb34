// Package ledger implements the daily credit allowance that gates likes.
//
// A user's balance is reset to the allowance once ResetInterval has elapsed
// since the last reset. Every read and every spend applies a due reset first.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// ErrInsufficientCredits is returned when a spend finds a zero balance.
var ErrInsufficientCredits = errors.New("insufficient credits")

// DefaultResetInterval is the time between allowance resets.
const DefaultResetInterval = 24 * time.Hour

// Ledger applies the credit rules against a Store.
type Ledger struct {
	store         storage.Store
	clock         clock.Clock
	allowance     int
	resetInterval time.Duration
}

// New creates a Ledger. A non-positive resetInterval falls back to
// DefaultResetInterval.
func New(store storage.Store, clk clock.Clock, allowance int, resetInterval time.Duration) *Ledger {
	if clk == nil {
		clk = clock.System{}
	}
	if resetInterval <= 0 {
		resetInterval = DefaultResetInterval
	}
	return &Ledger{
		store:         store,
		clock:         clk,
		allowance:     allowance,
		resetInterval: resetInterval,
	}
}

// Allowance returns the configured daily allowance.
func (l *Ledger) Allowance() int {
	return l.allowance
}

// ResetIfDue refills u's balance when the reset interval has elapsed.
// Reports whether u changed.
func (l *Ledger) ResetIfDue(u *model.User, now time.Time) bool {
	if now.Sub(u.LastCreditReset) < l.resetInterval {
		return false
	}
	u.CreditsRemaining = l.allowance
	u.LastCreditReset = now
	return true
}

// Remaining returns userID's balance after applying any due reset. A reset
// is persisted so that LastCreditReset reflects the observed refill.
func (l *Ledger) Remaining(ctx context.Context, userID string) (int, error) {
	var remaining int

	err := l.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		users, err := tx.LockUsers(ctx, userID)
		if err != nil {
			return err
		}
		u := users[userID]

		if l.ResetIfDue(u, l.clock.Now()) {
			if err := tx.SaveLedger(ctx, u); err != nil {
				return fmt.Errorf("save credit reset: %w", err)
			}
		}
		remaining = u.CreditsRemaining
		return nil
	})
	if err != nil {
		return 0, err
	}

	return remaining, nil
}

// Spend takes one credit from u, which must be locked by tx. u is updated in
// place and the new balance is returned.
func (l *Ledger) Spend(ctx context.Context, tx storage.Tx, u *model.User) (int, error) {
	l.ResetIfDue(u, l.clock.Now())

	// The caller's transaction is rolled back on this error, so a reset
	// applied above is not persisted either.
	if u.CreditsRemaining <= 0 {
		return 0, ErrInsufficientCredits
	}

	u.CreditsRemaining--
	if err := tx.SaveLedger(ctx, u); err != nil {
		return 0, fmt.Errorf("save credit spend: %w", err)
	}

	return u.CreditsRemaining, nil
}

// Peek returns u's balance as it would be after a due reset, updating u in
// place. Callers inside a transaction persist the change themselves.
func (l *Ledger) Peek(u *model.User) (balance int, changed bool) {
	changed = l.ResetIfDue(u, l.clock.Now())
	return u.CreditsRemaining, changed
}
