// Package storage defines the persistence contract of the matching core.
//
// Two adapters implement Store: an in-memory adapter (Memory) used by tests
// and local development, and the Postgres adapter in internal/repository.
// Business rules live in the ledger, reputation and service packages and
// never in an adapter.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/enigmatch/enigmatch/internal/model"
)

// Common storage errors.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrSwipeNotFound = errors.New("swipe not found")
	ErrMatchNotFound = errors.New("match not found")

	// ErrUnavailable marks transient failures (timeouts, lost connections).
	// Callers may retry the whole operation with the same inputs.
	ErrUnavailable = errors.New("storage unavailable")
)

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// Reader holds the read-only queries. Implementations must return values the
// caller may mutate freely.
type Reader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	// ListUsers returns all users ordered by score descending, then id.
	ListUsers(ctx context.Context) ([]*model.User, error)
	// ListCandidates returns users other than userID that userID has not
	// swiped, ordered by score descending, then id. limit <= 0 means no limit.
	ListCandidates(ctx context.Context, userID string, limit int) ([]*model.User, error)
	GetSwipe(ctx context.Context, swiperID, swipedID string) (*model.Swipe, error)
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	// ListMatches returns the matches of userID with the counterpart profile,
	// newest first.
	ListMatches(ctx context.Context, userID string) ([]*model.MatchWithUser, error)
	// ListMessages returns the messages of a match, oldest first.
	ListMessages(ctx context.Context, matchID string) ([]*model.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// SwipeStore is the durable, idempotent record of swipes.
type SwipeStore interface {
	GetSwipe(ctx context.Context, swiperID, swipedID string) (*model.Swipe, error)
	// InsertSwipe stores s unless a swipe already exists for its ordered
	// pair, in which case the existing swipe is returned with created=false.
	InsertSwipe(ctx context.Context, s *model.Swipe) (stored *model.Swipe, created bool, err error)
}

// Tx is a unit of work. Writes become visible to readers only when the
// function passed to Store.WithTx returns nil.
type Tx interface {
	SwipeStore

	// LockUsers loads and locks the given users until the transaction ends.
	// Locks are taken in sorted id order so both members of a pair always
	// contend in the same order. Returns ErrUserNotFound if any id is unknown.
	LockUsers(ctx context.Context, ids ...string) (map[string]*model.User, error)
	// SaveLedger persists CreditsRemaining and LastCreditReset of a locked user.
	SaveLedger(ctx context.Context, u *model.User) error
	// SaveReputation persists Score, LikesReceived and DislikesReceived of a
	// locked user.
	SaveReputation(ctx context.Context, u *model.User) error

	GetMatchByPair(ctx context.Context, pair model.PairKey) (*model.Match, error)
	// InsertMatch stores m unless a match already exists for its unordered
	// pair, in which case the existing match is returned with created=false.
	InsertMatch(ctx context.Context, m *model.Match) (stored *model.Match, created bool, err error)
}

// Store is the full storage capability set.
type Store interface {
	Reader

	CreateUser(ctx context.Context, u *model.User) error
	CreateMessage(ctx context.Context, msg *model.Message) error
	// MarkRead flags every message of matchID addressed to readerID as read
	// and returns how many changed.
	MarkRead(ctx context.Context, matchID, readerID string) (int, error)

	// WithTx runs fn in a transaction. Returning an error rolls back every
	// write made through tx.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
	Close()
}
