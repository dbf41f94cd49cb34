// Package reputation maintains the popularity score that ranks the feed.
package reputation

import (
	"context"
	"fmt"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// Default scoring rules.
const (
	DefaultInitialScore = 100.0
	DefaultLikeDelta    = 2.0
	DefaultDislikeDelta = 1.0
	DefaultFloor        = 10.0
)

// Rules describes how received swipes move a score. There is no ceiling.
type Rules struct {
	Initial      float64
	LikeDelta    float64
	DislikeDelta float64
	Floor        float64
}

// DefaultRules returns the standard scoring rules.
func DefaultRules() Rules {
	return Rules{
		Initial:      DefaultInitialScore,
		LikeDelta:    DefaultLikeDelta,
		DislikeDelta: DefaultDislikeDelta,
		Floor:        DefaultFloor,
	}
}

// Liked returns score after a received like.
func (r Rules) Liked(score float64) float64 {
	return score + r.LikeDelta
}

// Disliked returns score after a received dislike, clamped at the floor.
func (r Rules) Disliked(score float64) float64 {
	next := score - r.DislikeDelta
	if next < r.Floor {
		return r.Floor
	}
	return next
}

// Reputation applies Rules to locked users inside a transaction.
type Reputation struct {
	rules Rules
}

// New creates a Reputation with the given rules.
func New(rules Rules) *Reputation {
	return &Reputation{rules: rules}
}

// Rules returns the active scoring rules.
func (r *Reputation) Rules() Rules {
	return r.rules
}

// OnLiked credits u with a received like and persists it through tx.
func (r *Reputation) OnLiked(ctx context.Context, tx storage.Tx, u *model.User) (float64, error) {
	u.Score = r.rules.Liked(u.Score)
	u.LikesReceived++
	if err := tx.SaveReputation(ctx, u); err != nil {
		return 0, fmt.Errorf("save like: %w", err)
	}
	return u.Score, nil
}

// OnDisliked debits u with a received dislike and persists it through tx.
func (r *Reputation) OnDisliked(ctx context.Context, tx storage.Tx, u *model.User) (float64, error) {
	u.Score = r.rules.Disliked(u.Score)
	u.DislikesReceived++
	if err := tx.SaveReputation(ctx, u); err != nil {
		return 0, fmt.Errorf("save dislike: %w", err)
	}
	return u.Score, nil
}
