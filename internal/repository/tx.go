package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// WithTx runs fn inside a READ COMMITTED transaction. Users touched by fn
// are row-locked with SELECT ... FOR UPDATE, which serializes concurrent
// swipes on the same pair.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	pgTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin transaction", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = pgTx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &pgxTx{tx: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

var _ storage.Tx = (*pgxTx)(nil)

type pgxTx struct {
	tx pgx.Tx
}

// LockUsers loads and row-locks users in sorted id order.
func (t *pgxTx) LockUsers(ctx context.Context, ids ...string) (map[string]*model.User, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := t.tx.Query(ctx, query, uniq)
	if err != nil {
		return nil, classify("lock users", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	for _, id := range uniq {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("lock users %s: %w", id, storage.ErrUserNotFound)
		}
	}
	return out, nil
}

// SaveLedger persists the credit balance of a locked user.
func (t *pgxTx) SaveLedger(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET credits_remaining = $2, last_credit_reset = $3
		WHERE id = $1
	`
	return t.updateUser(ctx, "save ledger", query, u.ID, u.CreditsRemaining, u.LastCreditReset)
}

// SaveReputation persists the score and counters of a locked user.
func (t *pgxTx) SaveReputation(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET score = $2, likes_received = $3, dislikes_received = $4
		WHERE id = $1
	`
	return t.updateUser(ctx, "save reputation", query, u.ID, u.Score, u.LikesReceived, u.DislikesReceived)
}

func (t *pgxTx) updateUser(ctx context.Context, op, query string, args ...any) error {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

func (t *pgxTx) GetSwipe(ctx context.Context, swiperID, swipedID string) (*model.Swipe, error) {
	return getSwipe(ctx, t.tx, swiperID, swipedID)
}

func (t *pgxTx) InsertSwipe(ctx context.Context, s *model.Swipe) (*model.Swipe, bool, error) {
	return insertSwipe(ctx, t.tx, s)
}

func (t *pgxTx) GetMatchByPair(ctx context.Context, pair model.PairKey) (*model.Match, error) {
	return getMatchByPair(ctx, t.tx, pair)
}

func (t *pgxTx) InsertMatch(ctx context.Context, m *model.Match) (*model.Match, bool, error) {
	return insertMatch(ctx, t.tx, m)
}
