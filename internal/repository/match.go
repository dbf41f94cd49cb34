package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// GetMatch retrieves a match by ID.
func (r *Repository) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	query := `SELECT id, user1_id, user2_id, created_at FROM matches WHERE id = $1`
	return getMatch(ctx, r.pool, query, id)
}

// ListMatches returns the matches of userID with the counterpart profile,
// newest first.
func (r *Repository) ListMatches(ctx context.Context, userID string) ([]*model.MatchWithUser, error) {
	query := `
		SELECT m.id, m.user1_id, m.user2_id, m.created_at, ` + prefixed("u", userColumns) + `
		FROM matches m
		JOIN users u ON u.id = CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END
		WHERE m.user1_id = $1 OR m.user2_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify("list matches", err)
	}
	defer rows.Close()

	var out []*model.MatchWithUser
	for rows.Next() {
		var m model.Match
		var u model.User
		err := rows.Scan(
			&m.ID, &m.User1ID, &m.User2ID, &m.CreatedAt,
			&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Age, &u.Bio, &u.Title,
			&u.Image, &u.Distance, &u.Tags, &u.Score, &u.LikesReceived, &u.DislikesReceived,
			&u.CreditsRemaining, &u.LastCreditReset, &u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		u.LastCreditReset = u.LastCreditReset.UTC()
		u.CreatedAt = u.CreatedAt.UTC()
		out = append(out, &model.MatchWithUser{Match: &m, User: &u})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate matches", err)
	}
	return out, nil
}

func getMatch(ctx context.Context, q querier, query string, args ...any) (*model.Match, error) {
	var m model.Match
	err := q.QueryRow(ctx, query, args...).Scan(&m.ID, &m.User1ID, &m.User2ID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrMatchNotFound
		}
		return nil, classify("get match", err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func getMatchByPair(ctx context.Context, q querier, pair model.PairKey) (*model.Match, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM matches
		WHERE user_low = $1 AND user_high = $2
	`
	return getMatch(ctx, q, query, pair.Low, pair.High)
}

// insertMatch relies on the unique (user_low, user_high) index so that at
// most one match exists per unordered pair.
func insertMatch(ctx context.Context, q querier, m *model.Match) (*model.Match, bool, error) {
	query := `
		INSERT INTO matches (id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_low, user_high) DO NOTHING
	`

	tag, err := q.Exec(ctx, query, m.ID, m.User1ID, m.User2ID, m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, false, storage.ErrUserNotFound
		}
		return nil, false, classify("insert match", err)
	}
	if tag.RowsAffected() == 1 {
		cp := *m
		return &cp, true, nil
	}

	existing, err := getMatchByPair(ctx, q, m.Pair())
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
