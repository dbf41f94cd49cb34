package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

const userColumns = `id, username, password_hash, name, age, bio, title, image, distance, tags,
	score, likes_received, dislikes_received, credits_remaining, last_credit_reset, created_at`

// CreateUser inserts a new user into the database.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	tags := user.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Name,
		user.Age,
		user.Bio,
		user.Title,
		user.Image,
		user.Distance,
		tags,
		user.Score,
		user.LikesReceived,
		user.DislikesReceived,
		user.CreditsRemaining,
		user.LastCreditReset,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUsernameTaken
		}
		return classify("create user", err)
	}

	return nil
}

// GetUser retrieves a user by their ID.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// ListUsers returns every user ordered by score.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY score DESC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, classify("list users", err)
	}
	return collectUsers(rows)
}

// ListCandidates returns users that userID has not swiped yet.
func (r *Repository) ListCandidates(ctx context.Context, userID string, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM swipes s
			WHERE s.swiper_id = $1 AND s.swiped_id = u.id
		  )
		ORDER BY u.score DESC, u.id ASC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list candidates", err)
	}
	return collectUsers(rows)
}

func getUser(ctx context.Context, q querier, query string, args ...any) (*model.User, error) {
	user, err := scanUser(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, classify("get user", err)
	}
	return user, nil
}

func collectUsers(rows pgx.Rows) ([]*model.User, error) {
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate users", err)
	}
	return users, nil
}

// scanUser scans a row into a User model. pgx.Row and pgx.Rows both satisfy
// the Scan signature.
func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Name,
		&user.Age,
		&user.Bio,
		&user.Title,
		&user.Image,
		&user.Distance,
		&user.Tags,
		&user.Score,
		&user.LikesReceived,
		&user.DislikesReceived,
		&user.CreditsRemaining,
		&user.LastCreditReset,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.LastCreditReset = user.LastCreditReset.UTC()
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
