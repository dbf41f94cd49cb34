package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// GetSwipe retrieves the swipe for an ordered pair.
func (r *Repository) GetSwipe(ctx context.Context, swiperID, swipedID string) (*model.Swipe, error) {
	return getSwipe(ctx, r.pool, swiperID, swipedID)
}

func getSwipe(ctx context.Context, q querier, swiperID, swipedID string) (*model.Swipe, error) {
	query := `
		SELECT id, swiper_id, swiped_id, liked, created_at
		FROM swipes
		WHERE swiper_id = $1 AND swiped_id = $2
	`

	var s model.Swipe
	err := q.QueryRow(ctx, query, swiperID, swipedID).Scan(
		&s.ID,
		&s.SwiperID,
		&s.SwipedID,
		&s.Liked,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrSwipeNotFound
		}
		return nil, classify("get swipe", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// insertSwipe inserts with idempotency via ON CONFLICT DO NOTHING on the
// (swiper_id, swiped_id) primary key.
func insertSwipe(ctx context.Context, q querier, s *model.Swipe) (*model.Swipe, bool, error) {
	query := `
		INSERT INTO swipes (id, swiper_id, swiped_id, liked, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (swiper_id, swiped_id) DO NOTHING
	`

	tag, err := q.Exec(ctx, query, s.ID, s.SwiperID, s.SwipedID, s.Liked, s.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, false, storage.ErrUserNotFound
		}
		return nil, false, classify("insert swipe", err)
	}
	if tag.RowsAffected() == 1 {
		cp := *s
		return &cp, true, nil
	}

	existing, err := getSwipe(ctx, q, s.SwiperID, s.SwipedID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
