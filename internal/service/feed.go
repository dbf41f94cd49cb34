package service

import (
	"context"
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// MaxCandidateLimit caps a single feed page.
const MaxCandidateLimit = 100

// FeedService ranks swipe candidates.
type FeedService struct {
	store   storage.Reader
	timeout time.Duration
}

// NewFeedService creates a new FeedService.
func NewFeedService(store storage.Reader, timeout time.Duration) *FeedService {
	return &FeedService{store: store, timeout: timeout}
}

// Candidates returns the users userID has not swiped yet, highest score
// first with ties broken by id. limit 0 returns every candidate.
func (s *FeedService) Candidates(ctx context.Context, userID string, limit int) ([]*model.User, error) {
	if limit < 0 || limit > MaxCandidateLimit {
		return nil, invalid(ErrInvalidLimit, "limit must be between 0 and %d", MaxCandidateLimit)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, normalize("get user", err)
	}

	users, err := s.store.ListCandidates(ctx, userID, limit)
	if err != nil {
		return nil, normalize("list candidates", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}
