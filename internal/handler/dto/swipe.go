package dto

import (
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
)

// SwipeRequest represents the request body for submitting a swipe.
// Liked is a pointer so a missing field is distinguishable from false.
type SwipeRequest struct {
	SwiperID string `json:"swiper_id"`
	SwipedID string `json:"swiped_id"`
	Liked    *bool  `json:"liked"`
}

// SwipeDTO represents a stored swipe.
type SwipeDTO struct {
	ID        string    `json:"id"`
	SwiperID  string    `json:"swiper_id"`
	SwipedID  string    `json:"swiped_id"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
}

// SwipeResponse is the outcome of a submitted swipe.
type SwipeResponse struct {
	Swipe            SwipeDTO      `json:"swipe"`
	IsMatch          bool          `json:"is_match"`
	Match            *MatchDTO     `json:"match,omitempty"`
	MatchedUser      *UserResponse `json:"matched_user,omitempty"`
	CreditsRemaining int           `json:"credits_remaining"`
	Duplicate        bool          `json:"duplicate"`
}

// ToSwipeDTO converts a Swipe model.
func ToSwipeDTO(s *model.Swipe) SwipeDTO {
	return SwipeDTO{
		ID:        s.ID,
		SwiperID:  s.SwiperID,
		SwipedID:  s.SwipedID,
		Liked:     s.Liked,
		CreatedAt: s.CreatedAt,
	}
}
