package dto

import (
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
)

// MatchDTO represents a match.
type MatchDTO struct {
	ID        string    `json:"id"`
	User1ID   string    `json:"user1_id"`
	User2ID   string    `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchResponse is a match together with the viewer's counterpart.
type MatchResponse struct {
	Match MatchDTO     `json:"match"`
	User  UserResponse `json:"user"`
}

// ToMatchDTO converts a Match model.
func ToMatchDTO(m *model.Match) MatchDTO {
	return MatchDTO{
		ID:        m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		CreatedAt: m.CreatedAt,
	}
}

// ToMatchDTOPtr is ToMatchDTO for optional matches.
func ToMatchDTOPtr(m *model.Match) *MatchDTO {
	if m == nil {
		return nil
	}
	d := ToMatchDTO(m)
	return &d
}

// ToMatchResponse converts a MatchWithUser model.
func ToMatchResponse(m *model.MatchWithUser) MatchResponse {
	return MatchResponse{
		Match: ToMatchDTO(m.Match),
		User:  ToUserResponse(m.User),
	}
}
