package dto

import (
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
)

// RegisterUserRequest represents the request body for registering a user.
type RegisterUserRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Bio      *string  `json:"bio,omitempty"`
	Title    *string  `json:"title,omitempty"`
	Image    string   `json:"image"`
	Distance *int     `json:"distance,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// UserResponse represents a user profile in API responses.
type UserResponse struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Bio              *string   `json:"bio,omitempty"`
	Title            *string   `json:"title,omitempty"`
	Image            string    `json:"image"`
	Distance         *int      `json:"distance,omitempty"`
	Tags             []string  `json:"tags"`
	Score            float64   `json:"score"`
	LikesReceived    int       `json:"likes_received"`
	DislikesReceived int       `json:"dislikes_received"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreditsResponse reports a user's remaining credits.
type CreditsResponse struct {
	Credits int `json:"credits"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) UserResponse {
	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	return UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Name:             u.Name,
		Age:              u.Age,
		Bio:              u.Bio,
		Title:            u.Title,
		Image:            u.Image,
		Distance:         u.Distance,
		Tags:             tags,
		Score:            u.Score,
		LikesReceived:    u.LikesReceived,
		DislikesReceived: u.DislikesReceived,
		CreatedAt:        u.CreatedAt,
	}
}

// ToUserResponsePtr is ToUserResponse for optional users.
func ToUserResponsePtr(u *model.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := ToUserResponse(u)
	return &resp
}
