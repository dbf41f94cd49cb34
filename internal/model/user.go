// Package model defines domain entities for the application.
package model

import "time"

// User is a swipeable profile together with its ledger and reputation state.
// Score, credit and counter fields are owned by the ledger and reputation
// packages and must not be written by handlers.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Name         string   `json:"name"`
	Age          int      `json:"age"`
	Bio          *string  `json:"bio,omitempty"`
	Title        *string  `json:"title,omitempty"`
	Image        string   `json:"image"`
	Distance     *int     `json:"distance,omitempty"`
	Tags         []string `json:"tags"`

	Score            float64   `json:"score"`
	LikesReceived    int       `json:"likes_received"`
	DislikesReceived int       `json:"dislikes_received"`
	CreditsRemaining int       `json:"credits_remaining"`
	LastCreditReset  time.Time `json:"last_credit_reset"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy so storage adapters can hand out values that
// callers are free to mutate.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Tags != nil {
		cp.Tags = append([]string(nil), u.Tags...)
	}
	if u.Bio != nil {
		bio := *u.Bio
		cp.Bio = &bio
	}
	if u.Title != nil {
		title := *u.Title
		cp.Title = &title
	}
	if u.Distance != nil {
		d := *u.Distance
		cp.Distance = &d
	}
	return &cp
}
