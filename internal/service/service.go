// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// Service errors. Storage and ledger sentinels are re-exported so callers
// only need this package for errors.Is checks.
var (
	ErrUserNotFound        = storage.ErrUserNotFound
	ErrMatchNotFound       = storage.ErrMatchNotFound
	ErrUsernameTaken       = storage.ErrUsernameTaken
	ErrUnavailable         = storage.ErrUnavailable
	ErrInsufficientCredits = ledger.ErrInsufficientCredits

	ErrInvalidSwipe    = errors.New("invalid swipe")
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrInvalidUsername = errors.New("username must be 3-32 letters, digits or underscores")
	ErrInvalidPassword = errors.New("password must be 8-128 characters")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidAge      = errors.New("age must be between 18 and 120")
	ErrInvalidImage    = errors.New("image must be an http or https URL")
	ErrInvalidProfile  = errors.New("invalid profile field")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrNotMatchMember  = errors.New("user is not a member of the match")
)

// DefaultStorageTimeout bounds a single service operation's storage work.
const DefaultStorageTimeout = 2 * time.Second

// newID returns a new ULID string.
func newID() string {
	return ulid.Make().String()
}

// withTimeout bounds ctx by d, or DefaultStorageTimeout when d is not positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStorageTimeout
	}
	return context.WithTimeout(ctx, d)
}

// normalize makes a deadline or cancellation that escaped the storage layer
// carry ErrUnavailable.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return storage.Unavailable(op, err)
	}
	return err
}

// IsValidation reports whether err is an input validation error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidSwipe, ErrInvalidLimit, ErrInvalidUsername, ErrInvalidPassword,
		ErrInvalidName, ErrInvalidAge, ErrInvalidImage, ErrInvalidProfile, ErrInvalidMessage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func invalid(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
