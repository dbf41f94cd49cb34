package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// Username validation regex: 3-32 chars, letters, digits and underscore.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 100
	maxBioLength      = 500
	maxTitleLength    = 100
	maxImageLength    = 2048
	maxTags           = 20
	maxTagLength      = 32
	minAge            = 18
	maxAge            = 120
)

// PasswordHasher hashes a plaintext password.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// UserService handles profile registration and reads.
type UserService struct {
	store   storage.Store
	ledger  *ledger.Ledger
	rules   reputation.Rules
	hasher  PasswordHasher
	clock   clock.Clock
	logger  *slog.Logger
	timeout time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(store storage.Store, l *ledger.Ledger, rules reputation.Rules, hasher PasswordHasher, clk clock.Clock, logger *slog.Logger, timeout time.Duration) *UserService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:   store,
		ledger:  l,
		rules:   rules,
		hasher:  hasher,
		clock:   clk,
		logger:  logger.With("component", "user.service"),
		timeout: timeout,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Age      int
	Bio      *string
	Title    *string
	Image    string
	Distance *int
	Tags     []string
}

// Register validates input and creates a user with a fresh score and a full
// credit allowance.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		ID:               newID(),
		Username:         input.Username,
		PasswordHash:     hash,
		Name:             strings.TrimSpace(input.Name),
		Age:              input.Age,
		Bio:              input.Bio,
		Title:            input.Title,
		Image:            input.Image,
		Distance:         input.Distance,
		Tags:             normalizeTags(input.Tags),
		Score:            s.rules.Initial,
		CreditsRemaining: s.ledger.Allowance(),
		LastCreditReset:  now,
		CreatedAt:        now,
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, normalize("create user", err)
	}

	s.logger.Info("user_registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, normalize("get user", err)
	}
	return user, nil
}

// List returns every user ordered by score.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, normalize("list users", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// Credits returns the user's balance after any due reset.
func (s *UserService) Credits(ctx context.Context, id string) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	credits, err := s.ledger.Remaining(ctx, id)
	if err != nil {
		return 0, normalize("get credits", err)
	}
	return credits, nil
}

func validateRegistration(input RegisterInput) error {
	if !usernameRegex.MatchString(input.Username) {
		return ErrInvalidUsername
	}
	if n := len(input.Password); n < minPasswordLength || n > maxPasswordLength {
		return ErrInvalidPassword
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	if input.Age < minAge || input.Age > maxAge {
		return ErrInvalidAge
	}
	if err := validateImage(input.Image); err != nil {
		return err
	}
	if input.Bio != nil && len(*input.Bio) > maxBioLength {
		return invalid(ErrInvalidProfile, "bio must be at most %d characters", maxBioLength)
	}
	if input.Title != nil && len(*input.Title) > maxTitleLength {
		return invalid(ErrInvalidProfile, "title must be at most %d characters", maxTitleLength)
	}
	if input.Distance != nil && *input.Distance < 0 {
		return invalid(ErrInvalidProfile, "distance must not be negative")
	}
	if len(input.Tags) > maxTags {
		return invalid(ErrInvalidProfile, "at most %d tags", maxTags)
	}
	for _, tag := range input.Tags {
		if t := strings.TrimSpace(tag); t == "" || len(t) > maxTagLength {
			return invalid(ErrInvalidProfile, "tags must be 1-%d characters", maxTagLength)
		}
	}
	return nil
}

func validateImage(image string) error {
	if image == "" || len(image) > maxImageLength {
		return ErrInvalidImage
	}
	parsed, err := url.Parse(image)
	if err != nil {
		return ErrInvalidImage
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidImage
	}
	if parsed.Host == "" {
		return ErrInvalidImage
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, strings.TrimSpace(tag))
	}
	return out
}
