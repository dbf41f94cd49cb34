package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/enigmatch/enigmatch/internal/auth"
	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/events"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/service"
	"github.com/enigmatch/enigmatch/internal/storage"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db", "pgx5://u:p@localhost:5432/db"},
		{"postgresql://localhost/db?sslmode=disable", "pgx5://localhost/db?sslmode=disable"},
		{"pgx5://localhost/db", "pgx5://localhost/db"},
	}

	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"seed"},
		{"events", "tail"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Errorf("find %v: %v", path, err)
			continue
		}
		if cmd.Name() != path[len(path)-1] {
			t.Errorf("find %v resolved to %q", path, cmd.Name())
		}
	}
}

func newSeedService(store storage.Store) *service.UserService {
	clk := clock.NewFake(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	rules := reputation.Rules{Initial: 100, LikeDelta: 2, DislikeDelta: 1, Floor: 10}
	hasher := auth.NewHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewUserService(store, ledger.New(store, clk, 10, 24*time.Hour), rules, hasher, clk, logger, time.Second)
}

func TestSeedUsers_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	users := newSeedService(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := seedUsers(ctx, users, logger)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if first.Created != len(seedProfiles) || first.Skipped != 0 {
		t.Fatalf("first seed = %+v, want %d created", first, len(seedProfiles))
	}

	second, err := seedUsers(ctx, users, logger)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if second.Created != 0 || second.Skipped != len(seedProfiles) {
		t.Fatalf("second seed = %+v, want all skipped", second)
	}

	all, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(all) != len(seedProfiles) {
		t.Fatalf("expected %d users, got %d", len(seedProfiles), len(all))
	}
	for _, u := range all {
		if u.Score != 100 || u.CreditsRemaining != 10 {
			t.Errorf("%s: score=%v credits=%d", u.Username, u.Score, u.CreditsRemaining)
		}
		ok, err := auth.VerifyPassword(seedPassword, u.PasswordHash)
		if err != nil || !ok {
			t.Errorf("%s: seed password does not verify (err=%v)", u.Username, err)
		}
	}
}

func TestPrintEvents(t *testing.T) {
	var buf bytes.Buffer
	h := printEvents(&buf)

	batch := []events.MatchCreated{
		events.NewMatchCreated("m1", "a", "b", time.UnixMilli(1000)),
		events.NewMatchCreated("m2", "c", "d", time.UnixMilli(2000)),
	}
	if err := h(context.Background(), batch); err != nil {
		t.Fatalf("handler: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"match_id":"m1"`) || !strings.Contains(lines[1], `"type":"match.created"`) {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
