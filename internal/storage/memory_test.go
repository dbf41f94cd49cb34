package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
)

func newMemoryWithUsers(t *testing.T, scores map[string]float64) *Memory {
	t.Helper()

	m := NewMemory()
	now := time.Now().UTC()
	for id, score := range scores {
		u := &model.User{
			ID:               id,
			Username:         "user_" + id,
			Name:             id,
			Age:              30,
			Image:            "https://example.com/" + id + ".jpg",
			Score:            score,
			CreditsRemaining: 10,
			LastCreditReset:  now,
			CreatedAt:        now,
		}
		if err := m.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("create user %s: %v", id, err)
		}
	}
	return m
}

func TestMemory_CreateUser_DuplicateUsername(t *testing.T) {
	m := newMemoryWithUsers(t, map[string]float64{"a": 100})

	dup := &model.User{ID: "b", Username: "user_a"}
	if err := m.CreateUser(context.Background(), dup); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestMemory_InsertSwipe_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWithUsers(t, map[string]float64{"a": 100, "b": 100})

	first := &model.Swipe{ID: "s1", SwiperID: "a", SwipedID: "b", Liked: true, CreatedAt: time.Now()}
	err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, created, err := tx.InsertSwipe(ctx, first)
		if err != nil {
			return err
		}
		if !created {
			t.Error("expected first insert to create")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("first tx: %v", err)
	}

	second := &model.Swipe{ID: "s2", SwiperID: "a", SwipedID: "b", Liked: false, CreatedAt: time.Now()}
	err = m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		stored, created, err := tx.InsertSwipe(ctx, second)
		if err != nil {
			return err
		}
		if created {
			t.Error("expected duplicate insert not to create")
		}
		if stored.ID != "s1" || !stored.Liked {
			t.Errorf("expected existing swipe, got %+v", stored)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second tx: %v", err)
	}
}

func TestMemory_WithTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWithUsers(t, map[string]float64{"a": 100, "b": 100})

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		users, err := tx.LockUsers(ctx, "a", "b")
		if err != nil {
			return err
		}
		a := users["a"]
		a.CreditsRemaining = 0
		if err := tx.SaveLedger(ctx, a); err != nil {
			return err
		}
		if _, _, err := tx.InsertSwipe(ctx, &model.Swipe{ID: "s1", SwiperID: "a", SwipedID: "b", Liked: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	a, err := m.GetUser(ctx, "a")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if a.CreditsRemaining != 10 {
		t.Errorf("expected credits untouched, got %d", a.CreditsRemaining)
	}
	if _, err := m.GetSwipe(ctx, "a", "b"); !errors.Is(err, ErrSwipeNotFound) {
		t.Errorf("expected ErrSwipeNotFound after rollback, got %v", err)
	}
}

func TestMemory_LockUsers_UnknownUser(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWithUsers(t, map[string]float64{"a": 100})

	err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.LockUsers(ctx, "a", "ghost")
		return err
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// Locks from the failed transaction must be released.
	done := make(chan error, 1)
	go func() {
		done <- m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.LockUsers(ctx, "a")
			return err
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relock: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("lock on a was not released")
	}
}

func TestMemory_LockUsers_TimesOutAsUnavailable(t *testing.T) {
	m := newMemoryWithUsers(t, map[string]float64{"a": 100})

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
			if _, err := tx.LockUsers(ctx, "a"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.LockUsers(ctx, "a")
		return err
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemory_InsertMatch_OnePerPair(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWithUsers(t, map[string]float64{"a": 100, "b": 100})

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user1, user2 := "a", "b"
			if i%2 == 1 {
				user1, user2 = "b", "a"
			}
			err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
				if _, err := tx.LockUsers(ctx, user1, user2); err != nil {
					return err
				}
				_, ok, err := tx.InsertMatch(ctx, &model.Match{ID: fmt.Sprintf("m%d", i), User1ID: user1, User2ID: user2})
				if err != nil {
					return err
				}
				if ok {
					mu.Lock()
					created++
					mu.Unlock()
				}
				return nil
			})
			if err != nil {
				t.Errorf("tx %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one created match, got %d", created)
	}

	matches, err := m.ListMatches(ctx, "a")
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].User.ID != "b" {
		t.Errorf("expected counterpart b, got %s", matches[0].User.ID)
	}
}

func TestMemory_ListCandidates_ExcludesSelfAndSwiped(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWithUsers(t, map[string]float64{
		"a": 100,
		"b": 120,
		"c": 90,
		"d": 120,
		"e": 150,
	})

	err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, _, err := tx.InsertSwipe(ctx, &model.Swipe{ID: "s1", SwiperID: "a", SwipedID: "e", Liked: false})
		return err
	})
	if err != nil {
		t.Fatalf("insert swipe: %v", err)
	}

	got, err := m.ListCandidates(ctx, "a", 0)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}

	want := []string{"b", "d", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}

	limited, err := m.ListCandidates(ctx, "a", 2)
	if err != nil {
		t.Fatalf("list candidates limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 candidates with limit, got %d", len(limited))
	}
}

func TestMemory_Messages(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWithUsers(t, map[string]float64{"a": 100, "b": 100})

	if err := m.CreateMessage(ctx, &model.Message{ID: "x", MatchID: "missing"}); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}

	err := m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		_, _, err := tx.InsertMatch(ctx, &model.Match{ID: "m1", User1ID: "a", User2ID: "b"})
		return err
	})
	if err != nil {
		t.Fatalf("insert match: %v", err)
	}

	for i, sender := range []string{"a", "a", "b"} {
		receiver := "b"
		if sender == "b" {
			receiver = "a"
		}
		msg := &model.Message{ID: fmt.Sprintf("msg%d", i), MatchID: "m1", SenderID: sender, ReceiverID: receiver, Content: "hi"}
		if err := m.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	unread, err := m.CountUnread(ctx, "b")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 2 {
		t.Errorf("expected 2 unread for b, got %d", unread)
	}

	changed, err := m.MarkRead(ctx, "m1", "b")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if changed != 2 {
		t.Errorf("expected 2 marked read, got %d", changed)
	}

	msgs, err := m.ListMessages(ctx, "m1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != "msg0" {
		t.Errorf("unexpected message order: %+v", msgs)
	}
}
