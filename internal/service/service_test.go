package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/metrics"
	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/storage"
)

const testAllowance = 10

var testStart = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store    storage.Store
	memory   *storage.Memory
	clock    *clock.Fake
	metrics  *metrics.InMemoryRecorder
	ledger   *ledger.Ledger
	swipes   *SwipeService
	feed     *FeedService
	matches  *MatchService
	users    *UserService
	messages *MessageService
}

type envOption func(*SwipeDeps)

func withPublisher(p MatchEventPublisher) envOption {
	return func(d *SwipeDeps) { d.Publisher = p }
}

func withTimeoutOption(timeout time.Duration) envOption {
	return func(d *SwipeDeps) { d.Timeout = timeout }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil, opts...)
}

// newTestEnvWithStore builds services over wrap(memory) so tests can inject
// faults. A nil wrap uses the memory store directly.
func newTestEnvWithStore(t *testing.T, wrap func(*storage.Memory) storage.Store, opts ...envOption) *testEnv {
	t.Helper()

	mem := storage.NewMemory()
	var store storage.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}

	clk := clock.NewFake(testStart)
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(store, clk, testAllowance, 24*time.Hour)
	rules := reputation.DefaultRules()

	deps := SwipeDeps{
		Store:      store,
		Ledger:     l,
		Reputation: reputation.New(rules),
		Metrics:    recorder,
		Logger:     logger,
		Clock:      clk,
		Timeout:    time.Second,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		store:    store,
		memory:   mem,
		clock:    clk,
		metrics:  recorder,
		ledger:   l,
		swipes:   NewSwipeService(deps),
		feed:     NewFeedService(store, time.Second),
		matches:  NewMatchService(store, time.Second),
		users:    NewUserService(store, l, rules, fakeHasher{}, clk, logger, time.Second),
		messages: NewMessageService(store, nil, clk, logger, time.Second),
	}
}

func (e *testEnv) addUser(t *testing.T, id string, score float64) *model.User {
	t.Helper()
	u := &model.User{
		ID:               id,
		Username:         "user_" + id,
		Name:             id,
		Age:              30,
		Image:            "https://example.com/" + id + ".jpg",
		Tags:             []string{},
		Score:            score,
		CreditsRemaining: testAllowance,
		LastCreditReset:  e.clock.Now(),
		CreatedAt:        e.clock.Now(),
	}
	if err := e.memory.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return u
}

func (e *testEnv) user(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := e.memory.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return u
}

func (e *testEnv) like(t *testing.T, swiper, swiped string) *SwipeResult {
	t.Helper()
	res, err := e.swipes.Submit(context.Background(), SubmitSwipeInput{SwiperID: swiper, SwipedID: swiped, Liked: true})
	if err != nil {
		t.Fatalf("like %s -> %s: %v", swiper, swiped, err)
	}
	return res
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

// faultyStore fails InsertMatch inside transactions.
type faultyStore struct {
	*storage.Memory
	err error
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return f.Memory.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, err: f.err})
	})
}

type faultyTx struct {
	storage.Tx
	err error
}

func (t *faultyTx) InsertMatch(ctx context.Context, m *model.Match) (*model.Match, bool, error) {
	return nil, false, t.err
}
