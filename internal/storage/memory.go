package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/enigmatch/enigmatch/internal/model"
)

// Memory is an in-process Store. Entities live in append-only arenas with
// index maps keyed by id, ordered swipe pair and normalized match pair.
//
// Transactions take per-user locks (see keyedLocks) and stage their writes;
// staged writes are applied under the write lock on commit, so readers never
// observe a partially applied transaction.
type Memory struct {
	mu sync.RWMutex

	users      []*model.User
	userIdx    map[string]int
	usernames  map[string]int
	swipes     []*model.Swipe
	swipeIdx   map[model.SwipeKey]int
	bySwiper   map[string][]int
	matches    []*model.Match
	matchIdx   map[model.PairKey]int
	matchByID  map[string]int
	messages   []*model.Message
	msgByMatch map[string][]int

	locks *keyedLocks
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		userIdx:    make(map[string]int),
		usernames:  make(map[string]int),
		swipeIdx:   make(map[model.SwipeKey]int),
		bySwiper:   make(map[string][]int),
		matchIdx:   make(map[model.PairKey]int),
		matchByID:  make(map[string]int),
		msgByMatch: make(map[string][]int),
		locks:      newKeyedLocks(),
	}
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (m *Memory) Close() {}

// CreateUser inserts a new user.
func (m *Memory) CreateUser(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return Unavailable("create user", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.usernames[u.Username]; ok {
		return ErrUsernameTaken
	}
	m.users = append(m.users, u.Clone())
	idx := len(m.users) - 1
	m.userIdx[u.ID] = idx
	m.usernames[u.Username] = idx
	return nil
}

// GetUser retrieves a user by id.
func (m *Memory) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("get user", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.userIdx[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.users[idx].Clone(), nil
}

// ListUsers returns every user ordered by score.
func (m *Memory) ListUsers(ctx context.Context) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("list users", err)
	}

	m.mu.RLock()
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	m.mu.RUnlock()

	sortByScore(out)
	return out, nil
}

// ListCandidates returns the unswiped users for userID ordered by score.
func (m *Memory) ListCandidates(ctx context.Context, userID string, limit int) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("list candidates", err)
	}

	m.mu.RLock()
	swiped := make(map[string]struct{}, len(m.bySwiper[userID]))
	for _, idx := range m.bySwiper[userID] {
		swiped[m.swipes[idx].SwipedID] = struct{}{}
	}

	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		if u.ID == userID {
			continue
		}
		if _, seen := swiped[u.ID]; seen {
			continue
		}
		out = append(out, u.Clone())
	}
	m.mu.RUnlock()

	sortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetSwipe retrieves the swipe for an ordered pair.
func (m *Memory) GetSwipe(ctx context.Context, swiperID, swipedID string) (*model.Swipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("get swipe", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.swipeLocked(model.SwipeKey{SwiperID: swiperID, SwipedID: swipedID})
}

func (m *Memory) swipeLocked(key model.SwipeKey) (*model.Swipe, error) {
	idx, ok := m.swipeIdx[key]
	if !ok {
		return nil, ErrSwipeNotFound
	}
	s := *m.swipes[idx]
	return &s, nil
}

// GetMatch retrieves a match by id.
func (m *Memory) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("get match", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.matchByID[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	match := *m.matches[idx]
	return &match, nil
}

// ListMatches returns the matches of userID, newest first.
func (m *Memory) ListMatches(ctx context.Context, userID string) ([]*model.MatchWithUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("list matches", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.MatchWithUser
	for i := len(m.matches) - 1; i >= 0; i-- {
		match := m.matches[i]
		if !match.Involves(userID) {
			continue
		}
		idx, ok := m.userIdx[match.Counterpart(userID)]
		if !ok {
			continue
		}
		cp := *match
		out = append(out, &model.MatchWithUser{Match: &cp, User: m.users[idx].Clone()})
	}
	return out, nil
}

// CreateMessage appends a message.
func (m *Memory) CreateMessage(ctx context.Context, msg *model.Message) error {
	if err := ctx.Err(); err != nil {
		return Unavailable("create message", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.matchByID[msg.MatchID]; !ok {
		return ErrMatchNotFound
	}
	cp := *msg
	m.messages = append(m.messages, &cp)
	m.msgByMatch[msg.MatchID] = append(m.msgByMatch[msg.MatchID], len(m.messages)-1)
	return nil
}

// ListMessages returns the messages of matchID in insertion order.
func (m *Memory) ListMessages(ctx context.Context, matchID string) ([]*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("list messages", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	idxs := m.msgByMatch[matchID]
	out := make([]*model.Message, 0, len(idxs))
	for _, idx := range idxs {
		cp := *m.messages[idx]
		out = append(out, &cp)
	}
	return out, nil
}

// CountUnread counts unread messages addressed to userID.
func (m *Memory) CountUnread(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, Unavailable("count unread", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, msg := range m.messages {
		if msg.ReceiverID == userID && !msg.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead flags the messages of matchID addressed to readerID as read.
func (m *Memory) MarkRead(ctx context.Context, matchID, readerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, Unavailable("mark read", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := 0
	for _, idx := range m.msgByMatch[matchID] {
		msg := m.messages[idx]
		if msg.ReceiverID == readerID && !msg.Read {
			msg.Read = true
			changed++
		}
	}
	return changed, nil
}

// WithTx runs fn against a staged transaction.
func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{
		m:       m,
		users:   make(map[string]*model.User),
		swipes:  make(map[model.SwipeKey]*model.Swipe),
		matches: make(map[model.PairKey]*model.Match),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return Unavailable("commit", err)
	}

	tx.commit()
	return nil
}

// memoryTx stages writes until commit. Staged users are the locked copies.
type memoryTx struct {
	m *Memory

	held    []string
	users   map[string]*model.User
	dirty   []string
	swipes  map[model.SwipeKey]*model.Swipe
	order   []model.SwipeKey
	matches map[model.PairKey]*model.Match
	mOrder  []model.PairKey
}

func (tx *memoryTx) LockUsers(ctx context.Context, ids ...string) (map[string]*model.User, error) {
	keys := uniqueSorted(ids)

	for _, id := range keys {
		if _, held := tx.users[id]; held {
			continue
		}
		if err := tx.m.locks.lock(ctx, id); err != nil {
			return nil, Unavailable("lock user", err)
		}
		tx.held = append(tx.held, id)

		tx.m.mu.RLock()
		idx, ok := tx.m.userIdx[id]
		var u *model.User
		if ok {
			u = tx.m.users[idx].Clone()
		}
		tx.m.mu.RUnlock()

		if !ok {
			return nil, ErrUserNotFound
		}
		tx.users[id] = u
	}

	out := make(map[string]*model.User, len(keys))
	for _, id := range keys {
		out[id] = tx.users[id].Clone()
	}
	return out, nil
}

func (tx *memoryTx) SaveLedger(ctx context.Context, u *model.User) error {
	staged, err := tx.staged(ctx, u.ID)
	if err != nil {
		return err
	}
	staged.CreditsRemaining = u.CreditsRemaining
	staged.LastCreditReset = u.LastCreditReset
	return nil
}

func (tx *memoryTx) SaveReputation(ctx context.Context, u *model.User) error {
	staged, err := tx.staged(ctx, u.ID)
	if err != nil {
		return err
	}
	staged.Score = u.Score
	staged.LikesReceived = u.LikesReceived
	staged.DislikesReceived = u.DislikesReceived
	return nil
}

func (tx *memoryTx) staged(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("save user", err)
	}
	staged, ok := tx.users[id]
	if !ok {
		// Writing an unlocked user would bypass serialization.
		return nil, ErrUserNotFound
	}
	tx.dirty = append(tx.dirty, id)
	return staged, nil
}

func (tx *memoryTx) GetSwipe(ctx context.Context, swiperID, swipedID string) (*model.Swipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("get swipe", err)
	}

	key := model.SwipeKey{SwiperID: swiperID, SwipedID: swipedID}
	if s, ok := tx.swipes[key]; ok {
		cp := *s
		return &cp, nil
	}

	tx.m.mu.RLock()
	defer tx.m.mu.RUnlock()
	return tx.m.swipeLocked(key)
}

func (tx *memoryTx) InsertSwipe(ctx context.Context, s *model.Swipe) (*model.Swipe, bool, error) {
	existing, err := tx.GetSwipe(ctx, s.SwiperID, s.SwipedID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrSwipeNotFound) {
		return nil, false, err
	}

	cp := *s
	tx.swipes[s.Key()] = &cp
	tx.order = append(tx.order, s.Key())
	out := cp
	return &out, true, nil
}

func (tx *memoryTx) GetMatchByPair(ctx context.Context, pair model.PairKey) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("get match", err)
	}

	if match, ok := tx.matches[pair]; ok {
		cp := *match
		return &cp, nil
	}

	tx.m.mu.RLock()
	defer tx.m.mu.RUnlock()

	idx, ok := tx.m.matchIdx[pair]
	if !ok {
		return nil, ErrMatchNotFound
	}
	cp := *tx.m.matches[idx]
	return &cp, nil
}

func (tx *memoryTx) InsertMatch(ctx context.Context, match *model.Match) (*model.Match, bool, error) {
	pair := match.Pair()
	existing, err := tx.GetMatchByPair(ctx, pair)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrMatchNotFound) {
		return nil, false, err
	}

	cp := *match
	tx.matches[pair] = &cp
	tx.mOrder = append(tx.mOrder, pair)
	out := cp
	return &out, true, nil
}

// commit applies staged writes. Locks are still held, so the staged users
// cannot have been changed by another transaction.
func (tx *memoryTx) commit() {
	m := tx.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range tx.dirty {
		idx := m.userIdx[id]
		m.users[idx] = tx.users[id].Clone()
	}

	for _, key := range tx.order {
		if _, exists := m.swipeIdx[key]; exists {
			continue
		}
		m.swipes = append(m.swipes, tx.swipes[key])
		idx := len(m.swipes) - 1
		m.swipeIdx[key] = idx
		m.bySwiper[key.SwiperID] = append(m.bySwiper[key.SwiperID], idx)
	}

	for _, pair := range tx.mOrder {
		if _, exists := m.matchIdx[pair]; exists {
			continue
		}
		match := tx.matches[pair]
		m.matches = append(m.matches, match)
		idx := len(m.matches) - 1
		m.matchIdx[pair] = idx
		m.matchByID[match.ID] = idx
	}
}

func (tx *memoryTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.m.locks.unlock(tx.held[i])
	}
	tx.held = nil
}

// keyedLocks is a set of context-aware mutexes, one per key.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[string]chan struct{})}
}

func (k *keyedLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

func (k *keyedLocks) lock(ctx context.Context, key string) error {
	select {
	case k.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *keyedLocks) unlock(key string) {
	<-k.slot(key)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortByScore(users []*model.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Score != users[j].Score {
			return users[i].Score > users[j].Score
		}
		return users[i].ID < users[j].ID
	})
}
