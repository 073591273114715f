package services

import (
	"agora/internal/db"
	"agora/internal/models"
	"agora/internal/utils"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func uptr(v uint) *uint { return &v }

type fixture struct {
	store *db.MemoryStore
	cache *utils.QueryCache
	deps  Deps
	post  *models.Post
	poll  *models.Poll
}

const (
	authorID uint = 1
	voterID  uint = 2
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.NewMemoryStore()
	store.Now = func() time.Time { return testNow }

	cache, err := utils.NewQueryCache(100, time.Minute, utils.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, u := range []*models.User{{ID: authorID, Username: "author"}, {ID: voterID, Username: "voter"}} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	post := &models.Post{UserID: authorID, Title: "post", CreatedAt: testNow.Add(-time.Hour)}
	if err := store.CreatePost(ctx, post); err != nil {
		t.Fatal(err)
	}
	poll := &models.Poll{UserID: authorID, Title: "poll", CreatedAt: testNow.Add(-2 * time.Hour),
		Options: []models.PollOption{{Label: "a"}, {Label: "b"}}}
	if err := store.CreatePoll(ctx, poll); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		store: store,
		cache: cache,
		post:  post,
		poll:  poll,
		deps: Deps{
			Store:    store,
			Cache:    cache,
			Notifier: NewStoreNotifier(store),
			Now:      func() time.Time { return testNow },
		},
	}
}

func (f *fixture) karma(t *testing.T, id uint) int {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return u.Karma
}

// conflictingStore fails the first n ledger writes with db.ErrConflict.
type conflictingStore struct {
	*db.MemoryStore
	remaining atomic.Int32
}

func (s *conflictingStore) CreateVote(ctx context.Context, v *models.Vote) error {
	if s.remaining.Add(-1) >= 0 {
		return db.ErrConflict
	}
	return s.MemoryStore.CreateVote(ctx, v)
}

// brokenCountStore fails every vote count.
type brokenCountStore struct {
	*db.MemoryStore
}

func (s brokenCountStore) CountVotes(context.Context, uint, models.TargetType) (models.Counts, error) {
	return models.Counts{}, errors.New("count timeout")
}

var (
	_ Store = (*db.MemoryStore)(nil)
	_ Store = (*db.Repository)(nil)
)

// voteLookupFailStore fails per-user vote hydration and counts fetches.
type voteLookupFailStore struct {
	countingStore
}

func (s *voteLookupFailStore) UserVotes(context.Context, uint, models.TargetType, []uint) (map[uint]models.Direction, error) {
	return nil, errors.New("replica lag")
}

// countingStore counts candidate fetches.
type countingStore struct {
	*db.MemoryStore
	fetches atomic.Int32
}

func (s *countingStore) ListContent(ctx context.Context, f models.ContentFilter, now time.Time) ([]models.ContentItem, error) {
	s.fetches.Add(1)
	return s.MemoryStore.ListContent(ctx, f, now)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, e models.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingNotifier) Events() []models.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotificationEvent(nil), r.events...)
}
