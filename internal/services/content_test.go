package services

import (
	"agora/internal/models"
	"agora/internal/utils"
	"context"
	"errors"
	"testing"
	"time"
)

func TestListContent_CacheHitThenRefetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := &countingStore{MemoryStore: f.store}
	f.deps.Store = store

	now := testNow
	cache, _ := utils.NewQueryCache(10, 5*time.Minute, utils.WithClock(func() time.Time { return now }))
	f.deps.Cache = cache
	svc := NewContentService(f.deps)

	filter := models.ContentFilter{Sort: models.SortNew}
	first, err := svc.ListContent(ctx, filter)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListContent(ctx, filter); err != nil {
		t.Fatal(err)
	}
	if got := store.fetches.Load(); got != 1 {
		t.Fatalf("fetches within TTL = %d, want 1", got)
	}

	// a vote lands but the cached listing is still served until expiry
	_ = f.store.SaveCounts(ctx, f.post.ID, models.TargetPost, models.Counts{Upvotes: 9})
	cached, _ := svc.ListContent(ctx, filter)
	if cached[0].Upvotes != first[0].Upvotes {
		t.Fatal("cached listing changed before TTL")
	}

	now = testNow.Add(5 * time.Minute)
	fresh, err := svc.ListContent(ctx, filter)
	if err != nil {
		t.Fatal(err)
	}
	if got := store.fetches.Load(); got != 2 {
		t.Fatalf("fetches after TTL = %d, want 2", got)
	}
	if fresh[0].ID != f.post.ID || fresh[0].Upvotes != 9 {
		t.Fatalf("fresh[0] = %+v", fresh[0])
	}
}

func TestListContent_EquivalentFiltersShareEntry(t *testing.T) {
	f := newFixture(t)
	store := &countingStore{MemoryStore: f.store}
	f.deps.Store = store
	svc := NewContentService(f.deps)
	ctx := context.Background()

	_, _ = svc.ListContent(ctx, models.ContentFilter{})
	_, _ = svc.ListContent(ctx, models.ContentFilter{Sort: "HOT", TimeWindow: "bogus"})
	_, _ = svc.ListContent(ctx, models.ContentFilter{Sort: models.SortHot, TimeWindow: models.WindowAll, Limit: DefaultFeedLimit})
	if got := store.fetches.Load(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

func TestListContent_RanksAndLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewContentService(f.deps)

	// poll is older but heavily upvoted
	_ = f.store.SaveCounts(ctx, f.poll.ID, models.TargetPoll, models.Counts{Upvotes: 50})

	top, err := svc.ListContent(ctx, models.ContentFilter{Sort: models.SortTop})
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].Type != models.ContentPoll {
		t.Fatalf("top = %+v", top)
	}

	newest, _ := svc.ListContent(ctx, models.ContentFilter{Sort: models.SortNew, Limit: 1})
	if len(newest) != 1 || newest[0].ID != f.post.ID {
		t.Fatalf("new limit 1 = %+v", newest)
	}

	polls, _ := svc.ListContent(ctx, models.ContentFilter{Type: models.ContentPoll})
	if len(polls) != 1 || polls[0].Type != models.ContentPoll {
		t.Fatalf("polls = %+v", polls)
	}

	if _, err := svc.ListContent(ctx, models.ContentFilter{Type: "story"}); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("bad type err = %v", err)
	}
}

func TestListContent_OldHighScorerBeyondCandidateCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 600; i++ {
		p := &models.Post{UserID: authorID, Title: "fresh", CreatedAt: testNow.Add(-time.Duration(i) * time.Minute)}
		if err := f.store.CreatePost(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	old := &models.Post{UserID: authorID, Title: "classic", Upvotes: 1000, CreatedAt: testNow.AddDate(-1, 0, 0)}
	if err := f.store.CreatePost(ctx, old); err != nil {
		t.Fatal(err)
	}
	svc := NewContentService(f.deps)

	for _, sort := range []models.SortAlgorithm{models.SortTop, models.SortHot, models.SortRising, models.SortTrending} {
		t.Run(string(sort), func(t *testing.T) {
			items, err := svc.ListContent(ctx, models.ContentFilter{Type: models.ContentPost, Sort: sort, Limit: 10})
			if err != nil {
				t.Fatal(err)
			}
			if len(items) != 10 || items[0].ID != old.ID {
				t.Fatalf("items[0] = %+v, want post %d", items[0], old.ID)
			}
		})
	}
}

func TestListContent_VoteLookupFailureIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := &voteLookupFailStore{countingStore{MemoryStore: f.store}}
	f.deps.Store = store
	svc := NewContentService(f.deps)

	filter := models.ContentFilter{UserID: voterID}
	for i := 0; i < 2; i++ {
		items, err := svc.ListContent(ctx, filter)
		if err != nil || len(items) != 2 {
			t.Fatalf("ListContent = %d items, %v", len(items), err)
		}
	}
	if got := store.fetches.Load(); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
	if f.cache.Len() != 0 {
		t.Fatalf("cache holds %d entries, want 0", f.cache.Len())
	}
}

func TestListContent_UserVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	votes := NewVoteService(f.deps, nil, 0)
	if _, err := votes.ApplyVote(ctx, voterID, f.poll.ID, models.TargetPoll, models.DirectionDown); err != nil {
		t.Fatal(err)
	}

	svc := NewContentService(f.deps)
	items, err := svc.ListContent(ctx, models.ContentFilter{Sort: models.SortNew, UserID: voterID})
	if err != nil {
		t.Fatal(err)
	}
	got := map[models.ContentType]models.Direction{}
	for _, it := range items {
		got[it.Type] = it.UserVote
	}
	if got[models.ContentPoll] != models.DirectionDown || got[models.ContentPost] != models.DirectionNone {
		t.Fatalf("user votes = %v", got)
	}

	anon, _ := svc.ListContent(ctx, models.ContentFilter{Sort: models.SortNew})
	for _, it := range anon {
		if it.UserVote != "" {
			t.Fatalf("anonymous listing carries a vote: %+v", it)
		}
	}
}

func TestCreateAndDeleteContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewContentService(f.deps)

	if _, err := svc.CreatePost(ctx, voterID, PostInput{Title: "  "}); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("empty title err = %v", err)
	}
	if _, err := svc.CreatePoll(ctx, voterID, PostInput{Title: "q"}, []string{"only", " "}); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("one-option poll err = %v", err)
	}

	before, _ := svc.ListContent(ctx, models.ContentFilter{})
	post, err := svc.CreatePost(ctx, voterID, PostInput{Title: "mine", BowlID: uptr(4)})
	if err != nil {
		t.Fatal(err)
	}
	after, _ := svc.ListContent(ctx, models.ContentFilter{})
	if len(after) != len(before)+1 {
		t.Fatalf("listing not refreshed after create: %d -> %d", len(before), len(after))
	}

	poll, err := svc.CreatePoll(ctx, voterID, PostInput{Title: "pick"}, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(poll.Options) != 3 {
		t.Fatalf("options = %+v", poll.Options)
	}

	ref := models.ContentRef{Type: models.ContentPost, ID: post.ID}
	if err := svc.DeleteContent(ctx, authorID, ref); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete by stranger err = %v", err)
	}
	if err := svc.DeleteContent(ctx, voterID, ref); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteContent(ctx, voterID, ref); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("second delete err = %v", err)
	}
	final, _ := svc.ListContent(ctx, models.ContentFilter{})
	if len(final) != len(after) {
		t.Fatalf("listing after delete = %d, want %d", len(final), len(after))
	}
}
