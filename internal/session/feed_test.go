package session

import (
	"context"
	"errors"
	"testing"

	"github.com/example/venueboard/internal/remote"
	"github.com/example/venueboard/internal/state"
)

func fakePosts(n int) []remote.Post {
	posts := make([]remote.Post, n)
	for i := range posts {
		posts[i] = remote.Post{ID: int64(i + 1), AuthorID: 100, Liked: i%2 == 0, LikeCount: i}
	}
	return posts
}

// pagedFetch serves a fixed item set page by page, counting calls.
func pagedFetch(items []remote.Post) (FetchPage[remote.Post], *int) {
	calls := 0
	fetch := func(_ context.Context, page, size int) (*remote.Page[remote.Post], error) {
		calls++
		start := (page - 1) * size
		if start >= len(items) {
			return &remote.Page[remote.Post]{Content: []remote.Post{}, Last: true}, nil
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		return &remote.Page[remote.Post]{Content: items[start:end], Last: end >= len(items)}, nil
	}
	return fetch, &calls
}

func TestListing_LoadMoreAccumulates(t *testing.T) {
	fetch, _ := pagedFetch(fakePosts(5))
	l := NewListing(nil, 2, fetch, nil)
	ctx := context.Background()

	for _, want := range []int{2, 4, 5} {
		if _, err := l.LoadMore(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
		if got := len(l.Items()); got != want {
			t.Fatalf("items after load: got %d, want %d", got, want)
		}
	}
	if !l.Exhausted() {
		t.Fatal("last page not recorded")
	}
	if started, _ := l.LoadMore(ctx); started {
		t.Fatal("fetch started past the last page")
	}
	if got := len(l.Items()); got != 5 {
		t.Fatalf("final items: %d, want 5", got)
	}
}

func TestListing_DeduplicatesOverlappingPages(t *testing.T) {
	items := fakePosts(3)
	fetch := func(_ context.Context, page, size int) (*remote.Page[remote.Post], error) {
		// Every page returns the full set; only the first merge may add.
		return &remote.Page[remote.Post]{Content: items, Last: page >= 2}, nil
	}
	l := NewListing(nil, 3, fetch, nil)
	ctx := context.Background()

	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(l.Items()); got != 3 {
		t.Fatalf("duplicates slipped through: %d items", got)
	}
}

func TestListing_FailedFetchRetriesSamePage(t *testing.T) {
	boom := errors.New("network down")
	fail := true
	var pages []int
	fetch := func(_ context.Context, page, _ int) (*remote.Page[remote.Post], error) {
		pages = append(pages, page)
		if fail {
			return nil, boom
		}
		return &remote.Page[remote.Post]{Content: fakePosts(1), Last: true}, nil
	}
	l := NewListing(nil, 10, fetch, nil)
	ctx := context.Background()

	if _, err := l.LoadMore(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if len(l.Items()) != 0 {
		t.Fatal("partial page merged on failure")
	}

	fail = false
	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(pages) != 2 || pages[0] != 1 || pages[1] != 1 {
		t.Fatalf("expected page 1 retried, got %v", pages)
	}
}

func TestListing_StaleFetchDiscardedAfterReset(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	oldFetch := func(_ context.Context, _, _ int) (*remote.Page[remote.Post], error) {
		close(entered)
		<-release
		return &remote.Page[remote.Post]{Content: []remote.Post{{ID: 100, Board: "old-tab"}}, Last: true}, nil
	}
	newFetch, _ := pagedFetch([]remote.Post{{ID: 200, Board: "new-tab"}})

	l := NewListing(nil, 10, oldFetch, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		started, err := l.LoadMore(ctx)
		if err != nil {
			t.Errorf("stale load: %v", err)
		}
		if started {
			t.Error("stale load reported a merge")
		}
	}()

	// Switch tabs while the old fetch is still in flight.
	<-entered
	l.Reset(newFetch)
	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("load after reset: %v", err)
	}

	close(release)
	<-done

	items := l.Items()
	if len(items) != 1 || items[0].ID != 200 {
		t.Fatalf("stale page from previous listing merged after reset: %+v", items)
	}
	if !l.Exhausted() {
		t.Fatal("new listing's last flag lost")
	}
}

func TestListing_ResetClearsItemsSynchronously(t *testing.T) {
	fetch, _ := pagedFetch(fakePosts(4))
	l := NewListing(nil, 2, fetch, nil)
	ctx := context.Background()
	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	other, _ := pagedFetch([]remote.Post{{ID: 99}})
	l.Reset(other)
	if len(l.Items()) != 0 {
		t.Fatal("reset left stale items visible")
	}

	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	items := l.Items()
	if len(items) != 1 || items[0].ID != 99 {
		t.Fatalf("stale listing leaked into the new one: %+v", items)
	}
}

func TestHydratePosts_SeedsWithoutClobbering(t *testing.T) {
	cache := state.NewInteractionCache()
	// The member toggled post 1 moments before the page landed.
	one := 1
	cache.Set(state.KindLike, 1, true, &one)

	hydrate := HydratePosts(cache)
	hydrate([]remote.Post{
		{ID: 1, AuthorID: 7, Liked: false, LikeCount: 0},
		{ID: 2, AuthorID: 7, Liked: true, LikeCount: 5, Scrapped: true, ScrapCount: 2, Followed: true},
	})

	if !cache.Get(state.KindLike, 1, false) {
		t.Fatal("hydrate clobbered the recent toggle")
	}
	if got := cache.GetCount(state.KindLike, 2, 0); got != 5 {
		t.Fatalf("like count not hydrated: %d", got)
	}
	if !cache.Get(state.KindScrap, 2, false) {
		t.Fatal("scrap not hydrated")
	}
	if !cache.Get(state.KindFollow, 7, false) {
		t.Fatal("author follow not hydrated")
	}
}

func TestHydrateEvents_Seeds(t *testing.T) {
	cache := state.NewInteractionCache()
	HydrateEvents(cache)([]remote.Event{{ID: 4, Liked: true, LikeCount: 2, Scrapped: true}})

	if !cache.Get(state.KindLike, 4, false) || cache.GetCount(state.KindLike, 4, 0) != 2 {
		t.Fatal("event like not hydrated")
	}
	if !cache.Get(state.KindScrap, 4, false) {
		t.Fatal("event scrap not hydrated")
	}
}
