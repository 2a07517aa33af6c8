package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/venueboard/internal/remote"
	"github.com/example/venueboard/internal/state"
)

// Keyed is implemented by feed items addressable by id.
type Keyed interface {
	Key() int64
}

// FetchPage loads one page of a listing.
type FetchPage[T any] func(ctx context.Context, page, size int) (*remote.Page[T], error)

// Listing is the shared feed session for posts, scraps and events: a
// pagination cursor, an id-deduplicated item slice, and a hydration hook run
// once per loaded page so the interaction cache learns the server defaults
// without clobbering anything the member already toggled.
type Listing[T Keyed] struct {
	log     *zap.Logger
	pager   *state.Pager
	fetch   FetchPage[T]
	hydrate func([]T)

	mu    sync.Mutex
	items []T
	seen  map[int64]struct{}
}

func NewListing[T Keyed](log *zap.Logger, pageSize int, fetch FetchPage[T], hydrate func([]T)) *Listing[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listing[T]{
		log:     log,
		pager:   state.NewPager(pageSize),
		fetch:   fetch,
		hydrate: hydrate,
		seen:    make(map[int64]struct{}),
	}
}

// LoadMore fetches the next page when the cursor allows it. Items already
// listed are discarded, so overlapping pages merge idempotently. A page
// whose fetch began before a Reset is discarded wholesale: its completion
// token is stale, and merging it would leak the previous listing identity
// into the new one.
func (l *Listing[T]) LoadMore(ctx context.Context) (bool, error) {
	page, gen, ok := l.pager.TryBegin()
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	fetch := l.fetch
	l.mu.Unlock()

	res, err := fetch(ctx, page, l.pager.Size())
	if err != nil {
		l.pager.Abort(gen)
		l.log.Warn("feed page fetch failed", zap.Int("page", page), zap.Error(err))
		return false, err
	}

	l.mu.Lock()
	if !l.pager.Complete(gen, res.Last) {
		l.mu.Unlock()
		return false, nil
	}
	for _, item := range res.Content {
		if _, dup := l.seen[item.Key()]; dup {
			continue
		}
		l.seen[item.Key()] = struct{}{}
		l.items = append(l.items, item)
	}
	l.mu.Unlock()

	if l.hydrate != nil {
		l.hydrate(res.Content)
	}
	return true, nil
}

// Reset handles an identity change of the listing (tab or filter switch):
// the items are cleared in the same critical section as the cursor, and an
// optional new fetch replaces the old one before the next load.
func (l *Listing[T]) Reset(fetch FetchPage[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pager.Reset()
	l.items = nil
	l.seen = make(map[int64]struct{})
	if fetch != nil {
		l.fetch = fetch
	}
}

// Items returns the loaded items in arrival order.
func (l *Listing[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Exhausted reports whether the final page has been merged.
func (l *Listing[T]) Exhausted() bool {
	return l.pager.Last()
}

// HydratePosts seeds like, scrap and author-follow entries from a fetched
// post page.
func HydratePosts(cache *state.InteractionCache) func([]remote.Post) {
	return func(posts []remote.Post) {
		likes := make([]state.Entry, 0, len(posts))
		scraps := make([]state.Entry, 0, len(posts))
		follows := make([]state.Entry, 0, len(posts))
		for _, p := range posts {
			lc, sc := p.LikeCount, p.ScrapCount
			likes = append(likes, state.Entry{ID: p.ID, Value: p.Liked, Count: &lc})
			scraps = append(scraps, state.Entry{ID: p.ID, Value: p.Scrapped, Count: &sc})
			follows = append(follows, state.Entry{ID: p.AuthorID, Value: p.Followed})
		}
		cache.Hydrate(state.KindLike, likes)
		cache.Hydrate(state.KindScrap, scraps)
		cache.Hydrate(state.KindFollow, follows)
	}
}

// HydrateEvents seeds like and scrap entries from a fetched event page.
func HydrateEvents(cache *state.InteractionCache) func([]remote.Event) {
	return func(events []remote.Event) {
		likes := make([]state.Entry, 0, len(events))
		scraps := make([]state.Entry, 0, len(events))
		for _, e := range events {
			lc := e.LikeCount
			likes = append(likes, state.Entry{ID: e.ID, Value: e.Liked, Count: &lc})
			scraps = append(scraps, state.Entry{ID: e.ID, Value: e.Scrapped})
		}
		cache.Hydrate(state.KindLike, likes)
		cache.Hydrate(state.KindScrap, scraps)
	}
}
