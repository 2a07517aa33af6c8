// Package session wires the state primitives to the remote API at the
// lifecycle points the app cares about: list-loaded hydrates the cache,
// mutation-confirmed reconciles it, create inserts locally and issues a
// scroll command. Reconciliation is explicit named functions, never a
// side effect of re-rendering.
package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/venueboard/internal/platform/auth"
	"github.com/example/venueboard/internal/remote"
	"github.com/example/venueboard/internal/state"
)

// Scope is the shared interaction state for one page/session: every view
// inside it reads the same cache, and the single mutator serializes toggles
// per entity across all of them. A feed card and a detail screen showing the
// same post therefore always agree.
type Scope struct {
	Cache   *state.InteractionCache
	Mutator *state.Mutator
}

func NewScope(log *zap.Logger) *Scope {
	cache := state.NewInteractionCache()
	return &Scope{Cache: cache, Mutator: state.NewMutator(cache, log)}
}

// TogglePostLike flips a post's like from any view that displays it.
func TogglePostLike(ctx context.Context, m *state.Mutator, cache *state.InteractionCache, cl *remote.Client, p remote.Post) (state.Outcome, error) {
	cur := cache.Get(state.KindLike, p.ID, p.Liked)
	cnt := cache.GetCount(state.KindLike, p.ID, p.LikeCount)
	return m.Toggle(ctx, state.KindLike, p.ID, state.Snapshot{Value: cur, Count: &cnt},
		func(ctx context.Context, next bool) (state.ToggleResult, error) {
			return cl.SetLike(ctx, remote.ResourcePosts, p.ID, next)
		})
}

// TogglePostScrap flips a post's scrap (bookmark) state.
func TogglePostScrap(ctx context.Context, m *state.Mutator, cache *state.InteractionCache, cl *remote.Client, p remote.Post) (state.Outcome, error) {
	cur := cache.Get(state.KindScrap, p.ID, p.Scrapped)
	cnt := cache.GetCount(state.KindScrap, p.ID, p.ScrapCount)
	return m.Toggle(ctx, state.KindScrap, p.ID, state.Snapshot{Value: cur, Count: &cnt},
		func(ctx context.Context, next bool) (state.ToggleResult, error) {
			return cl.SetScrap(ctx, remote.ResourcePosts, p.ID, next)
		})
}

// ToggleEventLike flips an event's like state.
func ToggleEventLike(ctx context.Context, m *state.Mutator, cache *state.InteractionCache, cl *remote.Client, e remote.Event) (state.Outcome, error) {
	cur := cache.Get(state.KindLike, e.ID, e.Liked)
	cnt := cache.GetCount(state.KindLike, e.ID, e.LikeCount)
	return m.Toggle(ctx, state.KindLike, e.ID, state.Snapshot{Value: cur, Count: &cnt},
		func(ctx context.Context, next bool) (state.ToggleResult, error) {
			return cl.SetLike(ctx, remote.ResourceEvents, e.ID, next)
		})
}

// ToggleFollow flips the follow state of a member. Following yourself is a
// silent no-op.
func ToggleFollow(ctx context.Context, m *state.Mutator, cache *state.InteractionCache, cl *remote.Client, self auth.Identity, followedID int64, serverDefault bool) (state.Outcome, error) {
	if followedID == self.MemberID {
		return state.OutcomeDropped, nil
	}
	cur := cache.Get(state.KindFollow, followedID, serverDefault)
	return m.Toggle(ctx, state.KindFollow, followedID, state.Snapshot{Value: cur},
		func(ctx context.Context, next bool) (state.ToggleResult, error) {
			return state.ToggleResult{}, cl.SetFollow(ctx, followedID, next)
		})
}

// OverlayPost applies cached interaction state on top of a fetched snapshot.
// The cache wins wherever the member has acted since the fetch.
func OverlayPost(cache *state.InteractionCache, p remote.Post) remote.Post {
	p.Liked = cache.Get(state.KindLike, p.ID, p.Liked)
	p.LikeCount = cache.GetCount(state.KindLike, p.ID, p.LikeCount)
	p.Scrapped = cache.Get(state.KindScrap, p.ID, p.Scrapped)
	p.ScrapCount = cache.GetCount(state.KindScrap, p.ID, p.ScrapCount)
	p.Followed = cache.Get(state.KindFollow, p.AuthorID, p.Followed)
	return p
}

// OverlayEvent applies cached interaction state on top of an event snapshot.
func OverlayEvent(cache *state.InteractionCache, e remote.Event) remote.Event {
	e.Liked = cache.Get(state.KindLike, e.ID, e.Liked)
	e.LikeCount = cache.GetCount(state.KindLike, e.ID, e.LikeCount)
	e.Scrapped = cache.Get(state.KindScrap, e.ID, e.Scrapped)
	return e
}

// OverlayComment applies cached reply-like state on top of a stored comment.
func OverlayComment(cache *state.InteractionCache, c state.Comment) state.Comment {
	c.Liked = cache.Get(state.KindReplyLike, c.ID, c.Liked)
	c.LikeCount = cache.GetCount(state.KindReplyLike, c.ID, c.LikeCount)
	return c
}
