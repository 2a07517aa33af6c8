package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/venueboard/internal/platform/auth"
	"github.com/example/venueboard/internal/remote"
	"github.com/example/venueboard/internal/state"
)

var ErrUnknownComment = errors.New("session: comment not in thread")

// ThreadNode is a root comment with its direct replies, interaction state
// already overlaid.
type ThreadNode struct {
	Comment state.Comment
	Replies []state.Comment
}

// PostSession owns the state behind one post detail screen: the comment
// thread, its pagination cursor, the scroll signal, and the post snapshot.
// The interaction scope is shared with whatever listing opened the post.
type PostSession struct {
	log    *zap.Logger
	client *remote.Client
	scope  *Scope
	self   auth.Identity

	post   remote.Post
	thread *state.Thread
	pager  *state.Pager
	scroll *state.ScrollSignal

	// mu makes a page merge and a refresh reset mutually exclusive, so a
	// fetch that raced a Refresh can never land its page in the cleared
	// thread.
	mu sync.Mutex
}

func NewPostSession(log *zap.Logger, client *remote.Client, scope *Scope, self auth.Identity, post remote.Post, pageSize int) *PostSession {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostSession{
		log:    log.With(zap.Int64("post_id", post.ID)),
		client: client,
		scope:  scope,
		self:   self,
		post:   post,
		thread: state.NewThread(),
		pager:  state.NewPager(pageSize),
		scroll: state.NewScrollSignal(),
	}
}

// LoadMore fetches the next comment page when the cursor allows it. It
// returns false when nothing was started: the last page is already merged or
// a fetch is in flight. A failed fetch merges nothing and leaves the cursor
// on the same page for the next trigger. A page whose fetch began before a
// Refresh is discarded: its completion token is stale, and merging it would
// put pre-refresh comments back into the cleared thread.
func (s *PostSession) LoadMore(ctx context.Context) (bool, error) {
	page, gen, ok := s.pager.TryBegin()
	if !ok {
		return false, nil
	}
	cp, err := s.client.ListComments(ctx, s.post.ID, page, s.pager.Size())
	if err != nil {
		s.pager.Abort(gen)
		s.log.Warn("comment page fetch failed", zap.Int("page", page), zap.Error(err))
		return false, err
	}
	s.mu.Lock()
	if !s.pager.Complete(gen, cp.Last) {
		s.mu.Unlock()
		return false, nil
	}
	s.thread.ReplacePage(page, cp.Content)
	s.mu.Unlock()
	s.hydrateReplyLikes(cp.Content)
	return true, nil
}

// Refresh rewinds to the first page. The thread is cleared in the same
// critical section as the cursor reset, before any fetch, so a stale page
// can never flash in.
func (s *PostSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.pager.Reset()
	s.thread.Clear()
	s.mu.Unlock()
	_, err := s.LoadMore(ctx)
	return err
}

// hydrateReplyLikes seeds the cache from a freshly fetched page. Hydrate
// never clobbers, so a reply-like toggled moments ago survives the page that
// still carries the pre-toggle server state.
func (s *PostSession) hydrateReplyLikes(comments []state.Comment) {
	entries := make([]state.Entry, 0, len(comments))
	for _, c := range comments {
		n := c.LikeCount
		entries = append(entries, state.Entry{ID: c.ID, Value: c.Liked, Count: &n})
	}
	s.scope.Cache.Hydrate(state.KindReplyLike, entries)
}

// CreateComment posts a root comment. There is no optimistic insert: a ghost
// comment after a failed create is worse than a short wait, so the thread
// changes only on confirmation. Success scrolls to the bottom, where the new
// comment sorts.
func (s *PostSession) CreateComment(ctx context.Context, content string, anonymous bool) (*state.Comment, error) {
	created, err := s.client.CreateComment(ctx, remote.CreateCommentRequest{
		PostID:    s.post.ID,
		Content:   content,
		Anonymous: anonymous,
	})
	if err != nil {
		s.log.Warn("comment create failed", zap.Error(err))
		return nil, err
	}
	s.thread.InsertLocal(*created)
	s.scroll.Set(state.Bottom())
	return created, nil
}

// CreateReply posts a reply. The parent is resolved to its root first, so
// replying to a reply nests under the root, and success scrolls to that root:
// the new reply renders inline beneath it, keeping both visible.
func (s *PostSession) CreateReply(ctx context.Context, parentID int64, content string, anonymous bool) (*state.Comment, error) {
	rootID := parentID
	if p, ok := s.thread.Get(parentID); ok && p.ParentID != nil {
		rootID = *p.ParentID
	}
	created, err := s.client.CreateComment(ctx, remote.CreateCommentRequest{
		PostID:    s.post.ID,
		ParentID:  &rootID,
		Content:   content,
		Anonymous: anonymous,
	})
	if err != nil {
		s.log.Warn("reply create failed", zap.Int64("parent_id", parentID), zap.Error(err))
		return nil, err
	}
	s.thread.InsertLocal(*created)
	s.scroll.Set(state.ToComment(rootID))
	return created, nil
}

// DeleteComment removes a comment after server confirmation. Replies of a
// deleted root are left to the server's cascade; locally they just stop
// rendering with their root gone.
func (s *PostSession) DeleteComment(ctx context.Context, id int64) error {
	if err := s.client.DeleteComment(ctx, id); err != nil {
		s.log.Warn("comment delete failed", zap.Int64("comment_id", id), zap.Error(err))
		return err
	}
	s.thread.Remove(id)
	return nil
}

// ToggleLike flips the post's like state.
func (s *PostSession) ToggleLike(ctx context.Context) (state.Outcome, error) {
	return TogglePostLike(ctx, s.scope.Mutator, s.scope.Cache, s.client, s.post)
}

// ToggleScrap flips the post's scrap state.
func (s *PostSession) ToggleScrap(ctx context.Context) (state.Outcome, error) {
	return TogglePostScrap(ctx, s.scope.Mutator, s.scope.Cache, s.client, s.post)
}

// ToggleAuthorFollow flips the follow state of the post's author.
func (s *PostSession) ToggleAuthorFollow(ctx context.Context) (state.Outcome, error) {
	return ToggleFollow(ctx, s.scope.Mutator, s.scope.Cache, s.client, s.self, s.post.AuthorID, s.post.Followed)
}

// ToggleCommentLike flips the like state of one comment in the thread. The
// server defaults come from the stored comment; the cache supplies anything
// the member already changed.
func (s *PostSession) ToggleCommentLike(ctx context.Context, commentID int64) (state.Outcome, error) {
	c, ok := s.thread.Get(commentID)
	if !ok {
		return state.OutcomeDropped, ErrUnknownComment
	}
	cur := s.scope.Cache.Get(state.KindReplyLike, c.ID, c.Liked)
	cnt := s.scope.Cache.GetCount(state.KindReplyLike, c.ID, c.LikeCount)
	return s.scope.Mutator.Toggle(ctx, state.KindReplyLike, c.ID, state.Snapshot{Value: cur, Count: &cnt},
		func(ctx context.Context, next bool) (state.ToggleResult, error) {
			return s.client.SetLike(ctx, remote.ResourceComments, c.ID, next)
		})
}

// Post returns the post snapshot with cached interaction state overlaid.
func (s *PostSession) Post() remote.Post {
	return OverlayPost(s.scope.Cache, s.post)
}

// Thread returns the renderable tree: visible roots with their replies,
// reply-like state overlaid from the cache.
func (s *PostSession) Thread() []ThreadNode {
	roots := s.thread.Roots()
	nodes := make([]ThreadNode, 0, len(roots))
	for _, r := range roots {
		replies := s.thread.RepliesOf(r.ID)
		for i, reply := range replies {
			replies[i] = OverlayComment(s.scope.Cache, reply)
		}
		nodes = append(nodes, ThreadNode{
			Comment: OverlayComment(s.scope.Cache, r),
			Replies: replies,
		})
	}
	return nodes
}

// ConsumeScroll hands the pending scroll target to the view exactly once.
func (s *PostSession) ConsumeScroll() (state.ScrollTarget, bool) {
	return s.scroll.Consume()
}

// Exhausted reports whether the final comment page has been merged.
func (s *PostSession) Exhausted() bool {
	return s.pager.Last()
}
