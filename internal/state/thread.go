package state

import (
	"sort"
	"sync"
	"time"
)

// Comment is the client's view of one comment, root or reply.
type Comment struct {
	ID        int64     `json:"id"`
	ParentID  *int64    `json:"parentId,omitempty"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"createdAt"`
	LikeCount int       `json:"likeCount"`
	Liked     bool      `json:"liked"`
	IsAuthor  bool      `json:"isAuthor"`
	IsBlocked bool      `json:"isBlocked"`
	IsDeleted bool      `json:"isDeleted"`
}

func (c Comment) IsRoot() bool { return c.ParentID == nil }

// Thread holds the flat comment list for one post. Comments arrive from two
// sources in arbitrary order (paginated fetches and local inserts after a
// confirmed create), so the store keeps a single id-deduplicated set and
// derives the root/reply partitions on read instead of maintaining a tree.
//
// Nesting is structurally capped at two levels: a comment whose parent is
// itself a reply is re-parented to that parent's root on write.
type Thread struct {
	mu   sync.RWMutex
	byID map[int64]Comment
}

func NewThread() *Thread {
	return &Thread{byID: make(map[int64]Comment)}
}

// ReplacePage merges one fetched page. The first page replaces the store
// wholesale (initial load, refresh); later pages are unioned by id with
// existing entries winning, which makes the merge idempotent for overlapping
// pages.
func (t *Thread) ReplacePage(page int, comments []Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if page <= 1 {
		t.byID = make(map[int64]Comment, len(comments))
	}
	for _, c := range comments {
		if _, ok := t.byID[c.ID]; ok {
			continue
		}
		t.byID[c.ID] = t.clamp(c)
	}
	// A reply-of-a-reply delivered before its parent could not be clamped on
	// insert; the parent is stored now, so re-clamping settles it onto the
	// root.
	for id, c := range t.byID {
		t.byID[id] = t.clamp(c)
	}
}

// InsertLocal adds a comment confirmed by a create call before any refetch
// has a chance to include it.
func (t *Thread) InsertLocal(c Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[c.ID] = t.clamp(c)
}

// Remove drops a comment after a confirmed delete. Replies of a removed root
// are kept; they simply stop rendering once their root is absent from the
// root partition. Cascade semantics belong to the server.
func (t *Thread) Remove(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}

// Clear empties the store. Must run synchronously with a pager reset so a
// stale page from the previous listing never flashes into the next one.
func (t *Thread) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID = make(map[int64]Comment)
}

func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

func (t *Thread) Get(id int64) (Comment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.byID[id]
	return c, ok
}

// Roots returns the visible root comments ordered by creation time.
func (t *Thread) Roots() []Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var roots []Comment
	for _, c := range t.byID {
		if c.ParentID == nil && !c.IsBlocked {
			roots = append(roots, c)
		}
	}
	sortComments(roots)
	return roots
}

// RepliesOf returns the visible direct replies of a root, ordered by creation
// time.
func (t *Thread) RepliesOf(rootID int64) []Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var replies []Comment
	for _, c := range t.byID {
		if c.ParentID != nil && *c.ParentID == rootID && !c.IsBlocked {
			replies = append(replies, c)
		}
	}
	sortComments(replies)
	return replies
}

// All returns every stored comment ordered by creation time, blocked ones
// included. Mostly useful to callers hydrating interaction state.
func (t *Thread) All() []Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Comment, 0, len(t.byID))
	for _, c := range t.byID {
		out = append(out, c)
	}
	sortComments(out)
	return out
}

// clamp re-parents a reply-of-a-reply onto the topmost stored ancestor, so
// the rendered tree never exceeds two levels whatever order the parents
// arrived in. The hop limit breaks parent cycles in malformed data. Callers
// hold t.mu.
func (t *Thread) clamp(c Comment) Comment {
	if c.ParentID == nil {
		return c
	}
	root := *c.ParentID
	for hops := 0; hops < len(t.byID); hops++ {
		p, ok := t.byID[root]
		if !ok || p.ParentID == nil {
			break
		}
		root = *p.ParentID
	}
	c.ParentID = &root
	return c
}

func sortComments(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}
