package devserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/venueboard/internal/remote"
	"github.com/example/venueboard/internal/state"
)

var (
	ErrNotFound  = errors.New("devserver: not found")
	ErrForbidden = errors.New("devserver: forbidden")
)

type memberRec struct {
	id       int64
	nickname string
}

type postRec struct {
	id         int64
	board      string
	authorID   int64
	authorName string
	title      string
	content    string
	createdAt  time.Time
	likedBy    map[int64]struct{}
	scrappedBy map[int64]struct{}
}

type eventRec struct {
	id         int64
	venueID    int64
	title      string
	startsAt   time.Time
	likedBy    map[int64]struct{}
	scrappedBy map[int64]struct{}
}

type commentRec struct {
	id        int64
	postID    int64
	parentID  *int64
	authorID  int64
	author    string
	anonymous bool
	content   string
	createdAt time.Time
	deleted   bool
	blocked   bool
	likedBy   map[int64]struct{}
}

// Store is the in-memory backend of the dev API. It exists so the client can
// be exercised end to end without a real deployment; nothing here is
// production storage.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	now      func() time.Time
	members  map[int64]*memberRec
	posts    map[int64]*postRec
	events   map[int64]*eventRec
	comments map[int64]*commentRec
	follows  map[int64]map[int64]struct{} // followed -> follower set
}

func NewStore() *Store {
	return &Store{
		now:      time.Now,
		members:  make(map[int64]*memberRec),
		posts:    make(map[int64]*postRec),
		events:   make(map[int64]*eventRec),
		comments: make(map[int64]*commentRec),
		follows:  make(map[int64]map[int64]struct{}),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddMember seeds a member and returns its id.
func (s *Store) AddMember(nickname string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.members[id] = &memberRec{id: id, nickname: nickname}
	return id
}

func (s *Store) MemberByNickname(nickname string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.nickname == nickname {
			return m.id, true
		}
	}
	return 0, false
}

// AddPost seeds a board post and returns its id.
func (s *Store) AddPost(board string, authorID int64, title, content string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := "unknown"
	if m, ok := s.members[authorID]; ok {
		name = m.nickname
	}
	id := s.id()
	s.posts[id] = &postRec{
		id: id, board: board, authorID: authorID, authorName: name,
		title: title, content: content, createdAt: s.now(),
		likedBy: make(map[int64]struct{}), scrappedBy: make(map[int64]struct{}),
	}
	return id
}

// AddEvent seeds a venue event and returns its id.
func (s *Store) AddEvent(venueID int64, title string, startsAt time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.events[id] = &eventRec{
		id: id, venueID: venueID, title: title, startsAt: startsAt,
		likedBy: make(map[int64]struct{}), scrappedBy: make(map[int64]struct{}),
	}
	return id
}

func (s *Store) viewPost(p *postRec, viewer int64) remote.Post {
	_, liked := p.likedBy[viewer]
	_, scrapped := p.scrappedBy[viewer]
	_, followed := s.follows[p.authorID][viewer]
	commentCount := 0
	for _, c := range s.comments {
		if c.postID == p.id {
			commentCount++
		}
	}
	return remote.Post{
		ID: p.id, Board: p.board, AuthorID: p.authorID, AuthorName: p.authorName,
		Title: p.title, Content: p.content, CreatedAt: p.createdAt,
		Liked: liked, LikeCount: len(p.likedBy),
		Scrapped: scrapped, ScrapCount: len(p.scrappedBy),
		CommentCount: commentCount, Followed: followed,
	}
}

func (s *Store) viewEvent(e *eventRec, viewer int64) remote.Event {
	_, liked := e.likedBy[viewer]
	_, scrapped := e.scrappedBy[viewer]
	return remote.Event{
		ID: e.id, VenueID: e.venueID, Title: e.title, StartsAt: e.startsAt,
		Liked: liked, LikeCount: len(e.likedBy), Scrapped: scrapped,
	}
}

func (s *Store) viewComment(c *commentRec, viewer int64) state.Comment {
	_, liked := c.likedBy[viewer]
	author := c.author
	if c.anonymous {
		author = "anonymous"
	}
	return state.Comment{
		ID: c.id, ParentID: c.parentID, AuthorID: author,
		Content: c.content, Anonymous: c.anonymous, CreatedAt: c.createdAt,
		LikeCount: len(c.likedBy), Liked: liked,
		IsAuthor: c.authorID == viewer, IsBlocked: c.blocked, IsDeleted: c.deleted,
	}
}

func (s *Store) ListPosts(viewer int64, board string, page, size int) ([]remote.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []*postRec
	for _, p := range s.posts {
		if board == "" || p.board == board {
			recs = append(recs, p)
		}
	}
	sortPostRecs(recs)
	slice, last := pageSlice(recs, page, size)
	out := make([]remote.Post, 0, len(slice))
	for _, p := range slice {
		out = append(out, s.viewPost(p, viewer))
	}
	return out, last
}

func (s *Store) ListScraps(viewer int64, page, size int) ([]remote.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []*postRec
	for _, p := range s.posts {
		if _, ok := p.scrappedBy[viewer]; ok {
			recs = append(recs, p)
		}
	}
	sortPostRecs(recs)
	slice, last := pageSlice(recs, page, size)
	out := make([]remote.Post, 0, len(slice))
	for _, p := range slice {
		out = append(out, s.viewPost(p, viewer))
	}
	return out, last
}

func (s *Store) ListEvents(viewer int64, page, size int) ([]remote.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []*eventRec
	for _, e := range s.events {
		recs = append(recs, e)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].startsAt.Equal(recs[j].startsAt) {
			return recs[i].startsAt.Before(recs[j].startsAt)
		}
		return recs[i].id < recs[j].id
	})
	slice, last := pageSlice(recs, page, size)
	out := make([]remote.Event, 0, len(slice))
	for _, e := range slice {
		out = append(out, s.viewEvent(e, viewer))
	}
	return out, last
}

// ToggleLike sets or clears the viewer's like on an entity. Both directions
// are idempotent, as a retried client request must be.
func (s *Store) ToggleLike(resource string, id, viewer int64, on bool) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.likeSet(resource, id)
	if err != nil {
		return false, 0, err
	}
	if on {
		set[viewer] = struct{}{}
	} else {
		delete(set, viewer)
	}
	_, liked := set[viewer]
	return liked, len(set), nil
}

// ToggleScrap sets or clears the viewer's scrap on a post or event.
func (s *Store) ToggleScrap(resource string, id, viewer int64, on bool) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var set map[int64]struct{}
	switch resource {
	case "posts":
		p, ok := s.posts[id]
		if !ok {
			return false, 0, ErrNotFound
		}
		set = p.scrappedBy
	case "events":
		e, ok := s.events[id]
		if !ok {
			return false, 0, ErrNotFound
		}
		set = e.scrappedBy
	default:
		return false, 0, ErrNotFound
	}
	if on {
		set[viewer] = struct{}{}
	} else {
		delete(set, viewer)
	}
	_, scrapped := set[viewer]
	return scrapped, len(set), nil
}

func (s *Store) likeSet(resource string, id int64) (map[int64]struct{}, error) {
	switch resource {
	case "posts":
		if p, ok := s.posts[id]; ok {
			return p.likedBy, nil
		}
	case "events":
		if e, ok := s.events[id]; ok {
			return e.likedBy, nil
		}
	case "comments":
		if c, ok := s.comments[id]; ok {
			return c.likedBy, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) SetFollow(viewer, followed int64, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[followed]; !ok {
		return ErrNotFound
	}
	if s.follows[followed] == nil {
		s.follows[followed] = make(map[int64]struct{})
	}
	if on {
		s.follows[followed][viewer] = struct{}{}
	} else {
		delete(s.follows[followed], viewer)
	}
	return nil
}

func (s *Store) ListComments(viewer, postID int64, page, size int) ([]state.Comment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return nil, false, ErrNotFound
	}
	var recs []*commentRec
	for _, c := range s.comments {
		if c.postID == postID {
			recs = append(recs, c)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].createdAt.Equal(recs[j].createdAt) {
			return recs[i].createdAt.Before(recs[j].createdAt)
		}
		return recs[i].id < recs[j].id
	})
	slice, last := pageSlice(recs, page, size)
	out := make([]state.Comment, 0, len(slice))
	for _, c := range slice {
		out = append(out, s.viewComment(c, viewer))
	}
	return out, last, nil
}

// CreateComment validates the parent chain and clamps a reply-to-reply onto
// the root, so the stored data never exceeds two levels.
func (s *Store) CreateComment(viewer int64, req remote.CreateCommentRequest) (state.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[req.PostID]; !ok {
		return state.Comment{}, ErrNotFound
	}
	parentID := req.ParentID
	if parentID != nil {
		parent, ok := s.comments[*parentID]
		if !ok || parent.postID != req.PostID {
			return state.Comment{}, ErrNotFound
		}
		if parent.parentID != nil {
			root := *parent.parentID
			parentID = &root
		}
	}
	name := "unknown"
	if m, ok := s.members[viewer]; ok {
		name = m.nickname
	}
	id := s.id()
	rec := &commentRec{
		id: id, postID: req.PostID, parentID: parentID,
		authorID: viewer, author: name, anonymous: req.Anonymous,
		content: req.Content, createdAt: s.now(),
		likedBy: make(map[int64]struct{}),
	}
	s.comments[id] = rec
	return s.viewComment(rec, viewer), nil
}

// DeleteComment removes a comment and, for roots, its replies. The cascade
// keeps a post-delete refetch consistent with the client's local view, where
// orphaned replies stop rendering anyway.
func (s *Store) DeleteComment(viewer, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	if c.authorID != viewer {
		return ErrForbidden
	}
	delete(s.comments, id)
	if c.parentID == nil {
		for rid, r := range s.comments {
			if r.parentID != nil && *r.parentID == id {
				delete(s.comments, rid)
			}
		}
	}
	return nil
}

func sortPostRecs(recs []*postRec) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].createdAt.Equal(recs[j].createdAt) {
			// newest first, matching the feed
			return recs[i].createdAt.After(recs[j].createdAt)
		}
		return recs[i].id > recs[j].id
	})
}

func pageSlice[T any](items []T, page, size int) ([]T, bool) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, true
	}
	end := start + size
	last := end >= len(items)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], last
}
