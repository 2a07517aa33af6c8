package remote

import (
	"time"

	"github.com/example/venueboard/internal/state"
)

// Resource names the entity collections that accept like/scrap toggles.
type Resource string

const (
	ResourcePosts    Resource = "posts"
	ResourceEvents   Resource = "events"
	ResourceComments Resource = "comments"
)

// Page is the server's listing envelope.
type Page[T any] struct {
	Content []T  `json:"content"`
	Last    bool `json:"last"`
}

// CommentPage is one page of a post's comment listing.
type CommentPage = Page[state.Comment]

type CreateCommentRequest struct {
	PostID    int64  `json:"postId"`
	ParentID  *int64 `json:"parentId,omitempty"`
	Content   string `json:"content"`
	Anonymous bool   `json:"anonymous"`
}

// Post is a feed card / detail snapshot. Liked, Scrapped and Followed are the
// server's view for the requesting member at fetch time; the interaction
// cache overrides them once the member acts.
type Post struct {
	ID           int64     `json:"id"`
	Board        string    `json:"board"`
	AuthorID     int64     `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	Liked        bool      `json:"liked"`
	LikeCount    int       `json:"likeCount"`
	Scrapped     bool      `json:"scrapped"`
	ScrapCount   int       `json:"scrapCount"`
	CommentCount int       `json:"commentCount"`
	Followed     bool      `json:"followed"`
}

func (p Post) Key() int64 { return p.ID }

// Event is a venue event card.
type Event struct {
	ID        int64     `json:"id"`
	VenueID   int64     `json:"venueId"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"startsAt"`
	Liked     bool      `json:"liked"`
	LikeCount int       `json:"likeCount"`
	Scrapped  bool      `json:"scrapped"`
}

func (e Event) Key() int64 { return e.ID }

// toggleResponse mirrors the optional authoritative fields a toggle endpoint
// may include.
type toggleResponse struct {
	Liked *bool `json:"liked"`
	Likes *int  `json:"likes"`
}

type followRequest struct {
	FollowedID int64 `json:"followedId"`
}
