package state

import (
	"testing"
	"time"
)

var threadEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mkComment(id int64, parent *int64, offset time.Duration) Comment {
	return Comment{ID: id, ParentID: parent, AuthorID: "m", Content: "c", CreatedAt: threadEpoch.Add(offset)}
}

func int64p(n int64) *int64 { return &n }

func rootIDs(t *Thread) []int64 {
	roots := t.Roots()
	ids := make([]int64, len(roots))
	for i, c := range roots {
		ids[i] = c.ID
	}
	return ids
}

func TestThread_MergeOverlappingPages(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{mkComment(1, nil, 0), mkComment(2, nil, time.Minute)})
	th.ReplacePage(2, []Comment{mkComment(2, nil, time.Minute), mkComment(3, nil, 2*time.Minute)})

	got := rootIDs(th)
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("roots: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roots: got %v, want %v", got, want)
		}
	}
}

func TestThread_MergeIsIdempotent(t *testing.T) {
	th := NewThread()
	page2 := []Comment{mkComment(2, nil, time.Minute), mkComment(3, nil, 2*time.Minute)}
	th.ReplacePage(1, []Comment{mkComment(1, nil, 0), mkComment(2, nil, time.Minute)})
	th.ReplacePage(2, page2)
	before := th.Len()
	th.ReplacePage(2, page2)

	if th.Len() != before {
		t.Fatalf("re-merge changed the set: %d -> %d", before, th.Len())
	}
}

func TestThread_FirstPageReplacesWholesale(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{mkComment(1, nil, 0), mkComment(2, nil, time.Minute)})
	th.ReplacePage(1, []Comment{mkComment(9, nil, 0)})

	if th.Len() != 1 {
		t.Fatalf("expected wholesale replace on page 1, have %d comments", th.Len())
	}
	if _, ok := th.Get(1); ok {
		t.Fatal("old comment survived a page-1 replace")
	}
}

func TestThread_InsertLocalSortsByCreatedAt(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{mkComment(10, nil, 2*time.Minute)})
	// A locally created comment with an earlier timestamp sorts before it.
	th.InsertLocal(mkComment(11, nil, time.Minute))

	got := rootIDs(th)
	if len(got) != 2 || got[0] != 11 || got[1] != 10 {
		t.Fatalf("expected [11 10], got %v", got)
	}
}

func TestThread_Partitions(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{
		mkComment(1, nil, 0),
		mkComment(2, int64p(1), time.Minute),
		mkComment(3, int64p(1), 2*time.Minute),
		mkComment(4, nil, 3*time.Minute),
	})

	if got := rootIDs(th); len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Fatalf("roots: got %v, want [1 4]", got)
	}
	replies := th.RepliesOf(1)
	if len(replies) != 2 || replies[0].ID != 2 || replies[1].ID != 3 {
		t.Fatalf("replies of 1: got %v", replies)
	}
	if got := th.RepliesOf(4); len(got) != 0 {
		t.Fatalf("expected no replies of 4, got %v", got)
	}
}

func TestThread_BlockedCommentsHidden(t *testing.T) {
	th := NewThread()
	blocked := mkComment(2, nil, time.Minute)
	blocked.IsBlocked = true
	blockedReply := mkComment(3, int64p(1), 2*time.Minute)
	blockedReply.IsBlocked = true
	th.ReplacePage(1, []Comment{mkComment(1, nil, 0), blocked, blockedReply})

	if got := rootIDs(th); len(got) != 1 || got[0] != 1 {
		t.Fatalf("blocked root leaked into partition: %v", got)
	}
	if got := th.RepliesOf(1); len(got) != 0 {
		t.Fatalf("blocked reply leaked into partition: %v", got)
	}
	// Blocked entries still occupy the set for pagination arithmetic.
	if th.Len() != 3 {
		t.Fatalf("blocked comments dropped from the set: len=%d", th.Len())
	}
}

func TestThread_ReplyToReplyClampedToRoot(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{
		mkComment(1, nil, 0),
		mkComment(2, int64p(1), time.Minute),
	})
	// Malformed: parent 2 is itself a reply.
	th.InsertLocal(mkComment(3, int64p(2), 2*time.Minute))

	replies := th.RepliesOf(1)
	if len(replies) != 2 || replies[1].ID != 3 {
		t.Fatalf("deep reply not clamped onto root: %v", replies)
	}
	if got := th.RepliesOf(2); len(got) != 0 {
		t.Fatalf("third nesting level materialized: %v", got)
	}
}

func TestThread_DeepReplyBeforeParentClamped(t *testing.T) {
	th := NewThread()
	// The deep reply arrives ahead of its parent in the same page.
	th.ReplacePage(1, []Comment{
		mkComment(3, int64p(2), 2*time.Minute),
		mkComment(1, nil, 0),
		mkComment(2, int64p(1), time.Minute),
	})

	replies := th.RepliesOf(1)
	if len(replies) != 2 || replies[0].ID != 2 || replies[1].ID != 3 {
		t.Fatalf("deep reply not clamped onto root: %+v", replies)
	}
	if got := th.RepliesOf(2); len(got) != 0 {
		t.Fatalf("third nesting level materialized: %v", got)
	}
}

func TestThread_DeepReplyParentInLaterPage(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{
		mkComment(1, nil, 0),
		mkComment(3, int64p(2), 2*time.Minute),
	})
	// Upon page 1 the deep reply's parent is unknown, so it cannot render.
	if got := th.RepliesOf(1); len(got) != 0 {
		t.Fatalf("orphan rendered before its parent arrived: %v", got)
	}

	// The parent arrives in page 2; the merge settles the orphan onto the
	// root.
	th.ReplacePage(2, []Comment{mkComment(2, int64p(1), time.Minute)})
	replies := th.RepliesOf(1)
	if len(replies) != 2 || replies[0].ID != 2 || replies[1].ID != 3 {
		t.Fatalf("orphan not re-clamped after parent arrived: %+v", replies)
	}
}

func TestThread_RemoveRootOrphansReplies(t *testing.T) {
	th := NewThread()
	th.ReplacePage(1, []Comment{
		mkComment(1, nil, 0),
		mkComment(2, int64p(1), time.Minute),
	})
	th.Remove(1)

	if got := rootIDs(th); len(got) != 0 {
		t.Fatalf("removed root still listed: %v", got)
	}
	// The orphan stays in the set; it just has no root to render under.
	if _, ok := th.Get(2); !ok {
		t.Fatal("reply cascade-deleted locally; cascade belongs to the server")
	}
}
