package state

import "sync"

// ScrollTarget addresses where the view should land after a mutation: a
// specific comment, or the bottom of the thread.
type ScrollTarget struct {
	Bottom    bool
	CommentID int64 // valid when Bottom is false
}

func Bottom() ScrollTarget { return ScrollTarget{Bottom: true} }

func ToComment(id int64) ScrollTarget { return ScrollTarget{CommentID: id} }

// ScrollSignal is a one-shot navigation intent. Producers set it when a
// mutation lands (comment created -> bottom, reply created -> the parent
// root); the view consumes it exactly once, so an unrelated re-render can
// never replay the same scroll.
type ScrollSignal struct {
	mu      sync.Mutex
	target  ScrollTarget
	pending bool
}

func NewScrollSignal() *ScrollSignal {
	return &ScrollSignal{}
}

// Set replaces any pending target.
func (s *ScrollSignal) Set(t ScrollTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = t
	s.pending = true
}

// Consume returns the pending target and clears it in the same step.
func (s *ScrollSignal) Consume() (ScrollTarget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return ScrollTarget{}, false
	}
	t := s.target
	s.target = ScrollTarget{}
	s.pending = false
	return t, true
}
