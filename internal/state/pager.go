package state

import "sync"

// Pager tracks the cursor for one paginated listing: comments under a post,
// a board's posts, scraps, events. Exactly one listing context owns a Pager
// at a time.
//
// Fetches are identified by a generation token so that a page requested
// before a Reset can be told apart from one requested after it. The token is
// what lets the owner discard a stale page instead of merging it into the
// next listing identity.
type Pager struct {
	mu       sync.Mutex
	page     int
	size     int
	gen      int
	last     bool
	inFlight bool
}

const defaultPageSize = 20

func NewPager(size int) *Pager {
	if size <= 0 {
		size = defaultPageSize
	}
	return &Pager{page: 1, size: size}
}

// TryBegin returns the page to fetch next and the generation token the fetch
// must hand back to Complete or Abort. It refuses while the last page is
// already loaded or a fetch is in flight, so one visibility trigger maps to
// at most one outstanding request.
func (p *Pager) TryBegin() (page, gen int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last || p.inFlight {
		return 0, 0, false
	}
	p.inFlight = true
	return p.page, p.gen, true
}

// Complete records a merged page and advances the cursor. It reports whether
// the completion was accepted: a token minted before a Reset is refused, and
// the caller must then discard the fetched page rather than merge it. The
// refusal is what keeps a fetch from the previous listing identity from
// advancing the cursor the new identity owns.
func (p *Pager) Complete(gen int, isLast bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inFlight || gen != p.gen {
		return false
	}
	p.inFlight = false
	p.page++
	p.last = isLast
	return true
}

// Abort releases the in-flight slot without advancing. The next visibility
// trigger retries the same page; isLast is left untouched. A stale token is
// ignored so a failed fetch from before a Reset cannot release the slot of
// a fetch the new identity already started.
func (p *Pager) Abort(gen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.inFlight = false
}

// Reset rewinds to the first page on an identity change of the listing
// (switching tabs, posts, filters) and invalidates every token minted before
// it. The caller must clear the associated store together with the reset,
// before issuing the next fetch.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.page = 1
	p.last = false
	p.inFlight = false
}

func (p *Pager) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Last reports whether the final page has been merged.
func (p *Pager) Last() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
