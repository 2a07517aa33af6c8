package state

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Outcome reports how a toggle attempt resolved.
type Outcome int

const (
	// OutcomeDropped means another toggle for the same (kind, id) was in
	// flight. The attempt made no remote call and changed no state.
	OutcomeDropped Outcome = iota
	// OutcomeApplied means the optimistic flip stands, reconciled with the
	// server response where it carried authoritative fields.
	OutcomeApplied
	// OutcomeRolledBack means the remote call failed and the pre-flip
	// snapshot was restored.
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDropped:
		return "dropped"
	case OutcomeApplied:
		return "applied"
	case OutcomeRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Snapshot is the caller-observed state just before a toggle: the value the
// user sees and, for counted kinds, the displayed aggregate.
type Snapshot struct {
	Value bool
	Count *int
}

// ToggleResult carries the authoritative fields a toggle endpoint may return.
// Nil fields mean "trust the optimistic value".
type ToggleResult struct {
	Value *bool
	Count *int
}

// RemoteToggle performs the server-side flip to next.
type RemoteToggle func(ctx context.Context, next bool) (ToggleResult, error)

type flightKey struct {
	kind Kind
	id   int64
}

// Mutator is the shared flip-now-confirm-later executor behind every like,
// scrap, follow and reply-like action. It enforces at most one in-flight
// mutation per (kind, id): taps landing while one is pending are dropped, not
// queued, because a queued flip could resolve against a stale snapshot.
type Mutator struct {
	cache *InteractionCache
	log   *zap.Logger

	mu       sync.Mutex
	inFlight map[flightKey]struct{}
}

func NewMutator(cache *InteractionCache, log *zap.Logger) *Mutator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mutator{
		cache:    cache,
		log:      log,
		inFlight: make(map[flightKey]struct{}),
	}
}

// Toggle flips (kind, id) in the cache immediately, then runs call. On
// success any authoritative fields in the response overwrite the cache; on
// failure the snapshot taken before the flip is restored exactly, never a
// recomputation, so rapid taps cannot compound an error. The returned error
// is the remote failure behind OutcomeRolledBack; it is a user-notice signal,
// not a broken invariant.
func (m *Mutator) Toggle(ctx context.Context, kind Kind, id int64, snap Snapshot, call RemoteToggle) (Outcome, error) {
	key := flightKey{kind: kind, id: id}
	m.mu.Lock()
	if _, busy := m.inFlight[key]; busy {
		m.mu.Unlock()
		return OutcomeDropped, nil
	}
	m.inFlight[key] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, key)
		m.mu.Unlock()
	}()

	next := !snap.Value
	var nextCount *int
	if snap.Count != nil {
		n := *snap.Count + 1
		if snap.Value {
			n = *snap.Count - 1
		}
		if n < 0 {
			n = 0
		}
		nextCount = &n
	}
	m.cache.Set(kind, id, next, nextCount)

	res, err := call(ctx, next)
	if err != nil {
		m.cache.Set(kind, id, snap.Value, snap.Count)
		m.log.Warn("toggle rolled back",
			zap.String("kind", kind.String()),
			zap.Int64("id", id),
			zap.Error(err))
		return OutcomeRolledBack, err
	}

	if res.Value != nil || res.Count != nil {
		value := next
		if res.Value != nil {
			value = *res.Value
		}
		count := nextCount
		if res.Count != nil {
			count = res.Count
		}
		m.cache.Set(kind, id, value, count)
	}
	return OutcomeApplied, nil
}
