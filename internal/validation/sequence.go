package validation

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type sourceState struct {
	last   uint64
	recent map[uint64]struct{}
	order  []uint64 // insertion order of recent, oldest first
}

// SequenceTracker detects gaps and repeats per source. It is safe for
// concurrent use; the lock is held only for the map update.
type SequenceTracker struct {
	mu         sync.RWMutex
	sources    map[uint8]*sourceState
	maxTracked int
}

func NewSequenceTracker(maxTracked int) *SequenceTracker {
	return &SequenceTracker{sources: make(map[uint8]*sourceState), maxTracked: maxTracked}
}

// Validate checks seq against the source's history and records it on success.
// Rejected sequences leave the tracker unchanged.
func (t *SequenceTracker) Validate(source uint8, seq, maxGap uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sources[source]
	if !ok {
		st = &sourceState{recent: make(map[uint64]struct{})}
		t.sources[source] = st
		t.accept(st, seq)
		return nil
	}
	if _, dup := st.recent[seq]; dup || seq <= st.last {
		return &DuplicateSequenceError{Source: source, Sequence: seq}
	}
	gap := seq - st.last - 1
	if gap > maxGap {
		return &SequenceGapError{Source: source, Expected: st.last + 1, Actual: seq, Gap: gap}
	}
	if gap > 0 {
		log.Warn().Uint8("source", source).Uint64("gap", gap).Uint64("sequence", seq).
			Msg("validation: sequence gap within tolerance")
	}
	t.accept(st, seq)
	return nil
}

func (t *SequenceTracker) accept(st *sourceState, seq uint64) {
	st.last = seq
	st.recent[seq] = struct{}{}
	st.order = append(st.order, seq)
	for len(st.order) > t.maxTracked {
		delete(st.recent, st.order[0])
		st.order = st.order[1:]
	}
}

// Last returns the last accepted sequence for source.
func (t *SequenceTracker) Last(source uint8) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.sources[source]
	if !ok {
		return 0, false
	}
	return st.last, true
}

// Tracked is the size of the source's duplicate window.
func (t *SequenceTracker) Tracked(source uint8) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.sources[source]; ok {
		return len(st.recent)
	}
	return 0
}

// Reset forgets a source, e.g. after a producer restart.
func (t *SequenceTracker) Reset(source uint8) {
	t.mu.Lock()
	delete(t.sources, source)
	t.mu.Unlock()
}
