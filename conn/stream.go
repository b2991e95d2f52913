package conn

import (
	"sort"
	"sync"
)

// StreamPriority orders logical streams for scheduling; Critical drains
// first, Low last (subject to aging).
type StreamPriority int

const (
	PriorityLow StreamPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// MaxStreamsPerConnection is the per-connection logical stream ceiling
// (spec §4.2: "each connection carries ≤ 32 logical streams").
const MaxStreamsPerConnection = 32

// agingBoostPerTurn is added to a stream's effective priority every time it
// is passed over, so a Low stream eventually drains instead of starving.
const agingBoostPerTurn = 1

type pendingWrite struct {
	streamID uint64
	priority StreamPriority
	age      int
	data     []byte
}

// streamScheduler holds queued writes per logical stream and selects the
// next one to service by priority with aging.
type streamScheduler struct {
	mu      sync.Mutex
	streams map[uint64]StreamPriority
	queue   []*pendingWrite
}

func newStreamScheduler() *streamScheduler {
	return &streamScheduler{streams: make(map[uint64]StreamPriority)}
}

// Open registers a new logical stream id with a priority, failing with
// ErrStreamLimit once MaxStreamsPerConnection is reached.
func (s *streamScheduler) open(streamID uint64, priority StreamPriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.streams[streamID]; exists {
		return nil
	}
	if len(s.streams) >= MaxStreamsPerConnection {
		return ErrStreamLimit
	}
	s.streams[streamID] = priority
	return nil
}

func (s *streamScheduler) close(streamID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, streamID)
	kept := s.queue[:0]
	for _, w := range s.queue {
		if w.streamID != streamID {
			kept = append(kept, w)
		}
	}
	s.queue = kept
}

// enqueue appends a write for streamID using its registered priority.
func (s *streamScheduler) enqueue(streamID uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.streams[streamID]
	s.queue = append(s.queue, &pendingWrite{streamID: streamID, priority: p, data: data})
}

// next pops the highest-effective-priority write, aging every write left
// behind so low-priority streams are not starved indefinitely.
func (s *streamScheduler) next() (*pendingWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}

	sort.SliceStable(s.queue, func(i, j int) bool {
		return effectivePriority(s.queue[i]) > effectivePriority(s.queue[j])
	})

	w := s.queue[0]
	s.queue = s.queue[1:]
	for _, rest := range s.queue {
		rest.age += agingBoostPerTurn
	}
	return w, true
}

func effectivePriority(w *pendingWrite) int {
	return int(w.priority) + w.age
}

func (s *streamScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
