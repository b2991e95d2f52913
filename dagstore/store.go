package dagstore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/qrmesh/dagmix/ids"
	"github.com/qrmesh/dagmix/set"
)

// AdmissionEvent is published whenever insert admits a vertex, for C8 to
// consume (spec §4.7: "Admission fires an event consumed by C8").
type AdmissionEvent struct {
	ID          ids.VertexID
	ConflictKey *[32]byte
}

// Store owns vertices and their indices exclusively (spec §3 Ownership).
// Tips and conflict-set indices are independent maps so writers never
// block readers of unrelated vertices (spec §5).
type Store struct {
	verticesMu sync.RWMutex
	vertices   map[ids.VertexID]*Vertex
	states     map[ids.VertexID]State
	children   map[ids.VertexID][]ids.VertexID

	tipsMu sync.RWMutex
	tips   map[ids.VertexID]struct{}

	genesisMu sync.Mutex
	genesisID *ids.VertexID

	pendingMu sync.Mutex
	pending   map[ids.VertexID][]*Vertex // keyed by the missing parent id

	conflictMu sync.RWMutex
	conflicts  map[[32]byte]set.Set[ids.VertexID]

	finalizedCount atomic.Uint64

	onAdmit func(AdmissionEvent)
}

// New constructs an empty Store. onAdmit, if non-nil, is invoked
// synchronously (under no store lock) for every newly admitted vertex.
func New(onAdmit func(AdmissionEvent)) *Store {
	return &Store{
		vertices:  make(map[ids.VertexID]*Vertex),
		states:    make(map[ids.VertexID]State),
		children:  make(map[ids.VertexID][]ids.VertexID),
		tips:      make(map[ids.VertexID]struct{}),
		pending:   make(map[ids.VertexID][]*Vertex),
		conflicts: make(map[[32]byte]set.Set[ids.VertexID]),
		onAdmit:   onAdmit,
	}
}

// Insert admits v if well-formed and its parents are already admitted;
// otherwise it buffers v in the pending set keyed by its first missing
// parent and retries it once that parent is admitted (spec §4.7).
// insert(v); insert(v) is idempotent: the second call returns ErrDuplicate.
func (s *Store) Insert(v *Vertex) error {
	if err := v.validateStructure(); err != nil {
		return err
	}
	if len(v.Parents) == 0 {
		if err := s.checkGenesis(v.ID); err != nil {
			return err
		}
	}

	s.verticesMu.RLock()
	_, exists := s.vertices[v.ID]
	s.verticesMu.RUnlock()
	if exists {
		return ErrDuplicate
	}

	missing, err := s.missingParent(v)
	if err != nil {
		return err
	}
	if missing != nil {
		s.bufferPending(*missing, v)
		return nil
	}

	return s.admit(v)
}

// missingParent returns the first parent of v not yet admitted, or nil if
// all are present. It also performs the acyclicity check V3 against
// already-admitted ancestors.
func (s *Store) missingParent(v *Vertex) (*ids.VertexID, error) {
	s.verticesMu.RLock()
	defer s.verticesMu.RUnlock()

	for _, p := range v.Parents {
		if _, ok := s.vertices[p]; !ok {
			missing := p
			return &missing, nil
		}
	}

	ancestors := s.ancestorsLocked(v.Parents, 0)
	if ancestors[v.ID] {
		return nil, fmt.Errorf("%w: %s would be its own ancestor", ErrInvariantViolation, v.ID.String())
	}
	return nil, nil
}

// checkGenesis enforces V4 (exactly one genesis vertex per store instance):
// the first empty-parents vertex ever inserted fixes this store's genesis
// id for its lifetime; any later empty-parents vertex must match it exactly.
func (s *Store) checkGenesis(id ids.VertexID) error {
	s.genesisMu.Lock()
	defer s.genesisMu.Unlock()
	if s.genesisID == nil {
		gid := id
		s.genesisID = &gid
		return nil
	}
	if *s.genesisID != id {
		return fmt.Errorf("%w: got %s, want %s", ErrGenesisConflict, id.String(), s.genesisID.String())
	}
	return nil
}

// GenesisID returns this store's genesis vertex id, if one has been
// admitted yet.
func (s *Store) GenesisID() (ids.VertexID, bool) {
	s.genesisMu.Lock()
	defer s.genesisMu.Unlock()
	if s.genesisID == nil {
		return ids.VertexID{}, false
	}
	return *s.genesisID, true
}

func (s *Store) bufferPending(missing ids.VertexID, v *Vertex) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[missing] = append(s.pending[missing], v)
}

// admit records v as Admitted, updates tips/children/conflict indices, and
// retries any pending vertex that was waiting on v.
func (s *Store) admit(v *Vertex) error {
	s.verticesMu.Lock()
	s.vertices[v.ID] = v
	s.states[v.ID] = StateAdmitted
	for _, p := range v.Parents {
		s.children[p] = append(s.children[p], v.ID)
	}
	s.verticesMu.Unlock()

	s.tipsMu.Lock()
	s.tips[v.ID] = struct{}{}
	for _, p := range v.Parents {
		delete(s.tips, p)
	}
	s.tipsMu.Unlock()

	if v.ConflictKey != nil {
		s.conflictMu.Lock()
		members, ok := s.conflicts[*v.ConflictKey]
		if !ok {
			members = make(set.Set[ids.VertexID])
			s.conflicts[*v.ConflictKey] = members
		}
		members.Add(v.ID)
		s.conflictMu.Unlock()
	}

	if s.onAdmit != nil {
		s.onAdmit(AdmissionEvent{ID: v.ID, ConflictKey: v.ConflictKey})
	}

	s.retryPending(v.ID)
	return nil
}

func (s *Store) retryPending(admittedID ids.VertexID) {
	s.pendingMu.Lock()
	waiters := s.pending[admittedID]
	delete(s.pending, admittedID)
	s.pendingMu.Unlock()

	for _, w := range waiters {
		_ = s.Insert(w)
	}
}

// Get returns the vertex with id, if admitted.
func (s *Store) Get(id ids.VertexID) (*Vertex, bool) {
	s.verticesMu.RLock()
	defer s.verticesMu.RUnlock()
	v, ok := s.vertices[id]
	return v, ok
}

// State returns id's current lifecycle state.
func (s *Store) State(id ids.VertexID) (State, bool) {
	s.verticesMu.RLock()
	defer s.verticesMu.RUnlock()
	st, ok := s.states[id]
	return st, ok
}

// SetState transitions id to st. Transitioning a vertex to Final also
// transitions every other member of its conflict set to Rejected (spec
// §4.7: "membership is append-only until a vertex in the set reaches
// Final, at which point siblings transition to Rejected").
func (s *Store) SetState(id ids.VertexID, st State) error {
	s.verticesMu.Lock()
	v, ok := s.vertices[id]
	if !ok {
		s.verticesMu.Unlock()
		return ErrUnknownVertex
	}
	s.states[id] = st
	s.verticesMu.Unlock()

	if st == StateFinal {
		s.finalizedCount.Add(1)
	}

	if st != StateFinal || v.ConflictKey == nil {
		return nil
	}

	s.conflictMu.RLock()
	members, ok := s.conflicts[*v.ConflictKey]
	s.conflictMu.RUnlock()
	if !ok {
		return nil
	}

	s.verticesMu.Lock()
	for _, sibling := range members.List() {
		if sibling != id {
			s.states[sibling] = StateRejected
		}
	}
	s.verticesMu.Unlock()
	return nil
}

// Tips returns the current tip set: vertices with no known children.
func (s *Store) Tips() []ids.VertexID {
	s.tipsMu.RLock()
	defer s.tipsMu.RUnlock()
	out := make([]ids.VertexID, 0, len(s.tips))
	for id := range s.tips {
		out = append(out, id)
	}
	return out
}

// Children returns id's direct children.
func (s *Store) Children(id ids.VertexID) []ids.VertexID {
	s.verticesMu.RLock()
	defer s.verticesMu.RUnlock()
	return append([]ids.VertexID(nil), s.children[id]...)
}

// AncestorsReachable returns up to limit transitive ancestors of id
// (breadth-first), or all of them if limit <= 0.
func (s *Store) AncestorsReachable(id ids.VertexID, limit int) []ids.VertexID {
	s.verticesMu.RLock()
	defer s.verticesMu.RUnlock()

	v, ok := s.vertices[id]
	if !ok {
		return nil
	}
	seen := s.ancestorsLocked(v.Parents, limit)
	out := make([]ids.VertexID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// ancestorsLocked performs a BFS over already-admitted ancestors of
// roots, bounded by limit (0 = unbounded). Must be called with
// verticesMu held (read or write).
func (s *Store) ancestorsLocked(roots []ids.VertexID, limit int) map[ids.VertexID]bool {
	seen := make(map[ids.VertexID]bool)
	queue := append([]ids.VertexID(nil), roots...)
	for len(queue) > 0 {
		if limit > 0 && len(seen) >= limit {
			break
		}
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := s.vertices[id]; ok {
			queue = append(queue, v.Parents...)
		}
	}
	return seen
}

// InConflictWith returns the other members of id's conflict set, if any.
func (s *Store) InConflictWith(id ids.VertexID) []ids.VertexID {
	s.verticesMu.RLock()
	v, ok := s.vertices[id]
	s.verticesMu.RUnlock()
	if !ok || v.ConflictKey == nil {
		return nil
	}

	s.conflictMu.RLock()
	members, ok := s.conflicts[*v.ConflictKey]
	s.conflictMu.RUnlock()
	if !ok {
		return nil
	}

	out := make([]ids.VertexID, 0, members.Len())
	for _, m := range members.List() {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}

// Len reports the number of admitted vertices.
func (s *Store) Len() int {
	s.verticesMu.RLock()
	defer s.verticesMu.RUnlock()
	return len(s.vertices)
}

// FinalizedCount reports how many vertices have ever transitioned to
// Final (monotonic; it does not decrease when Compact prunes them).
func (s *Store) FinalizedCount() uint64 {
	return s.finalizedCount.Load()
}

// Compact drops in-memory bookkeeping (vertex, state, child list and
// conflict-set membership) for each id in finalized whose state is Final or
// Rejected, and returns how many were pruned; other ids are skipped. The
// caller chooses which vertices to compact, typically after flushing them
// to a Log, from which they stay retrievable; only the live Store's indices
// are pruned, bounding its memory footprint under sustained throughput
// (SPEC_FULL §6 C7 supplement).
func (s *Store) Compact(finalized []ids.VertexID) int {
	s.verticesMu.Lock()
	defer s.verticesMu.Unlock()

	pruned := 0
	for _, id := range finalized {
		st, ok := s.states[id]
		if !ok || (st != StateFinal && st != StateRejected) {
			continue
		}
		v := s.vertices[id]
		delete(s.vertices, id)
		delete(s.states, id)
		delete(s.children, id)
		if v != nil && v.ConflictKey != nil {
			s.conflictMu.Lock()
			if members, ok := s.conflicts[*v.ConflictKey]; ok {
				members.Remove(id)
				if members.Len() == 0 {
					delete(s.conflicts, *v.ConflictKey)
				}
			}
			s.conflictMu.Unlock()
		}
		pruned++
	}
	return pruned
}
