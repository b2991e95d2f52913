package dagstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/qrmesh/dagmix/ids"
	"golang.org/x/crypto/sha3"
)

// MaxPayloadSize bounds a vertex payload (spec §3: "opaque byte string,
// ≤ 1 MiB").
const MaxPayloadSize = 1 << 20

// conflictKeyPrefixLen is the payload prefix length fed into the conflict
// key derivation (spec §9 Open Question resolution: "a configured prefix
// function" over payload content).
const conflictKeyPrefixLen = 64

// State is a vertex's position in the lifecycle state machine (spec §3):
// Pending → Admitted → (Preferred ↔ Not-Preferred)* → Final | Rejected.
type State int

const (
	StatePending State = iota
	StateAdmitted
	StatePreferred
	StateNotPreferred
	StateFinal
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAdmitted:
		return "admitted"
	case StatePreferred:
		return "preferred"
	case StateNotPreferred:
		return "not_preferred"
	case StateFinal:
		return "final"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Vertex is the atomic unit of the DAG (spec §3).
type Vertex struct {
	ID          ids.VertexID
	Parents     []ids.VertexID
	Payload     []byte
	Timestamp   time.Time
	Author      ids.PeerID
	AuthorSig   []byte
	ConflictKey *[32]byte // nil if the vertex is not in any conflict set
}

// CanonicalBytes returns the deterministic byte encoding of v's preceding
// fields (payload ‖ sorted parents ‖ timestamp ‖ author), the input to the
// content-addressed id (spec §3 V1, §6).
func (v *Vertex) CanonicalBytes() []byte {
	parents := append([]ids.VertexID(nil), v.Parents...)
	sort.Slice(parents, func(i, j int) bool { return parents[i].Less(parents[j]) })

	var buf bytes.Buffer
	buf.Write(v.Payload)
	for _, p := range parents {
		buf.Write(p.Bytes())
	}
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(v.Timestamp.UnixNano()))
	buf.Write(tsBuf[:])
	buf.Write(v.Author.Bytes())
	return buf.Bytes()
}

// ComputeID deterministically recomputes v's id from its canonical bytes
// (spec §3 V1).
func (v *Vertex) ComputeID() ids.VertexID {
	sum := sha3.Sum256(v.CanonicalBytes())
	return ids.VertexID(sum)
}

// ConflictKeyFor derives the equivalence key used to group mutually
// exclusive vertices, as a SHA3-256 digest of the payload's first 64 bytes
// (spec §9 Open Question: conflict key derivation must be fixed and
// documented, not left to guesswork — see DESIGN.md).
func ConflictKeyFor(payload []byte) [32]byte {
	n := len(payload)
	if n > conflictKeyPrefixLen {
		n = conflictKeyPrefixLen
	}
	return sha3.Sum256(payload[:n])
}

// timeFromUnixNano reconstructs a UTC time.Time from nanoseconds since the
// epoch, the form vertices are persisted in (see persist.go).
func timeFromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// validateStructure checks V1 (id matches canonical bytes), rejects empty
// or oversized payloads, and rejects duplicate parent ids.
func (v *Vertex) validateStructure() error {
	if len(v.Payload) == 0 {
		return ErrEmptyPayload
	}
	if len(v.Payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	seen := make(map[ids.VertexID]bool, len(v.Parents))
	for _, p := range v.Parents {
		if seen[p] {
			return fmt.Errorf("%w: %s", ErrDuplicateParent, p.String())
		}
		seen[p] = true
	}
	if v.ComputeID() != v.ID {
		return fmt.Errorf("%w: id does not match canonical bytes", ErrInvariantViolation)
	}
	return nil
}
