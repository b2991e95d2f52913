package discovery

import (
	"sync"
	"time"

	"github.com/qrmesh/dagmix/ids"
)

// bucketEntry is one routing-table slot: a peer id plus its last-seen
// instant, used to decide which entry to evict when a bucket is full.
type bucketEntry struct {
	id       ids.PeerID
	lastSeen time.Time
}

// RoutingTable is a Kademlia-style set of K-buckets indexed by the common
// XOR-distance prefix length between a peer id and the local id (spec
// §4.3).
type RoutingTable struct {
	mu      sync.Mutex
	local   ids.PeerID
	k       int
	buckets [][]bucketEntry // index 0..256, prefix-length keyed
	now     func() time.Time
}

// NewRoutingTable creates a table for localID with bucketSize slots per
// bucket (257 buckets cover every possible common-prefix length, 0..256, of
// a 32-byte XOR distance).
func NewRoutingTable(localID ids.PeerID, bucketSize int, now func() time.Time) *RoutingTable {
	if now == nil {
		now = time.Now
	}
	return &RoutingTable{
		local:   localID,
		k:       bucketSize,
		buckets: make([][]bucketEntry, 257),
		now:     now,
	}
}

func (t *RoutingTable) bucketIndex(peer ids.PeerID) int {
	d := ids.XORDistance(t.local, peer)
	return ids.CommonPrefixLen(d)
}

// Insert adds or refreshes peer in its bucket. When the bucket is full, the
// least-recently-responsive entry is evicted (spec: "Insertions evict the
// least-recently-responsive peer when full").
func (t *RoutingTable) Insert(peer ids.PeerID) {
	if peer == t.local {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.bucketIndex(peer)
	bucket := t.buckets[idx]

	for i, e := range bucket {
		if e.id == peer {
			bucket[i].lastSeen = t.now()
			return
		}
	}

	if len(bucket) < t.k {
		t.buckets[idx] = append(bucket, bucketEntry{id: peer, lastSeen: t.now()})
		return
	}

	oldest := 0
	for i := 1; i < len(bucket); i++ {
		if bucket[i].lastSeen.Before(bucket[oldest].lastSeen) {
			oldest = i
		}
	}
	bucket[oldest] = bucketEntry{id: peer, lastSeen: t.now()}
}

// Touch refreshes a peer's last-seen instant without changing membership.
func (t *RoutingTable) Touch(peer ids.PeerID) {
	t.Insert(peer)
}

// Remove deletes peer from its bucket, if present.
func (t *RoutingTable) Remove(peer ids.PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.bucketIndex(peer)
	bucket := t.buckets[idx]
	for i, e := range bucket {
		if e.id == peer {
			t.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Contains reports whether peer is currently tracked.
func (t *RoutingTable) Contains(peer ids.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.bucketIndex(peer)
	for _, e := range t.buckets[idx] {
		if e.id == peer {
			return true
		}
	}
	return false
}

// All returns every peer currently tracked by the table, in no particular
// order.
func (t *RoutingTable) All() []ids.PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []ids.PeerID
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			out = append(out, e.id)
		}
	}
	return out
}

// Len reports the total number of tracked peers across all buckets.
func (t *RoutingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, bucket := range t.buckets {
		n += len(bucket)
	}
	return n
}
