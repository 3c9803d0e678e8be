package local

import (
	"sort"
	"sync"

	"github.com/meshkv/aee/exchange"
	"github.com/meshkv/aee/hashtree"
)

// SegmentsPerBranch fixes how many leaves MapStore partitions each branch
// into, mirroring the 1KB-region/leaf-segment layout spec.md §3 describes
// for the hash tree.
const SegmentsPerBranch = 64

type mapRecord struct {
	value []byte
	clock exchange.Clock
}

// MapStore is a reference local.Store over an in-memory key/value map,
// suitable for tests and the aeectl demo. Keys are partitioned into
// branches and leaves by hashing, and Root/Branch blobs are recomputed on
// demand rather than incrementally maintained — acceptable for a reference
// store standing in for a real hash-tree-backed datastore.
type MapStore struct {
	mu      sync.RWMutex
	records map[string]mapRecord
}

// NewMapStore returns an empty store.
func NewMapStore() *MapStore {
	return &MapStore{records: make(map[string]mapRecord)}
}

// Put inserts or overwrites a key's value and clock.
func (m *MapStore) Put(key []byte, value []byte, clock exchange.Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[string(key)] = mapRecord{value: append([]byte(nil), value...), clock: clock}
}

// Delete removes a key entirely.
func (m *MapStore) Delete(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, string(key))
}

func (m *MapStore) locate(key []byte) (exchange.BranchID, uint32) {
	h := hashtree.Sum(key)
	branch := exchange.BranchID(h[0])<<24 | exchange.BranchID(h[1])<<16 | exchange.BranchID(h[2])<<8 | exchange.BranchID(h[3])
	leaf := uint32(h[4]) % SegmentsPerBranch
	return branch, leaf
}

// Root implements local.Store by hashing each key into a branch and
// leaf-merging the per-branch leaf hashes into one hash per branch.
func (m *MapStore) Root() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	branches := make(map[uint32]map[uint32][hashtree.HashSize]byte)
	for key, rec := range m.records {
		branch, leaf := m.locate([]byte(key))
		if branches[uint32(branch)] == nil {
			branches[uint32(branch)] = make(map[uint32][hashtree.HashSize]byte)
		}
		branches[uint32(branch)][leaf] = hashtree.Sum(rec.value)
	}
	out := make(map[uint32][hashtree.HashSize]byte, len(branches))
	for branch, leaves := range branches {
		out[branch] = hashtree.Sum(hashtree.BuildBranch(leaves))
	}
	return hashtree.BuildRoot(out)
}

// Branch implements local.Store by returning the leaf-hash blob for a
// single branch.
func (m *MapStore) Branch(id exchange.BranchID) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	leaves := make(map[uint32][hashtree.HashSize]byte)
	for key, rec := range m.records {
		branch, leaf := m.locate([]byte(key))
		if branch == id {
			leaves[leaf] = hashtree.Sum(rec.value)
		}
	}
	return hashtree.BuildBranch(leaves)
}

// Clocks implements local.Store by returning the (key, clock) pairs of
// every key that hashes into seg's (branch, leaf) pair.
func (m *MapStore) Clocks(seg exchange.SegmentID) []exchange.KeyClock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []exchange.KeyClock
	for key, rec := range m.records {
		branch, leaf := m.locate([]byte(key))
		if exchange.JoinSegment(branch, leaf) == seg {
			out = append(out, exchange.KeyClock{Key: []byte(key), Clock: rec.clock})
		}
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out
}

var _ Store = (*MapStore)(nil)
