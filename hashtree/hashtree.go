// Package hashtree is a reference implementation of exchange.TreeOps, the
// small capability interface through which the anti-entropy engine
// consumes an external hash-tree library (spec.md §1). The engine itself
// never builds a tree or owns key data; it only merges and compares the
// opaque root/branch blobs its replicas hand it. This package supplies one
// concrete, mergeable encoding for those blobs — each branch's segment
// hashes are combined with a lexicographically-max join, a small
// commutative, associative, idempotent operator (a join semilattice),
// which is what spec.md §4.4 requires of root/branch merge regardless of
// reply arrival order.
//
// Hashing uses the teacher's own hash package's choice of
// github.com/minio/sha256-simd.
package hashtree

import (
	"encoding/binary"
	"sort"

	"github.com/minio/sha256-simd"

	"github.com/meshkv/aee/exchange"
)

// HashSize is the digest size used for both leaf and root hashes.
const HashSize = sha256.Size

// Sum returns the SHA-256 digest of data.
func Sum(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// entry is a single (id, hash) pair as encoded in a root or branch blob.
type entry struct {
	id   uint32
	hash [HashSize]byte
}

func decode(blob []byte) []entry {
	const stride = 4 + HashSize
	n := len(blob) / stride
	out := make([]entry, 0, n)
	for i := 0; i < n; i++ {
		off := i * stride
		e := entry{id: binary.BigEndian.Uint32(blob[off : off+4])}
		copy(e.hash[:], blob[off+4:off+stride])
		out = append(out, e)
	}
	return out
}

func encode(entries []entry) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	const stride = 4 + HashSize
	out := make([]byte, 0, len(entries)*stride)
	for _, e := range entries {
		var idBuf [4]byte
		binary.BigEndian.PutUint32(idBuf[:], e.id)
		out = append(out, idBuf[:]...)
		out = append(out, e.hash[:]...)
	}
	return out
}

func maxHash(a, b [HashSize]byte) [HashSize]byte {
	for i := range a {
		switch {
		case a[i] > b[i]:
			return a
		case a[i] < b[i]:
			return b
		}
	}
	return a
}

// mergeEntries merges two entry sequences keyed by id, resolving
// conflicting hashes for the same id via lexicographic max: commutative,
// associative, and idempotent, so repeated or reordered merges of the same
// underlying data converge to the same blob (spec.md §4.4, §5).
func mergeEntries(a, b []entry) []entry {
	byID := make(map[uint32][HashSize]byte, len(a)+len(b))
	for _, e := range a {
		byID[e.id] = e.hash
	}
	for _, e := range b {
		if existing, ok := byID[e.id]; ok {
			byID[e.id] = maxHash(existing, e.hash)
		} else {
			byID[e.id] = e.hash
		}
	}
	out := make([]entry, 0, len(byID))
	for id, h := range byID {
		out = append(out, entry{id: id, hash: h})
	}
	return out
}

// diffEntries returns the ids present in a or b whose hash differs (or is
// missing on the other side), ascending.
func diffEntries(a, b []entry) []uint32 {
	byIDA := make(map[uint32][HashSize]byte, len(a))
	for _, e := range a {
		byIDA[e.id] = e.hash
	}
	byIDB := make(map[uint32][HashSize]byte, len(b))
	for _, e := range b {
		byIDB[e.id] = e.hash
	}
	var out []uint32
	for _, e := range a {
		if h, ok := byIDB[e.id]; !ok || h != e.hash {
			out = append(out, e.id)
		}
	}
	for _, e := range b {
		if _, ok := byIDA[e.id]; !ok {
			out = append(out, e.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return dedupUint32(out)
}

func dedupUint32(ids []uint32) []uint32 {
	out := ids[:0:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}

// Ops is the reference exchange.TreeOps implementation. It is stateless
// and safe for concurrent use by any number of exchanges.
type Ops struct{}

var _ exchange.TreeOps = Ops{}

// MergeRoot merges two root blobs. The empty blob is the identity.
func (Ops) MergeRoot(a, b []byte) []byte {
	return encode(mergeEntries(decode(a), decode(b)))
}

// CompareRoots returns the BranchIDs whose per-branch hash differs between
// the two roots, ascending.
func (Ops) CompareRoots(blue, pink []byte) []exchange.BranchID {
	ids := diffEntries(decode(blue), decode(pink))
	out := make([]exchange.BranchID, len(ids))
	for i, id := range ids {
		out[i] = exchange.BranchID(id)
	}
	return out
}

// MergeBranch merges two branch blobs for the same BranchID.
func (Ops) MergeBranch(existing, incoming []byte) []byte {
	return encode(mergeEntries(decode(existing), decode(incoming)))
}

// DirtySegments returns the leaf indices whose hash differs between two
// branch blobs for the same BranchID, ascending.
func (Ops) DirtySegments(blue, pink []byte) []uint32 {
	return diffEntries(decode(blue), decode(pink))
}

// BuildRoot encodes a root blob from a set of per-branch hashes, as a
// replica-side hash-tree implementation would do when answering a
// fetch_root request. It is not used by the engine itself, only by
// reference transports/tests standing in for a replica.
func BuildRoot(branchHashes map[uint32][HashSize]byte) []byte {
	entries := make([]entry, 0, len(branchHashes))
	for id, h := range branchHashes {
		entries = append(entries, entry{id: id, hash: h})
	}
	return encode(entries)
}

// BuildBranch encodes a branch blob from a set of per-leaf hashes.
func BuildBranch(leafHashes map[uint32][HashSize]byte) []byte {
	return BuildRoot(leafHashes)
}
