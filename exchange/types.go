package exchange

import "bytes"

// Colour distinguishes the two replica groups being reconciled.
type Colour uint8

const (
	Blue Colour = iota
	Pink
)

func (c Colour) String() string {
	if c == Blue {
		return "blue"
	}
	return "pink"
}

// BranchID identifies a 1KB region of the hash tree.
type BranchID uint32

// SegmentID identifies a single leaf of the hash tree. It is produced by
// JoinSegment and is a single ordered identifier space (rather than a
// (BranchID, leaf) tuple) so that the ID Selector's window-width arithmetic
// (see selector.go) is well defined.
type SegmentID uint64

// JoinSegment combines a BranchID and a leaf index into a SegmentID, the way
// the tree library's join_segment operation is described in spec.md §4.4.
func JoinSegment(branch BranchID, leaf uint32) SegmentID {
	return SegmentID(branch)<<32 | SegmentID(leaf)
}

// Clock stands in for the external version-clock library's total order.
// Equality is Compare(other) == 0.
type Clock interface {
	Compare(other Clock) int
}

// KeyClock is an opaque (key, version-clock) tuple. Equality is by complete
// tuple value: both Key and Clock must compare equal.
type KeyClock struct {
	Key   []byte
	Clock Clock
}

// Equal reports whether k and other carry the same key and an equal clock.
func (k KeyClock) Equal(other KeyClock) bool {
	return bytes.Equal(k.Key, other.Key) && k.Clock.Compare(other.Clock) == 0
}

// compareKeyClock orders two KeyClocks first by clock, then by key, giving a
// total order suitable for sorting and deduplicating accumulated clock
// lists (spec.md §4.4's "clock merge").
func compareKeyClock(a, b KeyClock) int {
	if c := a.Clock.Compare(b.Clock); c != 0 {
		return c
	}
	return bytes.Compare(a.Key, b.Key)
}

// BranchEntry pairs a BranchID with its opaque branch blob.
type BranchEntry struct {
	Branch BranchID
	Blob   []byte
}

// ResultKind tags the shape carried by a Result/Accumulator, implementing
// the "tagged sum Acc = RootBlob | BranchList | ClockList" called for by
// spec.md §9 so the merge function and the reply payload are statically
// paired instead of stringly-typed.
type ResultKind uint8

const (
	RootResult ResultKind = iota
	BranchResult
	ClockResult
)

// Result is the reply payload for a phase request, and doubles as the
// per-colour accumulator shape (its zero value per Kind is the phase's
// initial accumulator).
type Result struct {
	Kind     ResultKind
	Root     []byte
	Branches []BranchEntry
	Clocks   []KeyClock
}

// MessageKind tags the three requests the engine can dispatch.
type MessageKind uint8

const (
	FetchRoot MessageKind = iota
	FetchBranches
	FetchClocks
)

// Message is a phase request handed to a SendCapability. BranchIDs is
// populated for FetchBranches, SegmentIDs for FetchClocks.
type Message struct {
	Kind       MessageKind
	BranchIDs  []BranchID
	SegmentIDs []SegmentID
}

// Preflist is an opaque vector of target descriptors that a SendCapability
// knows how to filter and dispatch to.
type Preflist []string

// SendCapability delivers msg to the targets described by pref for the
// given colour. It must return promptly (dispatch is non-blocking); it is
// responsible for eventually causing a Reply call on the owning Exchange.
// Failures inside a SendCapability are invisible to the engine and manifest
// only as a missed reply, per spec.md §4.2 and §7.
type SendCapability func(msg Message, pref Preflist, colour Colour)

// Target pairs a SendCapability with the preflist it should be invoked
// with.
type Target struct {
	Send     SendCapability
	Preflist Preflist
}

// TreeOps is the small capability interface through which the engine
// consumes the external hash-tree library (spec.md §1: "out of scope ...
// consumed through a small capability interface").
type TreeOps interface {
	// MergeRoot combines two opaque root blobs. Merging with nil/empty is
	// the identity; the operator is associative and commutative.
	MergeRoot(a, b []byte) []byte
	// CompareRoots returns the BranchIDs whose segments differ between the
	// two roots, ascending.
	CompareRoots(blue, pink []byte) []BranchID
	// MergeBranch combines two opaque branch blobs for the same BranchID.
	MergeBranch(existing, incoming []byte) []byte
	// DirtySegments returns the leaf indices that differ between two branch
	// blobs for the same BranchID.
	DirtySegments(blue, pink []byte) []uint32
}

// RepairAction is invoked exactly once, at ClockCompare exit, with the
// computed symmetric-difference repair set (which may be empty).
type RepairAction func(repairSet []KeyClock)

// ReplyAction is invoked exactly once, at exchange termination, with the
// terminal phase name.
type ReplyAction func(terminal Phase)
