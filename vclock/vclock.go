// Package vclock is a reference implementation of exchange.Clock, the
// small capability interface through which the engine consumes an
// external version-clock library (spec.md §1, §3). None of the example
// repositories ship a dedicated vector-clock dependency, and the engine
// itself treats Clock as wholly opaque — it only ever compares two
// instances, to sort and deduplicate — so this package is deliberately minimal and
// built on the standard library, recorded in DESIGN.md as the one
// justified stdlib-only component.
package vclock

import (
	"sort"
	"strconv"
	"strings"

	"github.com/meshkv/aee/exchange"
)

var _ exchange.Clock = Clock{}

// Clock is a map from replica identifier to the number of writes that
// replica has applied to the associated key, a standard vector clock.
type Clock map[string]uint64

// New returns an empty clock.
func New() Clock {
	return Clock{}
}

// Tick returns a copy of c with replica's counter incremented by one, the
// usual "record a local write" step.
func (c Clock) Tick(replica string) Clock {
	out := c.clone()
	out[replica] = out[replica] + 1
	return out
}

// Merge returns the pairwise max of c and other, the standard vector-clock
// join: commutative, associative, and idempotent.
func (c Clock) Merge(other Clock) Clock {
	out := c.clone()
	for replica, n := range other {
		if n > out[replica] {
			out[replica] = n
		}
	}
	return out
}

func (c Clock) clone() Clock {
	out := make(Clock, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Compare implements exchange.Clock, giving vector clocks a total order
// suitable for sorting and deduplication: two clocks compare equal exactly
// when they carry identical counters for every replica either mentions (an
// absent replica is equivalent to a zero counter); otherwise they compare
// by the counter of the lexicographically smallest replica identifier on
// which they differ. This total order
// has no causal meaning of its own — it exists only so the engine can sort
// and dedupe KeyClocks without knowing anything about vector clocks.
func (c Clock) Compare(other exchange.Clock) int {
	o, ok := other.(Clock)
	if !ok {
		panic("vclock: Compare called with a non-vclock.Clock")
	}
	replicas := make(map[string]struct{}, len(c)+len(o))
	for r := range c {
		replicas[r] = struct{}{}
	}
	for r := range o {
		replicas[r] = struct{}{}
	}
	sorted := make([]string, 0, len(replicas))
	for r := range replicas {
		sorted = append(sorted, r)
	}
	sort.Strings(sorted)
	for _, r := range sorted {
		switch {
		case c[r] < o[r]:
			return -1
		case c[r] > o[r]:
			return 1
		}
	}
	return 0
}

// String renders the clock as a deterministic, sorted "replica:n,..."
// sequence, useful for logging and test failure messages.
func (c Clock) String() string {
	replicas := make([]string, 0, len(c))
	for r := range c {
		replicas = append(replicas, r)
	}
	sort.Strings(replicas)
	parts := make([]string, 0, len(replicas))
	for _, r := range replicas {
		parts = append(parts, r+":"+strconv.FormatUint(c[r], 10))
	}
	return strings.Join(parts, ",")
}
