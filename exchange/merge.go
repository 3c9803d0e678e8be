package exchange

import "sort"

// mergeFunc folds an incoming reply into a colour's accumulator. All three
// phase families' merge functions are associative and commutative, so the
// final accumulator is independent of reply arrival order (spec.md §4.4,
// §5).
type mergeFunc func(acc, incoming Result, tree TreeOps) Result

func initialRootAcc() Result   { return Result{Kind: RootResult} }
func initialBranchAcc() Result { return Result{Kind: BranchResult} }
func initialClockAcc() Result  { return Result{Kind: ClockResult} }

// mergeRoot merges an incoming root blob into the accumulator via the tree
// library's merge operator. Merging with the empty blob is the identity.
func mergeRoot(acc, incoming Result, tree TreeOps) Result {
	acc.Kind = RootResult
	acc.Root = tree.MergeRoot(acc.Root, incoming.Root)
	return acc
}

// mergeBranch merges an incoming (BranchID, blob) sequence into the
// accumulator: a BranchID not yet present is appended, one already present
// has its blob merged via the tree library. Result order is unspecified.
func mergeBranch(acc, incoming Result, tree TreeOps) Result {
	acc.Kind = BranchResult
	for _, entry := range incoming.Branches {
		found := false
		for i, existing := range acc.Branches {
			if existing.Branch == entry.Branch {
				acc.Branches[i].Blob = tree.MergeBranch(existing.Blob, entry.Blob)
				found = true
				break
			}
		}
		if !found {
			acc.Branches = append(acc.Branches, entry)
		}
	}
	return acc
}

// mergeClock deduplicates and sorts the incoming batch by the clock
// library's total order, then order-preserving-merges it into the
// accumulator, producing a sorted sequence of unique (key, clock) entries.
func mergeClock(acc, incoming Result, tree TreeOps) Result {
	acc.Kind = ClockResult
	batch := append([]KeyClock(nil), incoming.Clocks...)
	acc.Clocks = mergeSortedUnique(acc.Clocks, sortUniqueKeyClocks(batch))
	return acc
}

// sortUniqueKeyClocks sorts ks by the clock's total order (tie-broken by
// key) and removes exact duplicates.
func sortUniqueKeyClocks(ks []KeyClock) []KeyClock {
	sort.Slice(ks, func(i, j int) bool { return compareKeyClock(ks[i], ks[j]) < 0 })
	out := ks[:0:0]
	for i, k := range ks {
		if i == 0 || !k.Equal(ks[i-1]) {
			out = append(out, k)
		}
	}
	return out
}

// mergeSortedUnique order-preserving-merges two sorted, deduplicated
// KeyClock sequences into one sorted, deduplicated sequence.
func mergeSortedUnique(a, b []KeyClock) []KeyClock {
	out := make([]KeyClock, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		c := compareKeyClock(a[i], b[j])
		switch {
		case c < 0:
			out = append(out, a[i])
			i++
		case c > 0:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
