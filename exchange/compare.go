package exchange

import "sort"

// compareRoots returns the BranchIDs where the two roots' segments differ,
// ascending, as reported by the tree library's dirty-segment finder
// (spec.md §4.4).
func compareRoots(blue, pink Result, tree TreeOps) []BranchID {
	ids := tree.CompareRoots(blue.Root, pink.Root)
	out := append([]BranchID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// compareBranches returns the SegmentIDs where the two branch lists
// differ. For each BranchID present in both lists it asks the tree library
// for the dirty leaf indices between the two blobs and joins them with the
// BranchID. A BranchID present on only one side contributes nothing: well
// formed replies reach BranchCompare via the same redispatched BranchIDs
// list on both colours, so this case should not occur (spec.md §4.4, §9).
func compareBranches(blue, pink Result, tree TreeOps) []SegmentID {
	pinkByBranch := make(map[BranchID][]byte, len(pink.Branches))
	for _, e := range pink.Branches {
		pinkByBranch[e.Branch] = e.Blob
	}

	var out []SegmentID
	for _, e := range blue.Branches {
		pinkBlob, ok := pinkByBranch[e.Branch]
		if !ok {
			continue
		}
		for _, leaf := range tree.DirtySegments(e.Blob, pinkBlob) {
			out = append(out, JoinSegment(e.Branch, leaf))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// compareClocks computes the symmetric difference of the two clock lists:
// entries present in blue but not pink, merged with entries present in
// pink but not blue, producing a sorted unique sequence. Equality is by
// complete tuple value: a key present on both sides with differing clocks
// contributes both versions (spec.md §4.4).
func compareClocks(blue, pink Result) []KeyClock {
	a := sortUniqueKeyClocks(append([]KeyClock(nil), blue.Clocks...))
	b := sortUniqueKeyClocks(append([]KeyClock(nil), pink.Clocks...))

	var diff []KeyClock
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := compareKeyClock(a[i], b[j]); {
		case c < 0:
			diff = append(diff, a[i])
			i++
		case c > 0:
			diff = append(diff, b[j])
			j++
		default:
			i++
			j++
		}
	}
	diff = append(diff, a[i:]...)
	diff = append(diff, b[j:]...)
	return diff
}
