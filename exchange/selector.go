package exchange

import "golang.org/x/exp/constraints"

// Intersect returns the subsequence of a whose elements appear in b,
// preserving a's order. Duplicates in a are preserved (spec.md §4.5).
func Intersect[T comparable](a, b []T) []T {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	in := make(map[T]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}
	out := make([]T, 0, len(a))
	for _, v := range a {
		if _, ok := in[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Select narrows a sorted ascending sequence of ids to at most maxN
// elements. If ids already fits within maxN it is returned unchanged;
// otherwise the contiguous window of exactly maxN elements that minimizes
// ids[start+maxN-1]-ids[start] is returned, ties broken by the earliest
// start index (spec.md §4.5).
func Select[T constraints.Integer](ids []T, maxN int) []T {
	if maxN <= 0 || len(ids) <= maxN {
		return ids
	}
	bestStart := 0
	bestWidth := ids[maxN-1] - ids[0]
	for start := 1; start+maxN-1 < len(ids); start++ {
		width := ids[start+maxN-1] - ids[start]
		if width < bestWidth {
			bestWidth = width
			bestStart = start
		}
	}
	return ids[bestStart : bestStart+maxN]
}
