package hashtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meshkv/aee/exchange"
	"github.com/meshkv/aee/hashtree"
)

func TestMergeRootIdentity(t *testing.T) {
	ops := hashtree.Ops{}
	root := hashtree.BuildRoot(map[uint32][hashtree.HashSize]byte{1: hashtree.Sum([]byte("a"))})
	assert.Equal(t, root, ops.MergeRoot(nil, root))
	assert.Equal(t, root, ops.MergeRoot(root, nil))
}

func TestCompareRootsDetectsDivergence(t *testing.T) {
	ops := hashtree.Ops{}
	blue := hashtree.BuildRoot(map[uint32][hashtree.HashSize]byte{
		1: hashtree.Sum([]byte("a")),
		2: hashtree.Sum([]byte("b")),
	})
	pink := hashtree.BuildRoot(map[uint32][hashtree.HashSize]byte{
		1: hashtree.Sum([]byte("a")),
		2: hashtree.Sum([]byte("different")),
		3: hashtree.Sum([]byte("c")),
	})
	got := ops.CompareRoots(blue, pink)
	assert.ElementsMatch(t, got, []exchange.BranchID{2, 3})
}

func TestMergeRootConvergesRegardlessOfOrder(t *testing.T) {
	ops := hashtree.Ops{}
	a := hashtree.BuildRoot(map[uint32][hashtree.HashSize]byte{1: hashtree.Sum([]byte("a"))})
	b := hashtree.BuildRoot(map[uint32][hashtree.HashSize]byte{2: hashtree.Sum([]byte("b"))})
	c := hashtree.BuildRoot(map[uint32][hashtree.HashSize]byte{3: hashtree.Sum([]byte("c"))})

	left := ops.MergeRoot(ops.MergeRoot(a, b), c)
	right := ops.MergeRoot(a, ops.MergeRoot(b, c))
	assert.Equal(t, left, right)

	reordered := ops.MergeRoot(ops.MergeRoot(c, a), b)
	assert.Equal(t, left, reordered)
}

func TestDirtySegmentsBetweenBranches(t *testing.T) {
	ops := hashtree.Ops{}
	blue := hashtree.BuildBranch(map[uint32][hashtree.HashSize]byte{
		0: hashtree.Sum([]byte("v0")),
		1: hashtree.Sum([]byte("v1")),
	})
	pink := hashtree.BuildBranch(map[uint32][hashtree.HashSize]byte{
		0: hashtree.Sum([]byte("v0")),
		1: hashtree.Sum([]byte("v1-changed")),
		2: hashtree.Sum([]byte("v2")),
	})
	got := ops.DirtySegments(blue, pink)
	assert.ElementsMatch(t, got, []uint32{1, 2})
}
