package registry_test

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/meshkv/aee/exchange"
	"github.com/meshkv/aee/registry"
)

type nopTree struct{}

func (nopTree) MergeRoot(a, b []byte) []byte                 { return nil }
func (nopTree) CompareRoots(blue, pink []byte) []exchange.BranchID { return nil }
func (nopTree) MergeBranch(existing, incoming []byte) []byte { return nil }
func (nopTree) DirtySegments(blue, pink []byte) []uint32      { return nil }

func startExchange(t *testing.T) *exchange.Exchange {
	target := exchange.Target{Send: func(exchange.Message, exchange.Preflist, exchange.Colour) {}}
	ex, err := exchange.Start(
		[]exchange.Target{target},
		[]exchange.Target{target},
		nopTree{},
		func([]exchange.KeyClock) {},
		func(exchange.Phase) {},
		exchange.WithClock(clockwork.NewFakeClock()),
	)
	require.NoError(t, err)
	return ex
}

func TestAddGetRemove(t *testing.T) {
	r, err := registry.New(4)
	require.NoError(t, err)

	ex := startExchange(t)
	r.Add(ex)

	got, ok := r.Get(ex.ID())
	require.True(t, ok)
	require.Equal(t, ex, got)
	require.Equal(t, 1, r.Len())

	r.Remove(ex.ID())
	_, ok = r.Get(ex.ID())
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	r, err := registry.New(1)
	require.NoError(t, err)

	first := startExchange(t)
	second := startExchange(t)
	r.Add(first)
	r.Add(second)

	_, ok := r.Get(first.ID())
	require.False(t, ok, "first entry should have been evicted once the registry exceeded its bound")

	_, ok = r.Get(second.ID())
	require.True(t, ok)
}
