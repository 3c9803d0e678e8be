package local_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshkv/aee/exchange"
	"github.com/meshkv/aee/hashtree"
	"github.com/meshkv/aee/transport/local"
	"github.com/meshkv/aee/vclock"
)

func TestMapStoreRootAgreesAfterIdenticalWrites(t *testing.T) {
	a := local.NewMapStore()
	b := local.NewMapStore()
	clock := vclock.New().Tick("r")

	for i := 0; i < 50; i++ {
		key := []byte{byte(i)}
		val := []byte{byte(i), byte(i * 2)}
		a.Put(key, val, clock)
		b.Put(key, val, clock)
	}

	assert.Equal(t, a.Root(), b.Root())
}

func TestMapStoreRootDivergesOnOneExtraKey(t *testing.T) {
	a := local.NewMapStore()
	b := local.NewMapStore()
	clock := vclock.New().Tick("r")

	for i := 0; i < 20; i++ {
		key := []byte{byte(i)}
		a.Put(key, key, clock)
		b.Put(key, key, clock)
	}
	b.Put([]byte("extra"), []byte("v"), clock)

	assert.NotEqual(t, a.Root(), b.Root())
}

func TestReplicaTargetAnswersFetchRoot(t *testing.T) {
	store := local.NewMapStore()
	store.Put([]byte("k"), []byte("v"), vclock.New().Tick("r"))

	replica := local.NewReplica(hashtree.Ops{}, local.VNode{Name: "v0", Store: store})

	var got exchange.Result
	var gotColour exchange.Colour
	reply := func(colour exchange.Colour, result exchange.Result) {
		gotColour = colour
		got = result
	}
	target := replica.Target(reply, exchange.Preflist{"v0"})
	target.Send(exchange.Message{Kind: exchange.FetchRoot}, target.Preflist, exchange.Blue)

	require.Equal(t, exchange.Blue, gotColour)
	assert.Equal(t, store.Root(), got.Root)
}

func TestReplicaTargetMergesMultipleVnodes(t *testing.T) {
	s1 := local.NewMapStore()
	s2 := local.NewMapStore()
	clock := vclock.New().Tick("r")
	s1.Put([]byte("a"), []byte("1"), clock)
	s2.Put([]byte("b"), []byte("2"), clock)

	replica := local.NewReplica(hashtree.Ops{},
		local.VNode{Name: "v0", Store: s1},
		local.VNode{Name: "v1", Store: s2},
	)

	combined := local.NewMapStore()
	combined.Put([]byte("a"), []byte("1"), clock)
	combined.Put([]byte("b"), []byte("2"), clock)

	var got exchange.Result
	reply := func(colour exchange.Colour, result exchange.Result) { got = result }
	target := replica.Target(reply, exchange.Preflist{"v0", "v1"})
	target.Send(exchange.Message{Kind: exchange.FetchRoot}, target.Preflist, exchange.Pink)

	assert.Equal(t, combined.Root(), got.Root)
}
