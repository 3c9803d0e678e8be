package exchange

import (
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testHarness wires a fake clock and a pair of reflecting Targets so a
// test can drive an Exchange to completion without depending on wall-clock
// time or on knowing in advance how many inter-phase pauses a given
// scenario needs. A background goroutine advances the fake clock in small
// steps until the exchange terminates, which fires whichever pause or
// deadline the actor is currently parked on without the test having to
// count phases.
type testHarness struct {
	t    *testing.T
	ex   *Exchange
	stop chan struct{}

	repairSet []KeyClock
	terminal  Phase
	done      chan struct{}
}

func newTestHarness(t *testing.T, tree TreeOps, blueReply, pinkReply func(Message) Result) *testHarness {
	h := &testHarness{
		t:    t,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	clock := clockwork.NewFakeClock()

	var ex *Exchange
	blueTarget := Target{
		Send: func(msg Message, pref Preflist, colour Colour) {
			ex.Reply(colour, blueReply(msg))
		},
	}
	pinkTarget := Target{
		Send: func(msg Message, pref Preflist, colour Colour) {
			ex.Reply(colour, pinkReply(msg))
		},
	}

	ex, err := Start(
		[]Target{blueTarget},
		[]Target{pinkTarget},
		tree,
		func(rs []KeyClock) { h.repairSet = rs },
		func(p Phase) { h.terminal = p; close(h.done) },
		WithClock(clock),
		WithRand(rand.New(rand.NewSource(1))),
		WithLogger(zaptest.NewLogger(t)),
		WithConfig(Config{
			TransitionPauseMS: 20,
			CacheTimeoutMS:    3_600_000,
			ScanTimeoutMS:     3_600_000,
			MaxBranchResults:  16,
			MaxClockResults:   128,
		}),
	)
	require.NoError(t, err)
	h.ex = ex

	go func() {
		for {
			select {
			case <-h.stop:
				return
			case <-h.done:
				return
			default:
			}
			clock.Advance(10 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}()

	return h
}

func (h *testHarness) awaitTermination() {
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		h.t.Fatal("exchange did not terminate")
	}
	close(h.stop)
}

func rootResult(blob []byte) func(Message) Result {
	return func(Message) Result { return Result{Kind: RootResult, Root: blob} }
}

func TestExchangeTerminatesAtRootCompareWhenRootsMatch(t *testing.T) {
	tree := fakeTree{}
	blob := encodeIDs([]uint32{1, 2, 3})
	h := newTestHarness(t, tree, rootResult(blob), rootResult(blob))

	h.awaitTermination()

	require.Equal(t, RootCompare, h.terminal)
	require.Empty(t, h.repairSet)
}

func TestExchangeReachesClockCompareAndRepairsOneKey(t *testing.T) {
	tree := fakeTree{}
	rootA := encodeIDs([]uint32{5})
	rootB := encodeIDs([]uint32{5, 6})

	divergentKey := []byte("K")
	pinkClocks := []KeyClock{{Key: divergentKey, Clock: fakeClock(1)}}

	branchBlobBlue := encodeIDs([]uint32{10})
	branchBlobPink := encodeIDs([]uint32{10, 11})

	blueReply := func(msg Message) Result {
		switch msg.Kind {
		case FetchRoot:
			return Result{Kind: RootResult, Root: rootA}
		case FetchBranches:
			return Result{Kind: BranchResult, Branches: []BranchEntry{{Branch: 6, Blob: branchBlobBlue}}}
		default:
			return Result{Kind: ClockResult}
		}
	}
	pinkReply := func(msg Message) Result {
		switch msg.Kind {
		case FetchRoot:
			return Result{Kind: RootResult, Root: rootB}
		case FetchBranches:
			return Result{Kind: BranchResult, Branches: []BranchEntry{{Branch: 6, Blob: branchBlobPink}}}
		default:
			return Result{Kind: ClockResult, Clocks: pinkClocks}
		}
	}

	h := newTestHarness(t, tree, blueReply, pinkReply)
	h.awaitTermination()

	require.Equal(t, Complete, h.terminal)
	require.Len(t, h.repairSet, 1)
	require.Equal(t, divergentKey, h.repairSet[0].Key)
}

func TestExchangeReplyActionInvokedExactlyOnce(t *testing.T) {
	tree := fakeTree{}
	blob := encodeIDs([]uint32{1})

	calls := 0
	h := &testHarness{stop: make(chan struct{}), done: make(chan struct{})}
	clock := clockwork.NewFakeClock()

	var ex *Exchange
	target := Target{Send: func(msg Message, pref Preflist, c Colour) {
		ex.Reply(c, Result{Kind: RootResult, Root: blob})
	}}

	ex, err := Start(
		[]Target{target},
		[]Target{target},
		tree,
		func([]KeyClock) {},
		func(Phase) { calls++; close(h.done) },
		WithClock(clock),
		WithRand(rand.New(rand.NewSource(2))),
		WithLogger(zaptest.NewLogger(t)),
		WithConfig(Config{TransitionPauseMS: 20, CacheTimeoutMS: 3_600_000, ScanTimeoutMS: 3_600_000, MaxBranchResults: 16, MaxClockResults: 128}),
	)
	require.NoError(t, err)
	h.ex = ex

	go func() {
		for {
			select {
			case <-h.done:
				return
			default:
			}
			clock.Advance(10 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("exchange did not terminate")
	}

	// A late reply after termination must not trigger a second call.
	ex.Reply(Blue, Result{Kind: RootResult, Root: blob})
	time.Sleep(10 * time.Millisecond)

	require.Equal(t, 1, calls)
}
