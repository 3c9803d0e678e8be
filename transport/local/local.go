// Package local is a reference, in-memory implementation of the transport
// plumbing the engine consumes only through exchange.SendCapability and
// exchange.Target (spec.md §1, §3). It stands in for a real RPC/gossip
// transport the way the teacher repo's sync2/rangesync tests stand in for
// a network connection with a fakeConduit: a Replica answers phase
// requests against a fixed set of named vnodes with no network hop at
// all, which is enough to drive an exchange end to end in tests and in
// the aeectl demo binary.
//
// A preflist may name several vnodes for one Target; Replica fans the
// request out to each of them concurrently with golang.org/x/sync/errgroup
// and merges their answers into the single Result the engine expects per
// dispatched Target (spec.md §4.2's target/preflist cardinality).
package local

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meshkv/aee/exchange"
)

// Store answers the three phase requests for one vnode's share of the
// keyspace.
type Store interface {
	Root() []byte
	Branch(id exchange.BranchID) []byte
	Clocks(seg exchange.SegmentID) []exchange.KeyClock
}

// VNode is one addressable member of a preflist.
type VNode struct {
	Name  string
	Store Store
}

// Replica answers phase requests for one colour by querying the named
// vnodes a Target's preflist selects.
type Replica struct {
	tree   exchange.TreeOps
	vnodes map[string]VNode
}

// NewReplica builds a Replica over a fixed vnode set.
func NewReplica(tree exchange.TreeOps, vnodes ...VNode) *Replica {
	m := make(map[string]VNode, len(vnodes))
	for _, v := range vnodes {
		m[v.Name] = v
	}
	return &Replica{tree: tree, vnodes: m}
}

// Target builds an exchange.Target whose SendCapability answers the
// request against pref's vnodes and invokes reply once with the merged
// result when every vnode answers. If any vnode in pref is unknown (or the
// message kind is), reply is not invoked at all: the request is dropped
// and the failure shows up only as a missed reply (spec.md §7).
// reply is a callback rather than *exchange.Exchange directly so a caller
// can build Targets before the Exchange they'll be passed to exists yet,
// by closing over a variable assigned once Start returns.
func (r *Replica) Target(reply func(exchange.Colour, exchange.Result), pref exchange.Preflist) exchange.Target {
	return exchange.Target{
		Preflist: pref,
		Send: func(msg exchange.Message, pref exchange.Preflist, colour exchange.Colour) {
			result, err := r.answer(context.Background(), msg, pref)
			if err != nil {
				return
			}
			reply(colour, result)
		},
	}
}

func (r *Replica) answer(ctx context.Context, msg exchange.Message, pref exchange.Preflist) (exchange.Result, error) {
	switch msg.Kind {
	case exchange.FetchRoot:
		return r.answerRoot(ctx, pref)
	case exchange.FetchBranches:
		return r.answerBranches(ctx, pref, msg.BranchIDs)
	case exchange.FetchClocks:
		return r.answerClocks(ctx, pref, msg.SegmentIDs)
	default:
		return exchange.Result{}, fmt.Errorf("local: unknown message kind %d", msg.Kind)
	}
}

func (r *Replica) vnode(name string) (VNode, error) {
	v, ok := r.vnodes[name]
	if !ok {
		return VNode{}, fmt.Errorf("local: unknown vnode %q", name)
	}
	return v, nil
}

func (r *Replica) answerRoot(ctx context.Context, pref exchange.Preflist) (exchange.Result, error) {
	var mu sync.Mutex
	acc := exchange.Result{Kind: exchange.RootResult}
	g, _ := errgroup.WithContext(ctx)
	for _, name := range pref {
		name := name
		g.Go(func() error {
			v, err := r.vnode(name)
			if err != nil {
				return err
			}
			root := v.Store.Root()
			mu.Lock()
			acc.Root = r.tree.MergeRoot(acc.Root, root)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exchange.Result{}, err
	}
	return acc, nil
}

func (r *Replica) answerBranches(ctx context.Context, pref exchange.Preflist, ids []exchange.BranchID) (exchange.Result, error) {
	var mu sync.Mutex
	acc := exchange.Result{Kind: exchange.BranchResult}
	blobs := make(map[exchange.BranchID][]byte, len(ids))
	g, _ := errgroup.WithContext(ctx)
	for _, name := range pref {
		name := name
		g.Go(func() error {
			v, err := r.vnode(name)
			if err != nil {
				return err
			}
			for _, id := range ids {
				blob := v.Store.Branch(id)
				mu.Lock()
				if existing, ok := blobs[id]; ok {
					blobs[id] = r.tree.MergeBranch(existing, blob)
				} else {
					blobs[id] = blob
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exchange.Result{}, err
	}
	for id, blob := range blobs {
		acc.Branches = append(acc.Branches, exchange.BranchEntry{Branch: id, Blob: blob})
	}
	return acc, nil
}

func (r *Replica) answerClocks(ctx context.Context, pref exchange.Preflist, segs []exchange.SegmentID) (exchange.Result, error) {
	var mu sync.Mutex
	acc := exchange.Result{Kind: exchange.ClockResult}
	g, _ := errgroup.WithContext(ctx)
	for _, name := range pref {
		name := name
		g.Go(func() error {
			v, err := r.vnode(name)
			if err != nil {
				return err
			}
			for _, seg := range segs {
				clocks := v.Store.Clocks(seg)
				mu.Lock()
				acc.Clocks = append(acc.Clocks, clocks...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exchange.Result{}, err
	}
	return acc, nil
}
