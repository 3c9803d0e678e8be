package exchange

import (
	"time"

	"github.com/meshkv/aee/exchange/exlog"
	"github.com/meshkv/aee/metrics"
)

// run is the exchange's single logical agent: it serializes phase-entry,
// reply-arrival and phase-deadline events against the exchange's state,
// exactly the actor/match-over-(state,event) model called for by
// spec.md §9's "Implicit cyclic control flow" note. No other goroutine
// reads or writes the fields below phaseStart in Exchange.
func (ex *Exchange) run() {
	defer close(ex.done)
	for {
		d := ex.nextFire.Sub(ex.clock.Now())
		if d < 0 {
			d = 0
		}
		select {
		case <-ex.clock.After(d):
			action := ex.nextAction
			ex.nextAction = nil
			action()
		case ev := <-ex.replyCh:
			if ex.collecting {
				ex.handleReply(ev)
			}
		}
		if ex.terminated {
			return
		}
	}
}

// armCollector puts the exchange into the collecting state for a new
// phase: both accumulators reset to their initial value, both (received,
// expected) counters reset, the phase's merge function installed, and the
// phase deadline armed from now (spec.md §4.1's "every phase entry ...
// resets both counters, clears both accumulators ... records
// phase_start_time, and installs the phase's merge function").
func (ex *Exchange) armCollector(merge mergeFunc, kind ResultKind, budget time.Duration) {
	ex.blueAcc = Result{Kind: kind}
	ex.pinkAcc = Result{Kind: kind}
	ex.blueRecv, ex.pinkRecv = 0, 0
	ex.mergeFn = merge
	ex.expectedKind = kind
	ex.phaseStart = ex.clock.Now()
	ex.collecting = true
	ex.nextFire = ex.phaseStart.Add(budget)
	ex.nextAction = ex.onPhaseDeadline
}

// armPause schedules action to run after a (possibly jittered) delay,
// with no collector armed in the meantime: replies arriving during a pure
// pause have nothing to merge into and are discarded.
func (ex *Exchange) armPause(d time.Duration, action func()) {
	ex.collecting = false
	ex.nextFire = ex.clock.Now().Add(d)
	ex.nextAction = action
}

// handleReply implements the Reply Collector (spec.md §4.3). A reply whose
// Result.Kind does not match the phase currently being collected is a
// MalformedReply: per spec.md §7 this implementation discards it (logged,
// not counted) rather than failing the whole exchange, so a sustained run
// of malformed replies still surfaces as an ordinary PhaseTimeout.
func (ex *Exchange) handleReply(ev replyEvent) {
	if ev.result.Kind != ex.expectedKind {
		ex.logger.Warn("discarding malformed reply",
			exlog.Colour(ev.colour.String()),
		)
		return
	}
	switch ev.colour {
	case Blue:
		if ex.blueRecv >= ex.blueExp {
			return
		}
		ex.blueAcc = ex.mergeFn(ex.blueAcc, ev.result, ex.tree)
		ex.blueRecv++
	case Pink:
		if ex.pinkRecv >= ex.pinkExp {
			return
		}
		ex.pinkAcc = ex.mergeFn(ex.pinkAcc, ev.result, ex.tree)
		ex.pinkRecv++
	}
	if ex.blueRecv == ex.blueExp && ex.pinkRecv == ex.pinkExp {
		ex.onCollectorComplete()
	}
}

// onPhaseDeadline fires when a collecting phase fails to complete within
// its budget (spec.md §4.3's "on phase deadline").
func (ex *Exchange) onPhaseDeadline() {
	missing := (ex.blueExp + ex.pinkExp) - (ex.blueRecv + ex.pinkRecv)
	exlog.Timeout(ex.logger, ex.id, ex.pendingPhase.String(), missing)
	ex.terminate(TimedOut)
}

// onCollectorComplete implements the "emit a zero-delay transition to
// pending_phase, then insert a jittered pause ... before the next phase's
// logic runs" rule (spec.md §4.3). The phase becomes active immediately;
// its logic is deferred behind the pause.
func (ex *Exchange) onCollectorComplete() {
	ex.collecting = false
	ex.phase = ex.pendingPhase
	ex.armPause(jitterPause(ex.rng, ex.cfg.TransitionPauseMS), ex.phaseEntryAction(ex.phase))
}

func (ex *Exchange) phaseEntryAction(p Phase) func() {
	switch p {
	case RootCompare:
		return ex.onRootCompare
	case RootConfirm:
		return ex.onRootConfirm
	case BranchCompare:
		return ex.onBranchCompare
	case BranchConfirm:
		return ex.onBranchConfirm
	case ClockCompare:
		return ex.onClockCompare
	default:
		return func() {}
	}
}

// terminate is the single exit path for every way an exchange can end:
// reaching Complete, an early empty-delta exit at any compare/confirm
// phase, or TimedOut. It invokes reply_action exactly once (spec.md §3's
// "once terminated ... both callbacks are invoked exactly once in total").
func (ex *Exchange) terminate(final Phase) {
	if ex.terminated {
		return
	}
	ex.terminated = true
	ex.collecting = false
	exlog.Exit(ex.logger, ex.id, final.String())
	metrics.ReportTerminal(final.String())
	ex.replyAction(final)
}

// onPrepareElapsed dispatches the initial fetch_root request once the
// jittered Prepare pause elapses (spec.md §4.1's "Prepare" phase).
func (ex *Exchange) onPrepareElapsed() {
	dispatch(ex.logger, Message{Kind: FetchRoot}, ex.blueTargets, ex.pinkTargets, ex.nextLead())
	ex.pendingPhase = RootCompare
	ex.armCollector(mergeRoot, RootResult, ex.cfg.cacheTimeout())
}

// onRootCompare invokes the Compare kernel on the first pair of root
// blobs. An empty result ends the exchange (the replicas' roots already
// agree); otherwise it schedules the extra decorrelation pause called for
// by spec.md §4.1 before redispatching fetch_root for a second,
// independent observation.
func (ex *Exchange) onRootCompare() {
	ids := compareRoots(ex.blueAcc, ex.pinkAcc, ex.tree)
	if len(ids) == 0 {
		ex.terminate(RootCompare)
		return
	}
	ex.rootCompareDeltas = ids
	ex.pendingPhase = RootConfirm
	ex.armPause(jitterPause(ex.rng, ex.cfg.TransitionPauseMS), func() {
		dispatch(ex.logger, Message{Kind: FetchRoot}, ex.blueTargets, ex.pinkTargets, ex.nextLead())
		ex.armCollector(mergeRoot, RootResult, ex.cfg.cacheTimeout())
	})
}

// onRootConfirm intersects the second root-compare observation with the
// first, narrows the result to at most Config.MaxBranchResults BranchIDs,
// and either terminates (nothing survived the intersection — likely an
// in-flight write raced the first observation) or dispatches
// fetch_branches for those BranchIDs.
func (ex *Exchange) onRootConfirm() {
	ids := compareRoots(ex.blueAcc, ex.pinkAcc, ex.tree)
	narrowed := Select(Intersect(ids, ex.rootCompareDeltas), ex.cfg.MaxBranchResults)
	if len(narrowed) == 0 {
		ex.terminate(RootConfirm)
		return
	}
	ex.pendingBranchIDs = narrowed
	ex.pendingPhase = BranchCompare
	dispatch(ex.logger, Message{Kind: FetchBranches, BranchIDs: narrowed}, ex.blueTargets, ex.pinkTargets, ex.nextLead())
	ex.armCollector(mergeBranch, BranchResult, ex.cfg.cacheTimeout())
}

// onBranchCompare mirrors onRootCompare one level down the tree: it
// compares the first pair of branch-blob observations into SegmentIDs,
// and if any survive, pauses before redispatching the same BranchIDs for
// a second, independent observation (§4.1 marks this transition
// "analogous" to RootCompare's; see SPEC_FULL.md §4's resolved open
// question #2).
func (ex *Exchange) onBranchCompare() {
	segs := compareBranches(ex.blueAcc, ex.pinkAcc, ex.tree)
	if len(segs) == 0 {
		ex.terminate(BranchCompare)
		return
	}
	ex.branchCompareDeltas = segs
	ex.pendingPhase = BranchConfirm
	ex.armPause(jitterPause(ex.rng, ex.cfg.TransitionPauseMS), func() {
		dispatch(ex.logger, Message{Kind: FetchBranches, BranchIDs: ex.pendingBranchIDs}, ex.blueTargets, ex.pinkTargets, ex.nextLead())
		ex.armCollector(mergeBranch, BranchResult, ex.cfg.cacheTimeout())
	})
}

// onBranchConfirm intersects the second branch observation with the
// first, narrows to at most Config.MaxClockResults SegmentIDs, and either
// terminates or dispatches fetch_clocks with the longer scan deadline.
func (ex *Exchange) onBranchConfirm() {
	segs := compareBranches(ex.blueAcc, ex.pinkAcc, ex.tree)
	narrowed := Select(Intersect(segs, ex.branchCompareDeltas), ex.cfg.MaxClockResults)
	if len(narrowed) == 0 {
		ex.terminate(BranchConfirm)
		return
	}
	ex.pendingSegmentIDs = narrowed
	ex.pendingPhase = ClockCompare
	dispatch(ex.logger, Message{Kind: FetchClocks, SegmentIDs: narrowed}, ex.blueTargets, ex.pinkTargets, ex.nextLead())
	ex.armCollector(mergeClock, ClockResult, ex.cfg.scanTimeout())
}

// onClockCompare computes the symmetric difference of the two clock
// lists, invokes repair_action exactly once with the result (which may be
// empty), and terminates with the Complete terminal phase — the only
// phase whose terminal name does not match the phase itself (spec.md
// §4.1: "The ClockCompare terminal always reports Complete").
func (ex *Exchange) onClockCompare() {
	repairSet := compareClocks(ex.blueAcc, ex.pinkAcc)
	exlog.Repair(ex.logger, ex.id, len(repairSet))
	metrics.ReportRepairSetSize(len(repairSet))
	ex.repairAction(repairSet)
	ex.terminate(Complete)
}

// nextLead returns the colour the Dispatcher should lead this round's
// alternation with, then flips it for next time, so consecutive fan-outs
// don't always favour the same colour first.
func (ex *Exchange) nextLead() Colour {
	c := ex.leadColour
	if ex.leadColour == Blue {
		ex.leadColour = Pink
	} else {
		ex.leadColour = Blue
	}
	return c
}
