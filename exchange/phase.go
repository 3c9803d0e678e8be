package exchange

// Phase is one of the states of the exchange lifecycle state machine
// (spec.md §4.7). WaitingAllResults is not a distinct Phase value here: it
// is represented by the exchange being inside run()'s "collecting" mode
// with pendingPhase set to whichever Phase comes next (see fsm.go).
type Phase uint8

const (
	Prepare Phase = iota
	RootCompare
	RootConfirm
	BranchCompare
	BranchConfirm
	ClockCompare
	Complete
	TimedOut
)

func (p Phase) String() string {
	switch p {
	case Prepare:
		return "Prepare"
	case RootCompare:
		return "RootCompare"
	case RootConfirm:
		return "RootConfirm"
	case BranchCompare:
		return "BranchCompare"
	case BranchConfirm:
		return "BranchConfirm"
	case ClockCompare:
		return "ClockCompare"
	case Complete:
		return "Complete"
	case TimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}
