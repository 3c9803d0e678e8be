package exchange

import "go.uber.org/zap"

// dispatch fans msg out to blueTargets and pinkTargets, alternating
// colours so that no colour starves when the lists are unequal in length
// (spec.md §4.2). Dispatch is non-blocking: each target's SendCapability
// is invoked from its own goroutine, and a panicking capability is treated
// as a dropped request rather than propagated, since a stuck or failing
// capability is only ever supposed to manifest as a missed reply.
func dispatch(logger *zap.Logger, msg Message, blueTargets, pinkTargets []Target, leading Colour) {
	n := len(blueTargets)
	if len(pinkTargets) > n {
		n = len(pinkTargets)
	}
	for i := 0; i < n; i++ {
		if leading == Blue {
			dispatchOne(logger, msg, blueTargets, i, Blue)
			dispatchOne(logger, msg, pinkTargets, i, Pink)
		} else {
			dispatchOne(logger, msg, pinkTargets, i, Pink)
			dispatchOne(logger, msg, blueTargets, i, Blue)
		}
	}
}

func dispatchOne(logger *zap.Logger, msg Message, targets []Target, i int, colour Colour) {
	if i >= len(targets) {
		return
	}
	t := targets[i]
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("send capability panicked, treating as dropped request",
					zap.Stringer("colour", colour),
					zap.Any("recover", r))
			}
		}()
		t.Send(msg, t.Preflist, colour)
	}()
}
