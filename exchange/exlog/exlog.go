// Package exlog emits the exchange engine's four structured log events
// (EX001-EX004, spec.md §6) as typed helper functions over a *zap.Logger,
// the same shape the teacher repo uses for its own per-subsystem logging
// helpers rather than ad hoc Printf-style messages.
package exlog

import "go.uber.org/zap"

// Colour is a convenience field constructor for the blue/pink tag carried
// on most exchange log lines.
func Colour(colour string) zap.Field {
	return zap.String("colour", colour)
}

// Start logs EX001: an exchange has begun, with its target counts.
func Start(logger *zap.Logger, exchangeID string, blueCount, pinkCount int) {
	logger.Info("EX001 exchange started",
		zap.String("exchange_id", exchangeID),
		zap.Int("blue_targets", blueCount),
		zap.Int("pink_targets", pinkCount),
	)
}

// Timeout logs EX002: a phase deadline fired before both colours
// completed.
func Timeout(logger *zap.Logger, exchangeID, pendingPhase string, missing int) {
	logger.Error("EX002 phase timeout",
		zap.String("exchange_id", exchangeID),
		zap.String("pending_phase", pendingPhase),
		zap.Int("missing_count", missing),
	)
}

// Exit logs EX003: the exchange terminated normally or by timeout.
func Exit(logger *zap.Logger, exchangeID, terminalPhase string) {
	logger.Info("EX003 exchange exit",
		zap.String("exchange_id", exchangeID),
		zap.String("terminal_phase", terminalPhase),
	)
}

// Repair logs EX004: the size of the repair set computed at ClockCompare
// exit.
func Repair(logger *zap.Logger, exchangeID string, repairCount int) {
	logger.Info("EX004 repair set computed",
		zap.String("exchange_id", exchangeID),
		zap.Int("repair_count", repairCount),
	)
}
