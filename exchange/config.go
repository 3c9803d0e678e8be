package exchange

import "time"

// Config carries the configuration constants recognized by the engine
// (spec.md §6).
type Config struct {
	// TransitionPauseMS is the base inter-phase pause before jitter.
	TransitionPauseMS int `mapstructure:"transition-pause-ms"`
	// CacheTimeoutMS is the deadline for fetch_root/fetch_branches phases.
	CacheTimeoutMS int `mapstructure:"cache-timeout-ms"`
	// ScanTimeoutMS is the deadline for the fetch_clocks phase.
	ScanTimeoutMS int `mapstructure:"scan-timeout-ms"`
	// MaxBranchResults bounds the number of BranchIDs carried from
	// RootConfirm into BranchCompare.
	MaxBranchResults int `mapstructure:"max-branch-results"`
	// MaxClockResults bounds the number of SegmentIDs carried from
	// BranchConfirm into ClockCompare.
	MaxClockResults int `mapstructure:"max-clock-results"`
}

// DefaultConfig returns the literal defaults from spec.md §6.
func DefaultConfig() Config {
	return Config{
		TransitionPauseMS: 1000,
		CacheTimeoutMS:    60_000,
		ScanTimeoutMS:     600_000,
		MaxBranchResults:  16,
		MaxClockResults:   128,
	}
}

func (c Config) transitionPause() time.Duration {
	return time.Duration(c.TransitionPauseMS) * time.Millisecond
}

func (c Config) cacheTimeout() time.Duration {
	return time.Duration(c.CacheTimeoutMS) * time.Millisecond
}

func (c Config) scanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutMS) * time.Millisecond
}
