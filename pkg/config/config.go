package config

import "github.com/codeready-toolchain/roundtable/internal/engine/ledger"

// Config is the umbrella configuration object returned by Initialize() and
// threaded into engine.Config, pkg/rtevents, and pkg/retention construction.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// Credit economy (spec.md §6)
	AssignmentAward          int
	MaxFeedbackPerAgent      int
	FeedbackStake            int
	ProposalSelfStake        int
	FeedbackCommentMaxLength int

	// Phase schedule (spec.md §6)
	RevisionCycles int
	StakingRounds  int
	MaxThinkTicks  int

	// Conviction multiplier parameters (spec.md §4.1)
	Conviction ledger.ConvictionParams

	// Seeded agent pool (spec.md §6)
	NumAgents int
	PoolSeed  int64
	RunSeed   int64

	// Ambient event sink
	LogEvents      bool
	PersistEvents  bool
	DatabaseURLEnv string

	Retention   *RetentionConfig
	IssueSource *IssueSourceConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, for logging at
// startup.
type ConfigStats struct {
	NumAgents      int
	RevisionCycles int
	StakingRounds  int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		NumAgents:      c.NumAgents,
		RevisionCycles: c.RevisionCycles,
		StakingRounds:  c.StakingRounds,
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}
