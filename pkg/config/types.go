package config

// RoundtableYAMLConfig is the top-level shape of roundtable.yaml.
type RoundtableYAMLConfig struct {
	Credit     *CreditYAMLConfig     `yaml:"credit"`
	Phases     *PhasesYAMLConfig     `yaml:"phases"`
	Conviction *ConvictionYAMLConfig `yaml:"conviction"`
	Agents     *AgentsYAMLConfig     `yaml:"agents"`
	Events     *EventsYAMLConfig     `yaml:"events"`
	Retention   *RetentionConfig    `yaml:"retention"`
	IssueSource *IssueSourceConfig `yaml:"issue_source"`
}

// CreditYAMLConfig holds the CP economy knobs of spec.md §6.
type CreditYAMLConfig struct {
	AssignmentAward          *int `yaml:"assignment_award,omitempty" validate:"omitempty,min=1"`
	MaxFeedbackPerAgent      *int `yaml:"max_feedback_per_agent,omitempty" validate:"omitempty,min=1"`
	FeedbackStake            *int `yaml:"feedback_stake,omitempty" validate:"omitempty,min=1"`
	ProposalSelfStake        *int `yaml:"proposal_self_stake,omitempty" validate:"omitempty,min=1"`
	FeedbackCommentMaxLength *int `yaml:"feedback_comment_max_length,omitempty" validate:"omitempty,min=1"`
}

// PhasesYAMLConfig holds the phase-list shape of spec.md §4.5.
type PhasesYAMLConfig struct {
	RevisionCycles *int `yaml:"revision_cycles,omitempty" validate:"omitempty,min=1,max=4"`
	StakingRounds  *int `yaml:"staking_rounds,omitempty" validate:"omitempty,min=5,max=10"`
	MaxThinkTicks  *int `yaml:"max_think_ticks,omitempty" validate:"omitempty,min=1"`
}

// ConvictionYAMLConfig holds the conviction_multiplier parameters of
// spec.md §4.1, supporting either the exponential or the linear mode.
type ConvictionYAMLConfig struct {
	Mode           string   `yaml:"mode,omitempty" validate:"omitempty,oneof=exponential linear"`
	MaxMultiplier  *float64 `yaml:"max_multiplier,omitempty" validate:"omitempty,gt=1"`
	TargetFraction *float64 `yaml:"target_fraction,omitempty" validate:"omitempty,gt=0,lt=1"`
	TargetRounds   *int     `yaml:"target_rounds,omitempty" validate:"omitempty,min=1"`
	Base           *float64 `yaml:"base,omitempty"`
	Growth         *float64 `yaml:"growth,omitempty"`
}

// AgentsYAMLConfig configures the seeded agent pool of spec.md §6.
type AgentsYAMLConfig struct {
	NumAgents *int   `yaml:"num_agents,omitempty" validate:"omitempty,min=1"`
	PoolSeed  *int64 `yaml:"pool_seed,omitempty"`
	RunSeed   *int64 `yaml:"run_seed,omitempty"`
}

// EventsYAMLConfig configures the ambient event sink (log-only, Postgres,
// or both), layered on top of the engine's own EventSink abstraction.
type EventsYAMLConfig struct {
	LogEvents      *bool  `yaml:"log_events,omitempty"`
	PersistEvents  *bool  `yaml:"persist_events,omitempty"`
	DatabaseURLEnv string `yaml:"database_url_env,omitempty"`
}
