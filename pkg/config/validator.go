package config

import (
	"fmt"
	"math"
	"os"

	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Order: credit economy → phase schedule → conviction →
// agent pool → events → retention, mirroring the dependency order in which
// engine.Config.Validate re-checks the same bounds at construction time.
func (v *Validator) ValidateAll() error {
	if err := v.validateCredit(); err != nil {
		return fmt.Errorf("credit validation failed: %w", err)
	}
	if err := v.validatePhases(); err != nil {
		return fmt.Errorf("phases validation failed: %w", err)
	}
	if err := v.validateConviction(); err != nil {
		return fmt.Errorf("conviction validation failed: %w", err)
	}
	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agents validation failed: %w", err)
	}
	if err := v.validateEvents(); err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	if err := v.validateIssueSource(); err != nil {
		return fmt.Errorf("issue_source validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateCredit() error {
	c := v.cfg
	if c.AssignmentAward < 1 {
		return NewValidationError("assignment_award", fmt.Errorf("must be >= 1, got %d", c.AssignmentAward))
	}
	if c.MaxFeedbackPerAgent < 1 {
		return NewValidationError("max_feedback_per_agent", fmt.Errorf("must be >= 1, got %d", c.MaxFeedbackPerAgent))
	}
	if c.FeedbackStake < 1 {
		return NewValidationError("feedback_stake", fmt.Errorf("must be >= 1, got %d", c.FeedbackStake))
	}
	if c.ProposalSelfStake < 1 {
		return NewValidationError("proposal_self_stake", fmt.Errorf("must be >= 1, got %d", c.ProposalSelfStake))
	}
	if c.ProposalSelfStake > c.AssignmentAward {
		return NewValidationError("proposal_self_stake", fmt.Errorf("must be <= assignment_award (%d), got %d", c.AssignmentAward, c.ProposalSelfStake))
	}
	if c.FeedbackCommentMaxLength < 1 {
		return NewValidationError("feedback_comment_max_length", fmt.Errorf("must be >= 1, got %d", c.FeedbackCommentMaxLength))
	}
	return nil
}

func (v *Validator) validatePhases() error {
	c := v.cfg
	if c.RevisionCycles < 1 || c.RevisionCycles > 4 {
		return NewValidationError("phases.revision_cycles", fmt.Errorf("must be in [1,4], got %d", c.RevisionCycles))
	}
	if c.StakingRounds < 5 || c.StakingRounds > 10 {
		return NewValidationError("phases.staking_rounds", fmt.Errorf("must be in [5,10], got %d", c.StakingRounds))
	}
	if c.MaxThinkTicks < 1 {
		return NewValidationError("phases.max_think_ticks", fmt.Errorf("must be >= 1, got %d", c.MaxThinkTicks))
	}
	return nil
}

func (v *Validator) validateConviction() error {
	p := v.cfg.Conviction
	switch p.Mode {
	case ledger.ModeExponential:
		if p.MaxMultiplier <= 1 {
			return NewValidationError("conviction.max_multiplier", fmt.Errorf("must be > 1, got %v", p.MaxMultiplier))
		}
		if p.TargetFraction <= 0 || p.TargetFraction >= 1 {
			return NewValidationError("conviction.target_fraction", fmt.Errorf("must be in (0,1), got %v", p.TargetFraction))
		}
		if p.TargetRounds < 1 {
			return NewValidationError("conviction.target_rounds", fmt.Errorf("must be >= 1, got %d", p.TargetRounds))
		}
		if math.IsNaN(p.ConvictionMultiplier(p.TargetRounds)) {
			return NewValidationError("conviction", fmt.Errorf("exponential parameters produce NaN at target_rounds"))
		}
	case ledger.ModeLinear:
		if p.Growth < 0 {
			return NewValidationError("conviction.growth", fmt.Errorf("must be >= 0, got %v", p.Growth))
		}
	default:
		return NewValidationError("conviction.mode", fmt.Errorf("unrecognized mode %v", p.Mode))
	}
	return nil
}

func (v *Validator) validateAgents() error {
	c := v.cfg
	if c.NumAgents < 1 {
		return NewValidationError("agents.num_agents", fmt.Errorf("must be >= 1, got %d", c.NumAgents))
	}
	return nil
}

func (v *Validator) validateEvents() error {
	c := v.cfg
	if c.PersistEvents {
		if c.DatabaseURLEnv == "" {
			return NewValidationError("events.database_url_env", fmt.Errorf("required when persist_events is enabled"))
		}
		if os.Getenv(c.DatabaseURLEnv) == "" {
			return NewValidationError("events.database_url_env", fmt.Errorf("environment variable %s is not set", c.DatabaseURLEnv))
		}
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return nil
	}
	if r.SessionRetentionDays < 1 {
		return NewValidationError("retention.session_retention_days", fmt.Errorf("must be >= 1, got %d", r.SessionRetentionDays))
	}
	if r.EventTTL <= 0 {
		return NewValidationError("retention.event_ttl", fmt.Errorf("must be positive, got %v", r.EventTTL))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention.cleanup_interval", fmt.Errorf("must be positive, got %v", r.CleanupInterval))
	}
	return nil
}

func (v *Validator) validateIssueSource() error {
	s := v.cfg.IssueSource
	if s == nil {
		return nil
	}
	if s.CacheTTL <= 0 {
		return NewValidationError("issue_source.cache_ttl", fmt.Errorf("must be positive, got %v", s.CacheTTL))
	}
	return nil
}
