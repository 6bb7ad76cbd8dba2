package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
)

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load roundtable.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into RoundtableYAMLConfig
//  4. Merge built-in defaults with user-defined values (user overrides built-in)
//  5. Resolve conviction mode and retention settings
//  6. Validate all configuration
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"num_agents", stats.NumAgents,
		"revision_cycles", stats.RevisionCycles,
		"staking_rounds", stats.StakingRounds)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadRoundtableYAML()
	if err != nil {
		return nil, NewLoadError("roundtable.yaml", err)
	}

	builtin := defaultYAMLConfig()
	if err := mergo.Merge(yamlCfg, builtin); err != nil {
		return nil, fmt.Errorf("failed to merge built-in defaults: %w", err)
	}

	conviction, err := resolveConviction(yamlCfg.Conviction)
	if err != nil {
		return nil, err
	}

	retention := DefaultRetentionConfig()
	if yamlCfg.Retention != nil {
		if err := mergo.Merge(retention, yamlCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	events := yamlCfg.Events
	if events == nil {
		events = &EventsYAMLConfig{}
	}

	issueSource := DefaultIssueSourceConfig()
	if yamlCfg.IssueSource != nil {
		if err := mergo.Merge(issueSource, yamlCfg.IssueSource, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge issue_source config: %w", err)
		}
	}

	return &Config{
		configDir: configDir,

		AssignmentAward:          intOr(yamlCfg.Credit.AssignmentAward, 100),
		MaxFeedbackPerAgent:      intOr(yamlCfg.Credit.MaxFeedbackPerAgent, 3),
		FeedbackStake:            intOr(yamlCfg.Credit.FeedbackStake, 5),
		ProposalSelfStake:        intOr(yamlCfg.Credit.ProposalSelfStake, 10),
		FeedbackCommentMaxLength: intOr(yamlCfg.Credit.FeedbackCommentMaxLength, 500),

		RevisionCycles: intOr(yamlCfg.Phases.RevisionCycles, 2),
		StakingRounds:  intOr(yamlCfg.Phases.StakingRounds, 7),
		MaxThinkTicks:  intOr(yamlCfg.Phases.MaxThinkTicks, 20),

		Conviction: conviction,

		NumAgents: intOr(yamlCfg.Agents.NumAgents, 5),
		PoolSeed:  int64Or(yamlCfg.Agents.PoolSeed, 42),
		RunSeed:   int64Or(yamlCfg.Agents.RunSeed, 1),

		LogEvents:      boolOr(events.LogEvents, true),
		PersistEvents:  boolOr(events.PersistEvents, false),
		DatabaseURLEnv: stringOr(events.DatabaseURLEnv, "ROUNDTABLE_DATABASE_URL"),

		Retention:   retention,
		IssueSource: issueSource,
	}, nil
}

// defaultYAMLConfig returns the built-in defaults merged onto any
// user-provided roundtable.yaml that leaves a section unset entirely.
func defaultYAMLConfig() *RoundtableYAMLConfig {
	return &RoundtableYAMLConfig{
		Credit:     &CreditYAMLConfig{},
		Phases:     &PhasesYAMLConfig{},
		Conviction: &ConvictionYAMLConfig{},
		Agents:     &AgentsYAMLConfig{},
		Events:     &EventsYAMLConfig{},
	}
}

// resolveConviction turns the YAML conviction block into ledger.ConvictionParams,
// applying the exponential-mode defaults of spec.md §4.1 when a field is unset.
func resolveConviction(yc *ConvictionYAMLConfig) (ledger.ConvictionParams, error) {
	if yc == nil {
		yc = &ConvictionYAMLConfig{}
	}

	mode := ledger.ModeExponential
	if yc.Mode == "linear" {
		mode = ledger.ModeLinear
	}

	params := ledger.ConvictionParams{
		Mode:           mode,
		MaxMultiplier:  floatOr(yc.MaxMultiplier, 5.0),
		TargetFraction: floatOr(yc.TargetFraction, 0.9),
		TargetRounds:   intOr(yc.TargetRounds, 5),
		Base:           floatOr(yc.Base, 1.0),
		Growth:         floatOr(yc.Growth, 0.2),
	}

	if mode == ledger.ModeExponential && params.TargetFraction >= 1 {
		return ledger.ConvictionParams{}, fmt.Errorf("conviction.target_fraction must be < 1, got %v", params.TargetFraction)
	}

	return params, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadRoundtableYAML() (*RoundtableYAMLConfig, error) {
	path := filepath.Join(l.configDir, "roundtable.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	// Note: ExpandEnv passes through original data on parse/execution errors,
	// allowing the YAML parser to handle the content (or fail with a clearer
	// error message).
	data = ExpandEnv(data)

	var cfg RoundtableYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if cfg.Credit == nil {
		cfg.Credit = &CreditYAMLConfig{}
	}
	if cfg.Phases == nil {
		cfg.Phases = &PhasesYAMLConfig{}
	}
	if cfg.Conviction == nil {
		cfg.Conviction = &ConvictionYAMLConfig{}
	}
	if cfg.Agents == nil {
		cfg.Agents = &AgentsYAMLConfig{}
	}
	if cfg.Events == nil {
		cfg.Events = &EventsYAMLConfig{}
	}

	structValidator := validator.New()
	if err := structValidator.Struct(cfg.Credit); err != nil {
		return nil, fmt.Errorf("%w: credit: %v", ErrInvalidValue, err)
	}
	if err := structValidator.Struct(cfg.Phases); err != nil {
		return nil, fmt.Errorf("%w: phases: %v", ErrInvalidValue, err)
	}
	if err := structValidator.Struct(cfg.Conviction); err != nil {
		return nil, fmt.Errorf("%w: conviction: %v", ErrInvalidValue, err)
	}
	if err := structValidator.Struct(cfg.Agents); err != nil {
		return nil, fmt.Errorf("%w: agents: %v", ErrInvalidValue, err)
	}

	return &cfg, nil
}

func intOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}

func int64Or(p *int64, fallback int64) int64 {
	if p != nil {
		return *p
	}
	return fallback
}

func floatOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}

func boolOr(p *bool, fallback bool) bool {
	if p != nil {
		return *p
	}
	return fallback
}

func stringOr(s string, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
