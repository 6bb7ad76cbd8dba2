// roundtable runs one or more deliberation scenarios against the core
// engine, wiring the ambient config/event/persistence/notification stack
// around it. Grounded on cmd/tarsy/main.go's flag/config/database wiring,
// adapted from an always-on HTTP server to a scenario-driving batch runner
// per spec.md §6's CLI surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/roundtable/internal/engine"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/internal/engine/pool"
	"github.com/codeready-toolchain/roundtable/pkg/collaborator"
	"github.com/codeready-toolchain/roundtable/pkg/config"
	"github.com/codeready-toolchain/roundtable/pkg/database"
	"github.com/codeready-toolchain/roundtable/pkg/heuristic"
	"github.com/codeready-toolchain/roundtable/pkg/issuesource"
	"github.com/codeready-toolchain/roundtable/pkg/notify"
	"github.com/codeready-toolchain/roundtable/pkg/retention"
	"github.com/codeready-toolchain/roundtable/pkg/rtevents"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	scenarios := flag.Int("scenarios", 1, "Number of issues to run back to back against the shared agent pool")
	poolSeed := flag.Int64("pool-seed", 0, "Seed for agent pool generation (0 = use config default)")
	runSeed := flag.Int64("run-seed", 0, "Seed for agent selection and per-agent decision RNG (0 = use config default)")
	numAgents := flag.Int("agents", 0, "Number of agents to assign per issue (0 = use config default)")
	verbose := flag.Bool("verbose", false, "Enable debug-level logging")
	simulationID := flag.String("simulation-id", "", "Explicit simulation id (default: generated from run seed and scenario index)")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := godotenv.Load(filepath.Join(*configDir, ".env")); err != nil {
		log.Warn("no .env file loaded", "config_dir", *configDir, "error", err)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	if *poolSeed != 0 {
		cfg.PoolSeed = *poolSeed
	}
	if *runSeed != 0 {
		cfg.RunSeed = *runSeed
	}
	if *numAgents != 0 {
		cfg.NumAgents = *numAgents
	}

	var dbClient *database.Client
	if cfg.PersistEvents {
		dbCfg, err := database.LoadConfigFromEnv()
		if err != nil {
			log.Error("failed to load database config", "error", err)
			os.Exit(1)
		}
		dbClient, err = database.NewClient(ctx, dbCfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				log.Error("error closing database client", "error", err)
			}
		}()

		retentionSvc := retention.NewService(cfg.Retention, dbClient.DB())
		retentionSvc.Start(ctx)
		defer retentionSvc.Stop()
	}

	notifySvc := notify.NewService(notify.ServiceConfig{
		Token:   os.Getenv("ROUNDTABLE_SLACK_TOKEN"),
		Channel: os.Getenv("ROUNDTABLE_SLACK_CHANNEL"),
	})

	issueSourceSvc := issuesource.NewService(cfg.IssueSource, os.Getenv(cfg.IssueSource.GitHubTokenEnv))

	log.Info("starting roundtable",
		"scenarios", *scenarios, "num_agents", cfg.NumAgents, "pool_seed", cfg.PoolSeed, "run_seed", cfg.RunSeed)

	candidatePool := pool.GeneratePool(uint64(cfg.PoolSeed), cfg.NumAgents)

	exitCode := 0
	for i := 0; i < *scenarios; i++ {
		scenarioSeed := uint64(cfg.RunSeed) + uint64(i)
		simID := *simulationID
		if simID == "" {
			simID = fmt.Sprintf("run-%d-scenario-%d", cfg.RunSeed, i)
		} else if *scenarios > 1 {
			simID = fmt.Sprintf("%s-%d", simID, i)
		}

		if err := runScenario(ctx, cfg, candidatePool, scenarioSeed, simID, dbClient, notifySvc, issueSourceSvc, log); err != nil {
			log.Error("scenario failed", "simulation_id", simID, "error", err)
			exitCode = 1
			continue
		}
		log.Info("scenario finalized", "simulation_id", simID)
	}

	os.Exit(exitCode)
}

func runScenario(
	ctx context.Context,
	cfg *config.Config,
	candidatePool []pool.Candidate,
	scenarioSeed uint64,
	simulationID string,
	dbClient *database.Client,
	notifySvc *notify.Service,
	issueSourceSvc *issuesource.Service,
	log *slog.Logger,
) error {
	selected := pool.Select(candidatePool, scenarioSeed, cfg.NumAgents)
	assignedIDs := make([]string, len(selected))
	for i, c := range selected {
		assignedIDs[i] = c.AgentID
	}

	problemStatement, err := issueSourceSvc.Resolve(ctx, getEnv("ROUNDTABLE_PROBLEM_STATEMENT", "Decide the best course of action."))
	if err != nil {
		return fmt.Errorf("resolve problem statement: %w", err)
	}
	background, err := issueSourceSvc.Resolve(ctx, os.Getenv("ROUNDTABLE_BACKGROUND"))
	if err != nil {
		return fmt.Errorf("resolve background: %w", err)
	}

	issue := model.NewIssue(simulationID, simulationID, problemStatement, background, assignedIDs)

	agents := make(map[string]collaborator.Agent, len(selected))
	for i, c := range selected {
		agents[c.AgentID] = heuristic.New(scenarioSeed ^ uint64(i) ^ 0xd6e8feb86659fd93)
	}

	sink := buildSink(cfg, dbClient, simulationID, log)

	eng, err := engine.New(simulationID, issue, agents, engine.Config{
		AssignmentAward:          cfg.AssignmentAward,
		MaxFeedbackPerAgent:      cfg.MaxFeedbackPerAgent,
		FeedbackStake:            cfg.FeedbackStake,
		ProposalSelfStake:        cfg.ProposalSelfStake,
		RevisionCycles:           cfg.RevisionCycles,
		StakingRounds:            cfg.StakingRounds,
		FeedbackCommentMaxLength: cfg.FeedbackCommentMaxLength,
		Conviction:               cfg.Conviction,
	}, sink, log)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	if err := eng.Run(); err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	state := eng.State()
	notifySvc.NotifyFinalized(ctx, state.Issues.Issue(), sink.winnerProposalID(), state.FinalizationTick)

	return nil
}

// buildSink wires together the log sink, the optional Postgres sink, and a
// thin decorator that remembers the winning proposal id off the
// FINALIZATION_DECISION event — main.go's own concern, not an ambient
// package's, since nothing else needs it.
func buildSink(cfg *config.Config, dbClient *database.Client, simulationID string, log *slog.Logger) *capturingSink {
	var sinks []engine.EventSink
	if cfg.LogEvents {
		sinks = append(sinks, rtevents.NewLogSink(log))
	}
	if cfg.PersistEvents && dbClient != nil {
		sinks = append(sinks, rtevents.NewPostgresSink(dbClient.DB(), simulationID, log))
	}
	return &capturingSink{inner: rtevents.NewMultiSink(sinks...)}
}

type capturingSink struct {
	inner engine.EventSink

	mu       sync.Mutex
	winnerID int
}

func (s *capturingSink) Emit(rec model.EventRecord) {
	if rec.EventType == "FINALIZATION_DECISION" {
		if id, ok := rec.Payload["winner_proposal_id"].(int); ok {
			s.mu.Lock()
			s.winnerID = id
			s.mu.Unlock()
		}
	}
	s.inner.Emit(rec)
}

func (s *capturingSink) SaveSnapshot(snap engine.Snapshot) {
	s.inner.SaveSnapshot(snap)
}

func (s *capturingSink) winnerProposalID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winnerID
}
