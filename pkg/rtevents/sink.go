// Package rtevents adapts engine.EventSink to the ambient observability
// stack: structured slog output, PostgreSQL persistence + NOTIFY (grounded
// on the teacher's pkg/events.EventPublisher), and a MultiSink fan-out so
// cmd/roundtable can run both unconditionally.
package rtevents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/roundtable/internal/engine"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/pkg/redact"
)

// Channel returns the NOTIFY/LISTEN channel name for one issue's live feed,
// mirroring the teacher's events.SessionChannel.
func Channel(issueID string) string {
	return "issue:" + issueID
}

// LogSink emits every EventRecord as a structured slog line and discards
// snapshots (log output is not a durable store). Always safe to construct;
// the zero value works.
type LogSink struct {
	log      *slog.Logger
	redactor *redact.Redactor
}

// NewLogSink builds a LogSink that scrubs free-text payload fields
// ("content", "comment") before logging.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log, redactor: redact.New()}
}

// Emit implements engine.EventSink.
func (s *LogSink) Emit(rec model.EventRecord) {
	args := []any{
		"tick", rec.Tick,
		"phase", rec.Phase,
		"event_type", rec.EventType,
	}
	if rec.AgentID != "" {
		args = append(args, "agent_id", rec.AgentID)
	}
	for k, v := range rec.Payload {
		if s.isTextField(k) {
			if str, ok := v.(string); ok {
				v = s.redactor.Scrub(str)
			}
		}
		args = append(args, k, v)
	}

	switch rec.Level {
	case model.LevelDebug:
		s.log.Debug(rec.EventType, args...)
	case model.LevelWarn:
		s.log.Warn(rec.EventType, args...)
	case model.LevelError:
		s.log.Error(rec.EventType, append(args, "message", rec.Message)...)
	default:
		s.log.Info(rec.EventType, args...)
	}
}

func (s *LogSink) isTextField(key string) bool {
	return key == "content" || key == "comment"
}

// SaveSnapshot implements engine.EventSink; log output does not retain
// snapshots, so this is a no-op.
func (s *LogSink) SaveSnapshot(engine.Snapshot) {}

// PostgresSink persists every event to the append-only `events` table and
// every tick's Snapshot to the `snapshots` table, broadcasting each via
// pg_notify within the same transaction — grounded directly on
// EventPublisher.persistAndNotify (pkg/events/publisher.go), adapted from
// one-event-table-per-session to one-event-table-per-issue.
type PostgresSink struct {
	db      *sql.DB
	issueID string
	log     *slog.Logger
}

// NewPostgresSink builds a sink scoped to one issue's channel.
func NewPostgresSink(db *sql.DB, issueID string, log *slog.Logger) *PostgresSink {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresSink{db: db, issueID: issueID, log: log}
}

// Emit implements engine.EventSink. Failures are logged, not returned —
// event persistence must never abort a deliberation tick.
func (s *PostgresSink) Emit(rec model.EventRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		s.log.Error("failed to marshal event record", "error", err)
		return
	}
	if err := s.persistAndNotify(context.Background(), payload); err != nil {
		s.log.Error("failed to persist event", "event_type", rec.EventType, "error", err)
	}
}

// SaveSnapshot implements engine.EventSink.
func (s *PostgresSink) SaveSnapshot(snap engine.Snapshot) {
	if err := s.insertSnapshot(context.Background(), snap); err != nil {
		s.log.Error("failed to persist snapshot", "tick", snap.Tick, "error", err)
	}
}

func (s *PostgresSink) persistAndNotify(ctx context.Context, payload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (issue_id, channel, payload, created_at) VALUES ($1, $2, $3, $4)`,
		s.issueID, Channel(s.issueID), payload, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", Channel(s.issueID), string(payload)); err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresSink) insertSnapshot(ctx context.Context, snap engine.Snapshot) error {
	balances, err := json.Marshal(snap.AgentBalances)
	if err != nil {
		return err
	}
	readiness, err := json.Marshal(snap.AgentReadiness)
	if err != nil {
		return err
	}
	proposalIDs, err := json.Marshal(snap.AgentProposalIDs)
	if err != nil {
		return err
	}

	var finalizationTick any
	if snap.IssueFinalized {
		finalizationTick = snap.FinalizationTick
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots
			(issue_id, tick, phase, phase_tick, agent_balances, agent_readiness, agent_proposal_ids, proposal_counter, issue_finalized, finalization_tick)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (issue_id, tick) DO NOTHING`,
		s.issueID, snap.Tick, snap.Phase, snap.PhaseTick, balances, readiness, proposalIDs,
		snap.ProposalCounter, snap.IssueFinalized, finalizationTick,
	)
	return err
}

// MultiSink fans out every call to every underlying EventSink, letting
// cmd/roundtable wire LogSink + PostgresSink unconditionally behind the
// config.Config.LogEvents / PersistEvents toggles.
type MultiSink struct {
	sinks []engine.EventSink
}

// NewMultiSink builds a MultiSink over the given non-nil sinks.
func NewMultiSink(sinks ...engine.EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Emit implements engine.EventSink.
func (m *MultiSink) Emit(rec model.EventRecord) {
	for _, s := range m.sinks {
		s.Emit(rec)
	}
}

// SaveSnapshot implements engine.EventSink.
func (m *MultiSink) SaveSnapshot(snap engine.Snapshot) {
	for _, s := range m.sinks {
		s.SaveSnapshot(snap)
	}
}
