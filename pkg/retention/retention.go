// Package retention runs the background cleanup loop that enforces
// config.RetentionConfig, grounded on the teacher's pkg/cleanup.Service.
package retention

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/roundtable/pkg/config"
)

// Service periodically soft-deletes finalized issues past their retention
// window and removes orphaned event rows past their TTL. All operations are
// idempotent and safe to run from multiple processes.
type Service struct {
	cfg *config.RetentionConfig
	db  *sql.DB

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new retention service.
func NewService(cfg *config.RetentionConfig, db *sql.DB) *Service {
	return &Service{cfg: cfg, db: db}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention service started",
		"session_retention_days", s.cfg.SessionRetentionDays,
		"event_ttl", s.cfg.EventTTL,
		"interval", s.cfg.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.deleteOldIssues(ctx)
	s.cleanupOrphanedEvents(ctx)
}

// deleteOldIssues removes finalized issues (and their cascade-linked
// proposals/stakes/credit events/snapshots/events) older than the
// configured retention window.
func (s *Service) deleteOldIssues(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.SessionRetentionDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM issues WHERE status = 'finalized' AND finalized_at IS NOT NULL AND finalized_at < $1`,
		cutoff,
	)
	if err != nil {
		slog.Error("Retention: delete old issues failed", "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("Retention: deleted old finalized issues", "count", n)
	}
}

// cleanupOrphanedEvents removes events past their TTL whose issue no longer
// exists or is itself eligible for deletion — a safety net independent of
// the issues cascade delete, matching the teacher's per-table TTL sweep.
func (s *Service) cleanupOrphanedEvents(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.EventTTL)
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < $1`, cutoff)
	if err != nil {
		slog.Error("Retention: event cleanup failed", "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("Retention: cleaned up orphaned events", "count", n)
	}
}
