// Package notify sends a Slack notification when an issue finalizes,
// grounded on the teacher's pkg/slack (client.go + service.go), trimmed to
// the single SIMULATION_ISSUE_FINALIZED notification spec.md calls for —
// no message threading/fingerprint lookup, since a roundtable run has no
// originating Slack message to thread under.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service posts a finalization summary to Slack. Nil-safe: every method is
// a no-op when the receiver is nil, so callers can construct a Service only
// when notifications are enabled and pass the possibly-nil pointer through
// unconditionally.
type Service struct {
	api     *goslack.Client
	channel string
	log     *slog.Logger
}

// NewService creates a Service, or returns nil if token/channel is unset
// (notifications disabled).
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		api:     goslack.New(cfg.Token),
		channel: cfg.Channel,
		log:     slog.Default().With("component", "notify"),
	}
}

// NotifyFinalized posts a summary of a finalized issue. Fail-open: errors
// are logged, never returned, since a failed notification must not affect
// the engine's own SIMULATION_ISSUE_FINALIZED event.
func (s *Service) NotifyFinalized(ctx context.Context, issue *model.Issue, winningProposalID, tick int) {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	winner, ok := issue.FindProposal(winningProposalID)
	summary := "No winning proposal (tie exhausted / NoAction)."
	if ok {
		summary = fmt.Sprintf("Winning proposal #%d by %s", winner.ProposalID, winner.Author)
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType,
				fmt.Sprintf("*Issue finalized: %s*\nTick %d\n%s", issue.Title, tick, summary), false, false),
			nil, nil,
		),
	}

	if _, _, err := s.api.PostMessageContext(ctx, s.channel, goslack.MsgOptionBlocks(blocks...)); err != nil {
		s.log.Error("failed to post finalization notification", "issue_id", issue.IssueID, "error", err)
	}
}
