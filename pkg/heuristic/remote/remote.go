// Package remote implements collaborator.Agent by delegating every signal to
// an out-of-process service over gRPC, grounded on the teacher's
// pkg/agent.GRPCLLMClient (pkg/agent/llm_grpc.go) — the same out-of-process
// delegation shape applied to the collaborator boundary instead of the LLM
// boundary. roundtablepb is generated from roundtable.proto via `go
// generate`; it is not checked into source control.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/codeready-toolchain/roundtable/internal/engine/actionqueue"
	"github.com/codeready-toolchain/roundtable/pkg/collaborator"
	roundtablepb "github.com/codeready-toolchain/roundtable/pkg/heuristic/remote/roundtablepb"
)

// Agent implements collaborator.Agent by calling a remote CollaboratorService.
type Agent struct {
	conn   *grpc.ClientConn
	client roundtablepb.CollaboratorServiceClient
	log    *slog.Logger
	timeout time.Duration
}

var _ collaborator.Agent = (*Agent)(nil)

// New dials addr (insecure, localhost/sidecar transport — the same trust
// boundary the teacher's GRPCLLMClient assumes) and returns a ready Agent.
func New(addr string) (*Agent, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create collaborator client for %s: %w", addr, err)
	}
	return &Agent{
		conn:    conn,
		client:  roundtablepb.NewCollaboratorServiceClient(conn),
		log:     slog.Default().With("component", "heuristic/remote"),
		timeout: 5 * time.Second,
	}, nil
}

// Close releases the underlying gRPC connection.
func (a *Agent) Close() error {
	return a.conn.Close()
}

// OnSignal implements collaborator.Agent. A gRPC failure is logged and
// treated as the agent doing nothing this tick — a remote collaborator
// outage must not stall the deliberation.
func (a *Agent) OnSignal(signal collaborator.Signal, queue *actionqueue.Queue, agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	resp, err := a.client.OnSignal(ctx, toProtoRequest(signal, agentID))
	if err != nil {
		a.log.Error("remote collaborator call failed", "agent_id", agentID, "signal", signal.Type, "error", err)
		return
	}

	for _, action := range resp.GetActions() {
		submitted, ok := fromProtoAction(action, agentID)
		if !ok {
			a.log.Warn("remote collaborator returned unrecognized action type", "agent_id", agentID, "type", action.GetType())
			continue
		}
		queue.Submit(submitted)
	}
}

func toProtoRequest(signal collaborator.Signal, agentID string) *roundtablepb.SignalRequest {
	return &roundtablepb.SignalRequest{
		Type:              string(signal.Type),
		Tick:              int32(signal.Tick),
		IssueId:           signal.IssueID,
		CycleNumber:       int32(signal.CycleNumber),
		RoundNumber:       int32(signal.RoundNumber),
		MaxFeedback:       int32(signal.MaxFeedback),
		ProposalSelfStake: int32(signal.ProposalSelfStake),
		ConvictionParams: &roundtablepb.ConvictionParams{
			MaxMultiplier:  signal.ConvictionParams.MaxMultiplier,
			TargetFraction: signal.ConvictionParams.TargetFraction,
			TargetRounds:   int32(signal.ConvictionParams.TargetRounds),
			Base:           signal.ConvictionParams.Base,
			Growth:         signal.ConvictionParams.Growth,
		},
		CurrentBalance:    int32(signal.CurrentBalance),
		CurrentProposalId: int32(signal.CurrentProposalID),
		AllProposals:      toInt32Slice(signal.AllProposals),
		ProblemStatement:  signal.ProblemStatement,
		Background:        signal.Background,
		AgentId:           agentID,
	}
}

func toInt32Slice(in []int) []int32 {
	if len(in) == 0 {
		return nil
	}
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func fromProtoAction(action *roundtablepb.Action, agentID string) (actionqueue.Action, bool) {
	switch actionqueue.ActionType(action.GetType()) {
	case actionqueue.ActionSubmitProposal:
		p := action.GetSubmitProposal()
		return actionqueue.Action{
			Type:    actionqueue.ActionSubmitProposal,
			AgentID: agentID,
			Payload: actionqueue.SubmitProposalPayload{IssueID: p.GetIssueId(), Content: p.GetContent()},
		}, true
	case actionqueue.ActionFeedback:
		p := action.GetFeedback()
		return actionqueue.Action{
			Type:    actionqueue.ActionFeedback,
			AgentID: agentID,
			Payload: actionqueue.FeedbackPayload{
				IssueID:          p.GetIssueId(),
				TargetProposalID: int(p.GetTargetProposalId()),
				Comment:          p.GetComment(),
				Tick:             int(p.GetTick()),
			},
		}, true
	case actionqueue.ActionRevise:
		p := action.GetRevise()
		return actionqueue.Action{
			Type:    actionqueue.ActionRevise,
			AgentID: agentID,
			Payload: actionqueue.RevisePayload{IssueID: p.GetIssueId(), NewContent: p.GetNewContent(), Tick: int(p.GetTick())},
		}, true
	case actionqueue.ActionStake:
		p := action.GetStake()
		var proposalID *int
		if p.GetHasProposalId() {
			id := int(p.GetProposalId())
			proposalID = &id
		}
		return actionqueue.Action{
			Type:    actionqueue.ActionStake,
			AgentID: agentID,
			Payload: actionqueue.StakePayload{
				IssueID:      p.GetIssueId(),
				ProposalID:   proposalID,
				StakeAmount:  int(p.GetStakeAmount()),
				RoundNumber:  int(p.GetRoundNumber()),
				Tick:         int(p.GetTick()),
				ChoiceReason: p.GetChoiceReason(),
			},
		}, true
	case actionqueue.ActionSignalReady:
		return actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: agentID}, true
	default:
		return actionqueue.Action{}, false
	}
}
