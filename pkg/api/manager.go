package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/roundtable/internal/engine"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/internal/engine/pool"
	"github.com/codeready-toolchain/roundtable/pkg/collaborator"
	"github.com/codeready-toolchain/roundtable/pkg/config"
	"github.com/codeready-toolchain/roundtable/pkg/database"
	"github.com/codeready-toolchain/roundtable/pkg/heuristic"
	"github.com/codeready-toolchain/roundtable/pkg/notify"
	"github.com/codeready-toolchain/roundtable/pkg/rtevents"
)

// run tracks one issue's in-flight or finished engine instance.
type run struct {
	mu     sync.RWMutex
	eng    *engine.Engine
	sink   *broadcastSink
	done   bool
	runErr error
}

func (r *run) snapshot() (SnapshotResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.sink.latest()
	if !ok {
		return SnapshotResponse{}, false
	}
	resp := SnapshotResponse{
		IssueID:  r.eng.State().Issues.Issue().IssueID,
		Done:     r.done,
		Snapshot: snap,
	}
	if r.runErr != nil {
		resp.Error = r.runErr.Error()
	}
	return resp, true
}

// Manager owns the pool of agent candidates shared across issues and the set
// of currently-tracked runs, grounded on cmd/roundtable/main.go's
// pool-then-per-scenario-select wiring, adapted from a batch CLI loop to a
// request-driven HTTP surface.
type Manager struct {
	cfg      *config.Config
	dbClient *database.Client
	notify   *notify.Service
	log      *slog.Logger

	candidatePool []pool.Candidate

	mu   sync.RWMutex
	runs map[string]*run
}

// NewManager builds a Manager. dbClient may be nil when PersistEvents is
// disabled; notifySvc must be non-nil but behaves as a no-op when
// unconfigured (see notify.Service).
func NewManager(cfg *config.Config, dbClient *database.Client, notifySvc *notify.Service, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:           cfg,
		dbClient:      dbClient,
		notify:        notifySvc,
		log:           log,
		candidatePool: pool.GeneratePool(uint64(cfg.PoolSeed), cfg.NumAgents),
		runs:          make(map[string]*run),
	}
}

// CreateAndRun builds a fresh Issue from req, assigns a seeded agent
// selection, and starts the engine in a background goroutine. It returns the
// generated issue id immediately; callers poll Snapshot or subscribe to Feed
// for progress.
func (m *Manager) CreateAndRun(req CreateIssueRequest) (string, error) {
	numAgents := req.NumAgents
	if numAgents == 0 {
		numAgents = m.cfg.NumAgents
	}
	poolSeed := req.PoolSeed
	if poolSeed == 0 {
		poolSeed = m.cfg.PoolSeed
	}
	runSeed := req.RunSeed
	if runSeed == 0 {
		runSeed = m.cfg.RunSeed
	}

	candidatePool := m.candidatePool
	if poolSeed != m.cfg.PoolSeed {
		candidatePool = pool.GeneratePool(uint64(poolSeed), numAgents)
	}
	selected := pool.Select(candidatePool, uint64(runSeed), numAgents)

	issueID := uuid.NewString()
	assignedIDs := make([]string, len(selected))
	for i, c := range selected {
		assignedIDs[i] = c.AgentID
	}
	issue := model.NewIssue(issueID, req.Title, req.ProblemStatement, req.Background, assignedIDs)

	agents := make(map[string]collaborator.Agent, len(selected))
	for i, c := range selected {
		agents[c.AgentID] = heuristic.New(uint64(runSeed) ^ uint64(i) ^ 0xd6e8feb86659fd93)
	}

	sink := newBroadcastSink(m.buildInnerSink(issueID))
	eng, err := engine.New(issueID, issue, agents, engine.Config{
		AssignmentAward:          m.cfg.AssignmentAward,
		MaxFeedbackPerAgent:      m.cfg.MaxFeedbackPerAgent,
		FeedbackStake:            m.cfg.FeedbackStake,
		ProposalSelfStake:        m.cfg.ProposalSelfStake,
		RevisionCycles:           m.cfg.RevisionCycles,
		StakingRounds:            m.cfg.StakingRounds,
		FeedbackCommentMaxLength: m.cfg.FeedbackCommentMaxLength,
		Conviction:               m.cfg.Conviction,
	}, sink, m.log)
	if err != nil {
		return "", fmt.Errorf("construct engine: %w", err)
	}

	r := &run{eng: eng, sink: sink}
	m.mu.Lock()
	m.runs[issueID] = r
	m.mu.Unlock()

	go m.runToCompletion(issueID, r)

	return issueID, nil
}

func (m *Manager) runToCompletion(issueID string, r *run) {
	err := r.eng.Run()

	r.mu.Lock()
	r.done = true
	r.runErr = err
	r.mu.Unlock()

	r.sink.close()

	if err != nil {
		m.log.Error("issue run failed", "issue_id", issueID, "error", err)
		return
	}

	state := r.eng.State()
	m.notify.NotifyFinalized(context.Background(), state.Issues.Issue(), r.sink.winnerProposalID(), state.FinalizationTick)
}

// buildInnerSink mirrors cmd/roundtable/main.go's buildSink: log output is
// always on, Postgres persistence + NOTIFY only when configured.
func (m *Manager) buildInnerSink(issueID string) engine.EventSink {
	var sinks []engine.EventSink
	if m.cfg.LogEvents {
		sinks = append(sinks, rtevents.NewLogSink(m.log))
	}
	if m.cfg.PersistEvents && m.dbClient != nil {
		sinks = append(sinks, rtevents.NewPostgresSink(m.dbClient.DB(), issueID, m.log))
	}
	return rtevents.NewMultiSink(sinks...)
}

// Snapshot returns the latest known state of issueID.
func (m *Manager) Snapshot(issueID string) (SnapshotResponse, bool) {
	m.mu.RLock()
	r, ok := m.runs[issueID]
	m.mu.RUnlock()
	if !ok {
		return SnapshotResponse{}, false
	}
	return r.snapshot()
}

// Subscribe registers a channel that receives every future event for
// issueID as JSON bytes, for pkg/api's WebSocket live feed. The returned
// cancel func must be called once the subscriber disconnects.
func (m *Manager) Subscribe(issueID string) (<-chan []byte, func(), bool) {
	m.mu.RLock()
	r, ok := m.runs[issueID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	return r.sink.subscribe()
}

// broadcastSink decorates an engine.EventSink, fanning each emitted event
// out to live WebSocket subscribers (grounded on the teacher's
// WSHub.broadcast, pkg/api/websocket.go) while also remembering the latest
// Snapshot and the FINALIZATION_DECISION winner id for Manager.Snapshot and
// notify.NotifyFinalized respectively (the same concern
// cmd/roundtable.capturingSink addresses for the CLI path).
type broadcastSink struct {
	inner engine.EventSink

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	closed      bool

	snapMu   sync.RWMutex
	snap     engine.Snapshot
	haveSnap bool

	winMu    sync.Mutex
	winnerID int
}

func newBroadcastSink(inner engine.EventSink) *broadcastSink {
	return &broadcastSink{inner: inner, subscribers: make(map[chan []byte]struct{})}
}

func (s *broadcastSink) Emit(rec model.EventRecord) {
	if rec.EventType == "FINALIZATION_DECISION" {
		if id, ok := rec.Payload["winner_proposal_id"].(int); ok {
			s.winMu.Lock()
			s.winnerID = id
			s.winMu.Unlock()
		}
	}
	s.inner.Emit(rec)
	if payload, err := json.Marshal(rec); err == nil {
		s.broadcast(payload)
	}
}

func (s *broadcastSink) SaveSnapshot(snap engine.Snapshot) {
	s.inner.SaveSnapshot(snap)
	s.snapMu.Lock()
	s.snap = snap
	s.haveSnap = true
	s.snapMu.Unlock()
}

func (s *broadcastSink) latest() (engine.Snapshot, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap, s.haveSnap
}

func (s *broadcastSink) winnerProposalID() int {
	s.winMu.Lock()
	defer s.winMu.Unlock()
	return s.winnerID
}

func (s *broadcastSink) broadcast(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- payload:
		default:
			// Slow subscriber — drop rather than block the engine's tick loop.
		}
	}
}

func (s *broadcastSink) subscribe() (<-chan []byte, func(), bool) {
	ch := make(chan []byte, 64)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}, false
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, true
}

func (s *broadcastSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}
