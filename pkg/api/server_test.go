package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
	"github.com/codeready-toolchain/roundtable/pkg/config"
	"github.com/codeready-toolchain/roundtable/pkg/notify"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		AssignmentAward:          10,
		MaxFeedbackPerAgent:      3,
		FeedbackStake:            1,
		ProposalSelfStake:        1,
		FeedbackCommentMaxLength: 500,
		RevisionCycles:           1,
		StakingRounds:            5,
		NumAgents:                3,
		PoolSeed:                 1,
		RunSeed:                  1,
		LogEvents:                false,
		Conviction: ledger.ConvictionParams{
			MaxMultiplier:  2,
			TargetFraction: 0.5,
			TargetRounds:   3,
			Base:           1,
			Growth:         1.5,
		},
	}
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := NewManager(testConfig(), nil, notify.NewService(notify.ServiceConfig{}), nil)
	return NewServer(":0", mgr, nil, nil)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusHealthy, resp.Status)
	assert.Equal(t, healthStatusUnavailable, resp.Checks["database"].Status)
}

func TestCreateIssueHandler_ValidationError(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndSnapshotIssue(t *testing.T) {
	s := newTestServer(t)

	body := `{"title":"t","problem_statement":"decide something","num_agents":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var created CreateIssueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.IssueID)

	// Poll until the background run produces at least one snapshot. This is
	// deterministic in wall-clock terms only, not in outcome; the assertions
	// below only check shape, not a particular tick or phase.
	var snap SnapshotResponse
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/issues/"+created.IssueID+"/snapshot", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			return false
		}
		return json.Unmarshal(rec.Body.Bytes(), &snap) == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, created.IssueID, snap.IssueID)
}

func TestSnapshotHandler_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/issues/does-not-exist/snapshot", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func init() {
	gin.SetMode(gin.TestMode)
}
