package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/roundtable/pkg/config"
	testdb "github.com/codeready-toolchain/roundtable/test/database"
)

func insertIssue(t *testing.T, svc *Service, issueID, status string, finalizedAt *time.Time) {
	t.Helper()
	_, err := svc.db.ExecContext(context.Background(),
		`INSERT INTO issues (issue_id, title, problem_statement, assigned_agents, pool_seed, run_seed, status, finalized_at)
		 VALUES ($1, 'Test Issue', 'what should we do?', '["agent-a"]', 1, 1, $2, $3)`,
		issueID, status, finalizedAt,
	)
	require.NoError(t, err)
}

func insertEvent(t *testing.T, svc *Service, issueID string, createdAt time.Time) {
	t.Helper()
	_, err := svc.db.ExecContext(context.Background(),
		`INSERT INTO events (issue_id, channel, payload, created_at) VALUES ($1, $2, '{}', $3)`,
		issueID, "issue:"+issueID, createdAt,
	)
	require.NoError(t, err)
}

func countIssues(t *testing.T, svc *Service, issueID string) int {
	t.Helper()
	var n int
	require.NoError(t, svc.db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM issues WHERE issue_id = $1`, issueID).Scan(&n))
	return n
}

func countEvents(t *testing.T, svc *Service, issueID string) int {
	t.Helper()
	var n int
	require.NoError(t, svc.db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM events WHERE issue_id = $1`, issueID).Scan(&n))
	return n
}

func TestDeleteOldIssues_RemovesOnlyFinalizedIssuesPastTheWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	client := testdb.NewTestClient(t)
	cfg := &config.RetentionConfig{SessionRetentionDays: 30, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, client.DB())

	old := time.Now().AddDate(0, 0, -60)
	recent := time.Now().AddDate(0, 0, -1)

	insertIssue(t, svc, "issue-old-finalized", "finalized", &old)
	insertIssue(t, svc, "issue-recent-finalized", "finalized", &recent)
	insertIssue(t, svc, "issue-old-running", "running", nil)

	svc.deleteOldIssues(context.Background())

	assert.Equal(t, 0, countIssues(t, svc, "issue-old-finalized"))
	assert.Equal(t, 1, countIssues(t, svc, "issue-recent-finalized"))
	assert.Equal(t, 1, countIssues(t, svc, "issue-old-running"))
}

func TestDeleteOldIssues_CascadesToEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	client := testdb.NewTestClient(t)
	cfg := &config.RetentionConfig{SessionRetentionDays: 30, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, client.DB())

	old := time.Now().AddDate(0, 0, -60)
	insertIssue(t, svc, "issue-cascade", "finalized", &old)
	insertEvent(t, svc, "issue-cascade", time.Now())

	svc.deleteOldIssues(context.Background())

	assert.Equal(t, 0, countEvents(t, svc, "issue-cascade"))
}

func TestCleanupOrphanedEvents_RemovesEventsPastTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	client := testdb.NewTestClient(t)
	cfg := &config.RetentionConfig{SessionRetentionDays: 365, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, client.DB())

	insertIssue(t, svc, "issue-events", "running", nil)
	insertEvent(t, svc, "issue-events", time.Now().Add(-2*time.Hour))
	insertEvent(t, svc, "issue-events", time.Now())

	svc.cleanupOrphanedEvents(context.Background())

	assert.Equal(t, 1, countEvents(t, svc, "issue-events"))
}

func TestStartStop_RunsImmediatelyAndStopsCleanly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	client := testdb.NewTestClient(t)
	cfg := &config.RetentionConfig{SessionRetentionDays: 30, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, client.DB())

	old := time.Now().AddDate(0, 0, -60)
	insertIssue(t, svc, "issue-start-stop", "finalized", &old)

	svc.Start(context.Background())
	require.Eventually(t, func() bool {
		return countIssues(t, svc, "issue-start-stop") == 0
	}, 2*time.Second, 50*time.Millisecond)

	svc.Stop()
}

func TestStartIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	client := testdb.NewTestClient(t)
	cfg := &config.RetentionConfig{SessionRetentionDays: 30, EventTTL: time.Hour, CleanupInterval: time.Hour}
	svc := NewService(cfg, client.DB())

	svc.Start(context.Background())
	svc.Start(context.Background()) // second call must not spawn a second loop or panic
	svc.Stop()
}
