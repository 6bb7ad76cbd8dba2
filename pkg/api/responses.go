package api

import "github.com/codeready-toolchain/roundtable/internal/engine"

// CreateIssueResponse is returned by POST /api/v1/issues.
type CreateIssueResponse struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
}

// SnapshotResponse is returned by GET /api/v1/issues/:id/snapshot. It embeds
// engine.Snapshot verbatim rather than re-declaring its fields, since the
// wire shape and the engine's internal shape are the same thing here.
type SnapshotResponse struct {
	IssueID string `json:"issue_id"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`
	engine.Snapshot
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
