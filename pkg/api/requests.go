package api

// CreateIssueRequest is the HTTP request body for POST /api/v1/issues.
type CreateIssueRequest struct {
	Title            string `json:"title" binding:"required"`
	ProblemStatement string `json:"problem_statement" binding:"required"`
	Background       string `json:"background,omitempty"`

	// NumAgents, PoolSeed, and RunSeed override the server's configured
	// defaults for this issue only; zero means "use the default".
	NumAgents int   `json:"num_agents,omitempty"`
	PoolSeed  int64 `json:"pool_seed,omitempty"`
	RunSeed   int64 `json:"run_seed,omitempty"`
}
