package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/roundtable/pkg/database"
	"github.com/codeready-toolchain/roundtable/pkg/version"
)

const (
	healthStatusHealthy     = "healthy"
	healthStatusUnavailable = "unavailable"
	healthStatusUnhealthy   = "unhealthy"
)

// healthHandler handles GET /health. Only the roundtable's own components
// (database, when configured) are checked; a remote collaborator outage
// (pkg/heuristic/remote) is deliberately excluded, same reasoning as the
// teacher's own healthHandler comment: an external dependency being down
// must not make an orchestrator restart this process.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if s.dbClient == nil {
		checks["database"] = HealthCheck{Status: healthStatusUnavailable, Message: "persistence disabled"}
	} else if _, err := database.Health(reqCtx, s.dbClient.DB()); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
