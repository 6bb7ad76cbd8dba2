package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// createIssueHandler handles POST /api/v1/issues: builds a fresh Issue,
// assigns a seeded agent selection, and starts the engine in the
// background.
func (s *Server) createIssueHandler(c *gin.Context) {
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	issueID, err := s.manager.CreateAndRun(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, CreateIssueResponse{IssueID: issueID, Status: "running"})
}

// snapshotHandler handles GET /api/v1/issues/:id/snapshot.
func (s *Server) snapshotHandler(c *gin.Context) {
	snap, ok := s.manager.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "issue not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
