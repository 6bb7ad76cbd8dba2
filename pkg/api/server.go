// Package api exposes the roundtable engine over HTTP: create and run an
// issue, poll its latest snapshot, stream its live tick/event feed over
// WebSocket, and report health. Grounded on the teacher's pkg/api/server.go
// Server/Set*/setupRoutes shape, rebuilt on gin (github.com/gin-gonic/gin)
// and github.com/coder/websocket rather than the teacher's echo v5 and
// gorilla/websocket — the teacher's own go.mod does not declare either of
// those, so there is nothing pinned worth preserving here.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/roundtable/pkg/database"
)

// Server wires the Manager into a gin router plus its own http.Server for
// graceful shutdown, mirroring the teacher's Server{echo, httpServer, ...}
// construction/Start/Shutdown split.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	manager    *Manager
	dbClient   *database.Client
	log        *slog.Logger
}

// NewServer builds a Server listening on addr. dbClient may be nil; when
// nil, the health handler reports the database check as unavailable rather
// than failing the whole check.
func NewServer(addr string, manager *Manager, dbClient *database.Client, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), slogLogger(log))

	s := &Server{
		router:   router,
		manager:  manager,
		dbClient: dbClient,
		log:      log,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the WebSocket feed holds the connection open indefinitely
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/api/v1")
	v1.POST("/issues", s.createIssueHandler)
	v1.GET("/issues/:id/snapshot", s.snapshotHandler)
	v1.GET("/issues/:id/ws", s.wsHandler)
}

// Start begins serving and blocks until the server stops. Returns nil on a
// clean Shutdown.
func (s *Server) Start() error {
	s.log.Info("api server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// slogLogger adapts gin's request logging to the ambient slog stack, in
// place of the teacher's echo middleware.Logger.
func slogLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
