package api

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// wsHandler upgrades GET /api/v1/issues/:id/ws to a WebSocket and streams
// every event emitted for that issue as a JSON text frame until the issue
// finishes or the client disconnects. Grounded on the teacher's
// handler_ws.go Accept/HandleConnection shape, adapted to gin and to
// Manager.Subscribe's channel-based fan-out instead of a ConnectionManager.
func (s *Server) wsHandler(c *gin.Context) {
	issueID := c.Param("id")

	events, cancel, ok := s.manager.Subscribe(issueID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "issue not found"})
		return
	}
	defer cancel()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// Origin validation is deferred; allow all origins for now, same
		// posture the teacher's own handler_ws.go documents.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()
	for payload := range events {
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return
		}
	}
	_ = conn.Close(websocket.StatusNormalClosure, "issue finalized")
}
