package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vaultexe/server/internal/http/httperr"
	"github.com/Vaultexe/server/internal/http/middleware"
	"github.com/Vaultexe/server/internal/sync"
)

// SyncHandler streams vault mutation events to the authenticated user
// over server-sent events.
type SyncHandler struct {
	Notifier *sync.Notifier
}

func NewSyncHandler(notifier *sync.Notifier) *SyncHandler {
	return &SyncHandler{Notifier: notifier}
}

// Stream holds the connection open and forwards every event published for
// this user until the client disconnects.
func (h *SyncHandler) Stream(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_failed", "message": "Authentication failed"})
		return
	}

	ctx := c.Request.Context()
	events, stop, err := h.Notifier.Subscribe(ctx, user.ID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	defer stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("sync", ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
