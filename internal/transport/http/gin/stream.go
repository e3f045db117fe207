package httpgin

import (
	"context"
	"io"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kyochen/tablecart/internal/room"
	"github.com/kyochen/tablecart/internal/service"
)

// heartbeatEvery keeps idle SSE connections alive through proxies.
const heartbeatEvery = 15 * time.Second

func sseHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

// @Summary  Join a session's event stream
// @Param    code      path   string  true   "Session code"
// @Param    nickname  query  string  false  "Display name"
// @Success  200  {string}  string  "text/event-stream"
// @Failure  404  {object}  ErrorResponse
// @Router   /session/{code}/stream [get]
func handleSessionStream(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		connID := uuid.New().String()

		ch, err := svcs.Live.Join(c.Request.Context(), code, connID, c.Query("nickname"))
		if err != nil {
			respondErr(c, err)
			return
		}

		// The request context dies with the client; cleanup still has
		// to reach the store and the remaining room members.
		defer svcs.Live.Leave(context.WithoutCancel(c.Request.Context()), code, connID)

		sseHeaders(c)
		streamEvents(c, ch)
	}
}

// @Summary  Stream call announcements
// @Success  200  {string}  string  "text/event-stream"
// @Router   /api/call/stream [get]
func handleCallStream(svcs *service.Services, hub *room.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		connID := uuid.New().String()

		// Announcements arrive via hub.Broadcast, which reaches every
		// room; a listener-only room keeps these connections out of
		// session state fan-out.
		ch := hub.Attach(callListenersRoom, connID)
		defer hub.Detach(callListenersRoom, connID)

		sseHeaders(c)

		// Late joiners see the current announcement immediately.
		if st, err := svcs.Call.Get(c.Request.Context()); err == nil {
			_ = sse.Encode(c.Writer, sse.Event{
				Event: "call_update",
				Data:  CallStateResponse{OK: true, Code: st.Code, UpdatedAt: st.UpdatedAt},
			})
			c.Writer.Flush()
		}

		streamEvents(c, ch)
	}
}

// callListenersRoom never receives room-scoped publishes, only global
// broadcasts.
const callListenersRoom = "_call"

func streamEvents(c *gin.Context, ch <-chan room.Event) {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			_ = sse.Encode(w, sse.Event{Event: ev.Name, Data: ev.Data})
			return true
		case <-ticker.C:
			_ = sse.Encode(w, sse.Event{Event: "ping", Data: "keepalive"})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
