package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/auth"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var feedTables = map[string]bool{
	session.Table:    true,
	attendance.Table: true,
}

// Realtime streams row changes of one table as JSON over a websocket.
// Students may only follow attendance records filtered to themselves.
func (h *Handler) Realtime(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not configured"})
		return
	}
	table := c.Query("table")
	if !feedTables[table] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown table"})
		return
	}
	filter, err := realtime.ParseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cl := claims(c); cl.Role == auth.RoleStudent {
		if table != attendance.Table || filter.Column != "student_id" || filter.Value != cl.Subject {
			c.JSON(http.StatusForbidden, gin.H{"error": "students may only follow their own attendance"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(table, filter)
	defer sub.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
