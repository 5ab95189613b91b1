package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/auth"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
)

func realtimeServer(t *testing.T, hub *realtime.Hub) *httptest.Server {
	t.Helper()
	h := NewHandler(Deps{Sessions: &fakeSessions{}, Hub: hub})
	r := gin.New()
	SetupRoutes(r, h, testKey, testIssuer)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestRealtimeStreamsFilteredRows(t *testing.T) {
	hub := realtime.NewHub(4)
	srv := realtimeServer(t, hub)

	tok := bearerFor(t, "stu-1", auth.RoleStudent)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/v1/realtime?table=attendance_records&filter=student_id%3Deq.stu-1&access_token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, realtime.Emit(ctx, hub, attendance.Table, realtime.Insert, attendance.Record{ID: "r-0", StudentID: "stu-2"}))
	require.NoError(t, realtime.Emit(ctx, hub, attendance.Table, realtime.Insert, attendance.Record{ID: "r-1", StudentID: "stu-1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt realtime.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, realtime.Insert, evt.Type)
	assert.Equal(t, "r-1", evt.New["id"])
}

func TestRealtimeRejectsStudentWideFeeds(t *testing.T) {
	srv := realtimeServer(t, realtime.NewHub(4))
	tok := bearerFor(t, "stu-1", auth.RoleStudent)

	for _, q := range []string{
		"table=" + session.Table,
		"table=attendance_records",
		"table=attendance_records&filter=student_id%3Deq.stu-2",
	} {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/realtime?"+q, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, q)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/realtime?table=users", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
