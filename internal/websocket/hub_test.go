package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", HandleWebSocket(hub))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func testSubmission(id string) *domain.Submission {
	return &domain.Submission{
		ID:          id,
		UserID:      "user-1",
		ContentType: domain.ContentWiki,
		Title:       "期末复习",
		Status:      domain.SubmissionFlagged,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHub_NotifySubmission(t *testing.T) {
	t.Run("只推送已订阅主题的事件", func(t *testing.T) {
		hub, srv := newTestServer(t)
		conn := dial(t, srv, "")

		welcome := readMessage(t, conn)
		assert.Equal(t, MessageTypeSubscribed, welcome.Type)
		assert.Equal(t, []string{"flag"}, welcome.Topics)

		hub.NotifySubmission(testSubmission("sub-reject"), moderation.ModerationResult{Action: moderation.ActionReject})
		hub.NotifySubmission(testSubmission("sub-flag"), moderation.ModerationResult{
			Action:    moderation.ActionFlag,
			SpamScore: 45,
			FilterViolations: []moderation.FilterViolation{
				{Type: moderation.ViolationPersonalInfo, Severity: moderation.SeverityMedium},
			},
		})

		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypeSubmission, msg.Type)
		assert.Equal(t, "flag", msg.Topic)

		var event SubmissionEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "sub-flag", event.SubmissionID)
		assert.Equal(t, 45, event.SpamScore)
		assert.Equal(t, []string{"personal_info"}, event.Violations)
	})

	t.Run("运行时订阅新主题", func(t *testing.T) {
		hub, srv := newTestServer(t)
		conn := dial(t, srv, "?topics=flag")
		readMessage(t, conn)

		require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSubscribe, Topic: "reject"}))
		ack := readMessage(t, conn)
		assert.Equal(t, MessageTypeSubscribed, ack.Type)
		assert.ElementsMatch(t, []string{"flag", "reject"}, ack.Topics)

		hub.NotifySubmission(testSubmission("sub-1"), moderation.ModerationResult{Action: moderation.ActionReject})
		msg := readMessage(t, conn)
		assert.Equal(t, "reject", msg.Topic)
	})

	t.Run("未知主题返回错误消息", func(t *testing.T) {
		_, srv := newTestServer(t)
		conn := dial(t, srv, "")
		readMessage(t, conn)

		require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSubscribe, Topic: "delete"}))
		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypeError, msg.Type)
	})
}

func TestHandleWebSocket_InvalidTopics(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws?topics=flag,bogus")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseTopics(t *testing.T) {
	topics, ok := parseTopics(" Reject , flag ,")
	assert.True(t, ok)
	assert.Equal(t, []string{"reject", "flag"}, topics)

	topics, ok = parseTopics("")
	assert.True(t, ok)
	assert.Equal(t, defaultTopics, topics)

	_, ok = parseTopics("approve,unknown")
	assert.False(t, ok)
}
