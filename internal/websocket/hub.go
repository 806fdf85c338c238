package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"campuswiki/backend/internal/domain"
	"campuswiki/backend/internal/moderation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

// 连接时未指定 topics 参数时订阅的主题
var defaultTopics = []string{string(moderation.ActionFlag)}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}
			for _, origin := range allowedOrigins {
				if origin == "*" || origin == requestOrigin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeSubmission  MessageType = "submission"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Topics    []string        `json:"topics,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SubmissionEvent 推送给审核员的提交摘要，不包含正文
type SubmissionEvent struct {
	SubmissionID    string             `json:"submissionId"`
	UserID          string             `json:"userId"`
	ContentType     domain.ContentType `json:"contentType"`
	Title           string             `json:"title,omitempty"`
	Action          string             `json:"action"`
	Status          string             `json:"status"`
	Reason          string             `json:"reason,omitempty"`
	SpamScore       int                `json:"spamScore"`
	ReputationScore float64            `json:"reputationScore"`
	RiskLevel       string             `json:"riskLevel"`
	Violations      []string           `json:"violations,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// Client 代表一个审核员的WebSocket连接
type Client struct {
	ID     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	topics map[string]bool

	mu     sync.Mutex
	closed bool
}

// Hub 管理审核员连接，按审核动作（flag、reject 等）分主题广播
type Hub struct {
	clients    map[string]*Client
	topics     map[string]map[string]*Client // topic -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger

	allowedOrigins []string
}

// NewHub 创建WebSocket Hub
//
// 参数:
//   - allowedOrigins: 允许的 Origin 列表，为空时允许所有来源
//   - log: 日志记录器，可以为 nil
func NewHub(allowedOrigins []string, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		clients:        make(map[string]*Client),
		topics:         make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *Message, 256),
		done:           make(chan struct{}),
		log:            log,
		allowedOrigins: allowedOrigins,
	}
}

// Run 启动Hub，直到 ctx 结束
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			for topic := range client.topics {
				h.subscribeLocked(client, topic)
			}
			topics := client.topicList()
			h.mu.Unlock()
			h.log.Info("reviewer connected", zap.String("id", client.ID), zap.Strings("topics", topics))
			client.sendMessage(&Message{
				Type:      MessageTypeSubscribed,
				Topics:    topics,
				Timestamp: time.Now(),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for topic := range client.topics {
					h.unsubscribeLocked(client, topic)
				}
				delete(h.clients, client.ID)
				client.close()
				h.log.Info("reviewer disconnected", zap.String("id", client.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastToTopic(msg)
		}
	}
}

// NotifySubmission 按审核动作广播已保存的提交，队列满时丢弃
func (h *Hub) NotifySubmission(sub *domain.Submission, result moderation.ModerationResult) {
	violations := make([]string, 0, len(result.FilterViolations))
	for _, v := range result.FilterViolations {
		violations = append(violations, string(v.Type))
	}

	data, err := json.Marshal(SubmissionEvent{
		SubmissionID:    sub.ID,
		UserID:          sub.UserID,
		ContentType:     sub.ContentType,
		Title:           sub.Title,
		Action:          string(result.Action),
		Status:          string(sub.Status),
		Reason:          result.Reason,
		SpamScore:       result.SpamScore,
		ReputationScore: result.Reputation.Score,
		RiskLevel:       string(result.Reputation.Level),
		Violations:      violations,
		CreatedAt:       sub.CreatedAt,
	})
	if err != nil {
		h.log.Error("failed to marshal submission event", zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeSubmission,
		Topic:     string(result.Action),
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("review feed queue full, dropping event", zap.String("submission_id", sub.ID))
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastToTopic 向订阅该主题的客户端广播消息
func (h *Hub) broadcastToTopic(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.topics[msg.Topic] {
		if !client.enqueue(data) {
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.close()
	}
	h.clients = make(map[string]*Client)
	h.topics = make(map[string]map[string]*Client)
}

func (h *Hub) subscribeLocked(c *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*Client)
	}
	h.topics[topic][c.ID] = c
}

func (h *Hub) unsubscribeLocked(c *Client, topic string) {
	if clients, ok := h.topics[topic]; ok {
		delete(clients, c.ID)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// HandleWebSocket 处理审核员的WebSocket连接
//
// 查询参数 topics 为逗号分隔的审核动作，默认只订阅 flag。
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		topics, ok := parseTopics(c.Query("topics"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "msg": "无效的订阅主题"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := &Client{
			ID:     uuid.NewString(),
			conn:   conn,
			hub:    hub,
			send:   make(chan []byte, sendBufferSize),
			topics: make(map[string]bool, len(topics)),
		}
		for _, t := range topics {
			client.topics[t] = true
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// parseTopics 解析并校验订阅主题
func parseTopics(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return defaultTopics, true
	}
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		topic := strings.ToLower(strings.TrimSpace(part))
		if topic == "" {
			continue
		}
		if !validTopic(topic) {
			return nil, false
		}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return defaultTopics, true
	}
	return topics, true
}

func validTopic(topic string) bool {
	switch moderation.Action(topic) {
	case moderation.ActionApprove, moderation.ActionReject, moderation.ActionFlag, moderation.ActionMonitor:
		return true
	}
	return false
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket error", zap.Error(err), zap.String("clientID", c.ID))
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理订阅变更
func (c *Client) handleMessage(msg *Message) {
	topic := strings.ToLower(strings.TrimSpace(msg.Topic))

	switch msg.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if !validTopic(topic) {
			c.sendError("unknown topic: " + msg.Topic)
			return
		}
	default:
		c.sendError("unknown message type: " + string(msg.Type))
		return
	}

	c.hub.mu.Lock()
	if msg.Type == MessageTypeSubscribe {
		c.topics[topic] = true
		c.hub.subscribeLocked(c, topic)
	} else {
		delete(c.topics, topic)
		c.hub.unsubscribeLocked(c, topic)
	}
	topics := c.topicList()
	c.hub.mu.Unlock()

	c.sendMessage(&Message{
		Type:      MessageTypeSubscribed,
		Topics:    topics,
		Timestamp: time.Now(),
	})
}

// topicList 调用方需持有 hub.mu 或保证 topics 不被并发修改
func (c *Client) topicList() []string {
	list := make([]string, 0, len(c.topics))
	for t := range c.topics {
		list = append(list, t)
	}
	return list
}

func (c *Client) sendError(errMsg string) {
	c.sendMessage(&Message{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

func (c *Client) sendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error("failed to marshal message", zap.Error(err))
		return
	}
	if !c.enqueue(data) {
		c.hub.log.Warn("client channel blocked", zap.String("clientID", c.ID))
	}
}

// enqueue 非阻塞写入发送队列，连接已关闭或队列已满时返回 false
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
