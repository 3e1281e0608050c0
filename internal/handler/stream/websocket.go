package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/middleware"
	"github.com/emolearn/emolearn/backend/internal/model/chat"
	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	assistantService "github.com/emolearn/emolearn/backend/internal/service/assistant"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// Recorder 记录WebSocket连接和消息指标
type Recorder interface {
	RecordWebSocketConnect()
	RecordWebSocketDisconnect()
	RecordWebSocketMessage(msgType, direction string)
	RecordWebSocketThrottled()
}

type noopRecorder struct{}

func (noopRecorder) RecordWebSocketConnect() {}
func (noopRecorder) RecordWebSocketDisconnect() {}
func (noopRecorder) RecordWebSocketMessage(string, string) {}
func (noopRecorder) RecordWebSocketThrottled() {}

// WebSocketHandler 双向控制通道：接收情绪信号和控制命令，推送会话事件
type WebSocketHandler struct {
	registry *assistantService.Registry
	cfg      config.WebSocketConfig
	recorder Recorder
	logger   *logrus.Entry
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(registry *assistantService.Registry, cfg config.WebSocketConfig, allowedOrigins []string, recorder Recorder, logger *logrus.Entry) *WebSocketHandler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}

	return &WebSocketHandler{
		registry: registry,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.WithField("component", "websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/assistants/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// EmotionMessage 情绪信号
type EmotionMessage struct {
	Emotion string `json:"emotion"`
}

// TextMessage 草稿或发送的文本
type TextMessage struct {
	Text string `json:"text"`
}

// InterventionMessage 辅助操作按钮
type InterventionMessage struct {
	Mode string `json:"mode"`
}

// inboundTypes 可识别的入站消息类型；其余类型在指标中统一记为 unknown
var inboundTypes = map[string]bool{
	"emotion":      true,
	"open":         true,
	"toggle":       true,
	"accept":       true,
	"close":        true,
	"draft":        true,
	"send":         true,
	"intervention": true,
	"snapshot":     true,
}

func metricType(msgType string) string {
	if inboundTypes[msgType] {
		return msgType
	}
	return "unknown"
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// socket 串行化同一连接上的写操作
type socket struct {
	conn      *websocket.Conn
	sessionID string
	recorder  Recorder
	logger    *logrus.Entry
	mu        sync.Mutex
}

func (s *socket) send(msgType string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := s.conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: s.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		s.logger.WithError(err).Debug("write failed")
		return
	}
	s.recorder.RecordWebSocketMessage(msgType, "outbound")
}

func (s *socket) sendError(message string) {
	s.send("error", map[string]string{"message": message})
}

// shutdown 发送关闭帧并关闭底层连接，阻塞中的读操作随之返回
func (s *socket) shutdown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, reason),
		time.Now().Add(writeTimeout))
	_ = s.conn.Close()
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.registry.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	h.recorder.RecordWebSocketConnect()
	defer h.recorder.RecordWebSocketDisconnect()

	logger := h.logger.WithField("session", sessionID)
	logger.Info("new connection")

	sock := &socket{conn: conn, sessionID: sessionID, recorder: h.recorder, logger: logger}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.forwardEvents(ctx, cancel, sock, events)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn)
	}()
	defer wg.Wait()
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	sock.send("state", session.Snapshot())

	limiter := rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.Burst)
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.WithError(err).Warn("read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.recorder.RecordWebSocketMessage(metricType(msg.Type), "inbound")

		if !limiter.Allow() {
			h.recorder.RecordWebSocketThrottled()
			sock.sendError("rate limit exceeded")
			continue
		}

		if msg.SessionID != "" && msg.SessionID != sessionID {
			sock.sendError("session mismatch")
			continue
		}

		// 连接上的活动同样算作会话活跃
		if err := h.registry.Touch(sessionID); err != nil {
			logger.WithError(err).Debug("session no longer registered")
		}

		h.handleMessage(sock, session, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(sock *socket, session *assistantService.Orchestrator, msg *inboundMessage) {
	switch msg.Type {
	case "emotion":
		var payload EmotionMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			sock.sendError("invalid emotion payload")
			return
		}
		sym, err := emotion.Parse(payload.Emotion)
		if err != nil {
			sock.sendError(err.Error())
			return
		}
		decision := session.OnEmotionChange(sym)
		sock.send("decision", map[string]any{
			"emotion": sym,
			"action":  decision.Action,
			"reason":  decision.Reason,
		})
	case "open":
		session.ManualOpen()
	case "toggle":
		session.Toggle()
	case "accept":
		if err := session.Accept(); err != nil {
			sock.sendError(err.Error())
		}
	case "close":
		session.Close()
	case "draft":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			sock.sendError("invalid draft payload")
			return
		}
		session.UpdateDraft(payload.Text)
	case "send":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			sock.sendError("invalid send payload")
			return
		}
		if !session.SendUserMessage(payload.Text) {
			sock.sendError("message rejected")
		}
	case "intervention":
		var payload InterventionMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			sock.sendError("invalid intervention payload")
			return
		}
		mode, err := chat.ParseMode(payload.Mode)
		if err != nil {
			sock.sendError(err.Error())
			return
		}
		if err := session.RequestIntervention(mode); err != nil {
			sock.sendError(err.Error())
		}
	case "snapshot":
		sock.send("state", session.Snapshot())
	default:
		sock.sendError("unsupported message type: " + msg.Type)
	}
}

// forwardEvents 将会话事件推送到客户端；会话关闭时断开连接
func (h *WebSocketHandler) forwardEvents(ctx context.Context, cancel context.CancelFunc, sock *socket, events <-chan assistantService.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				sock.send("end", nil)
				cancel()
				sock.shutdown("session ended")
				return
			}
			sock.send(string(event.Type), event)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return
			}
		}
	}
}
