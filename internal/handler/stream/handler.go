package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	assistantService "github.com/emolearn/emolearn/backend/internal/service/assistant"
	"github.com/emolearn/emolearn/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler streams orchestrator events to the overlay via Server-Sent Events
type Handler struct {
	registry  *assistantService.Registry
	logger    *logrus.Entry
	heartbeat time.Duration
}

// New creates a new stream handler
func New(registry *assistantService.Registry, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		registry:  registry,
		logger:    logger.WithField("component", "sse"),
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistants/{sessionID}/events", h.handleEvents)
}

// handleEvents 先推送一次完整快照，然后转发会话事件，直到客户端断开或会话结束。
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.registry.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	logger := h.logger.WithField("session", sessionID)
	logger.Info("event stream opened")
	defer logger.Info("event stream closed")

	if err := utils.SendSSEEvent(w, flusher, "state", session.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "ping"); err != nil {
				return
			}
			h.touch(logger, sessionID)
		case event, ok := <-events:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "end", map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(event.Type), event); err != nil {
				logger.WithError(err).Debug("failed to write event")
				return
			}
			h.touch(logger, sessionID)
		}
	}
}

// touch 打开的事件流让会话保持活跃，避免被空闲清理
func (h *Handler) touch(logger *logrus.Entry, sessionID string) {
	if err := h.registry.Touch(sessionID); err != nil {
		logger.WithError(err).Debug("session no longer registered")
	}
}
