package assistant

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	assistantService "github.com/emolearn/emolearn/backend/internal/service/assistant"
	"github.com/emolearn/emolearn/backend/internal/service/trigger"
	"github.com/emolearn/emolearn/backend/pkg/utils"
)

// Handler 助手会话的HTTP处理器
type Handler struct {
	registry *assistantService.Registry
	logger   *logrus.Entry
}

// New 创建助手处理器
func New(registry *assistantService.Registry, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{registry: registry, logger: logger}
}

// RegisterRoutes 注册助手相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/assistants", h.handleCreate)
	r.Get("/assistants/{sessionID}", h.handleGet)
	r.Delete("/assistants/{sessionID}", h.handleDelete)
	r.Post("/assistants/{sessionID}/emotion", h.handleEmotion)
	r.Post("/assistants/{sessionID}/open", h.handleOpen)
	r.Post("/assistants/{sessionID}/toggle", h.handleToggle)
	r.Post("/assistants/{sessionID}/accept", h.handleAccept)
	r.Post("/assistants/{sessionID}/close", h.handleClose)
	r.Put("/assistants/{sessionID}/draft", h.handleDraft)
	r.Post("/assistants/{sessionID}/messages", h.handleSend)
	r.Post("/assistants/{sessionID}/interventions/{mode}", h.handleIntervention)
}

type createResponse struct {
	ID    string                 `json:"id"`
	State assistantService.State `json:"state"`
}

type emotionRequest struct {
	Emotion string `json:"emotion"`
}

type emotionResponse struct {
	Action trigger.Action         `json:"action"`
	Reason trigger.Reason         `json:"reason"`
	State  assistantService.State `json:"state"`
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.Create()
	if err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, createResponse{ID: session.ID(), State: session.Snapshot()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEmotion(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload emotionRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sym, err := emotion.Parse(payload.Emotion)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision := session.OnEmotionChange(sym)
	utils.RespondJSON(w, http.StatusOK, emotionResponse{
		Action: decision.Action,
		Reason: decision.Reason,
		State:  session.Snapshot(),
	})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.ManualOpen()
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Toggle()
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Accept(); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Close()
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload textRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	session.UpdateDraft(payload.Text)
	w.WriteHeader(http.StatusNoContent)
}

// handleSend 发送学习者消息。被拒绝（空白或未打开聊天）时返回 204，不视为错误。
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload textRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !session.SendUserMessage(payload.Text) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, session.Snapshot())
}

func (h *Handler) handleIntervention(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	mode, err := chat.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := session.RequestIntervention(mode); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, session.Snapshot())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*assistantService.Orchestrator, bool) {
	session, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, assistantService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistantService.ErrUnsupportedMode):
		return http.StatusBadRequest
	case errors.Is(err, assistantService.ErrNotConfirming), errors.Is(err, assistantService.ErrChatClosed):
		return http.StatusConflict
	case errors.Is(err, assistantService.ErrShutdown):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
