package emotion

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	"github.com/emolearn/emolearn/backend/pkg/utils"
)

// Handler 情绪目录的HTTP处理器
type Handler struct {
	catalog Catalog
}

// Catalog 情绪目录响应
type Catalog struct {
	Emotions      []Entry                `json:"emotions"`
	Interventions []emotion.Intervention `json:"interventions"`
}

// Entry 单个情绪标签的展示信息
type Entry struct {
	Symbol        emotion.Symbol `json:"symbol"`
	Label         string         `json:"label"`
	Emoji         string         `json:"emoji"`
	Negative      bool           `json:"negative"`
	Greeting      string         `json:"greeting"`
	ConfirmPrompt string         `json:"confirmPrompt,omitempty"`
}

// New 创建情绪目录处理器。目录是静态的，构造时生成一次。
func New() *Handler {
	symbols := emotion.All()
	entries := make([]Entry, 0, len(symbols))
	for _, sym := range symbols {
		entry := Entry{
			Symbol:   sym,
			Label:    sym.Label(),
			Emoji:    sym.Emoji(),
			Negative: sym.IsNegative(),
			Greeting: emotion.Greeting(sym),
		}
		if sym.IsNegative() {
			entry.ConfirmPrompt = emotion.ConfirmPrompt(sym)
		}
		entries = append(entries, entry)
	}

	return &Handler{
		catalog: Catalog{
			Emotions:      entries,
			Interventions: emotion.Interventions(),
		},
	}
}

// RegisterRoutes 注册情绪目录路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/emotions", h.handleListEmotions)
}

// handleListEmotions 列出所有情绪标签和辅助操作
func (h *Handler) handleListEmotions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog)
}
