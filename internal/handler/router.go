package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/handler/assistant"
	"github.com/emolearn/emolearn/backend/internal/handler/emotion"
	"github.com/emolearn/emolearn/backend/internal/handler/stream"
	"github.com/emolearn/emolearn/backend/internal/metrics"
	middlewarePkg "github.com/emolearn/emolearn/backend/internal/middleware"
	assistantService "github.com/emolearn/emolearn/backend/internal/service/assistant"
	"github.com/emolearn/emolearn/backend/pkg/utils"
)

// Dependencies 路由需要的核心服务
type Dependencies struct {
	Config   config.Config
	Registry *assistantService.Registry
	Metrics  *metrics.Metrics
	Logger   *logrus.Entry
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.Config.Server.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": deps.Registry.Len(),
		})
	})

	var recorder stream.Recorder
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
		recorder = deps.Metrics
	}

	emotionHandler := emotion.New()
	assistantHandler := assistant.New(deps.Registry, logger)
	streamHandler := stream.New(deps.Registry, logger)
	wsHandler := stream.NewWebSocketHandler(deps.Registry, deps.Config.WebSocket, deps.Config.Server.AllowedOrigins, recorder, logger)

	r.Route("/api", func(api chi.Router) {
		emotionHandler.RegisterRoutes(api)
		assistantHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
