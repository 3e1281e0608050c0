package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/handler"
	"github.com/emolearn/emolearn/backend/internal/metrics"
	"github.com/emolearn/emolearn/backend/internal/service/ai"
	"github.com/emolearn/emolearn/backend/internal/service/assistant"
	"github.com/emolearn/emolearn/backend/internal/service/events"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	setupLogging(cfg.Log)
	logger := logrus.WithField("service", "emolearn")

	completer, err := ai.NewCompleter(ctx, cfg.AI, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to initialize AI provider, falling back to offline replies")
		completer = ai.NewOfflineCompleter()
	} else {
		logger.WithField("provider", cfg.AI.Provider).Info("AI provider initialized")
	}

	var sinks []assistant.Sink
	if cfg.Redis.Enabled() {
		rdb, err := events.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, event publishing disabled")
		} else {
			defer rdb.Close()
			sinks = append(sinks, events.NewPublisher(rdb, cfg.Redis.Channel))
			logger.WithField("channel", cfg.Redis.Channel).Info("publishing assistant events to redis")
		}
	} else {
		logger.Info("REDIS_URL 未配置，跳过事件发布")
	}

	m := metrics.New()

	registry := assistant.NewRegistry(assistant.RegistryOptions{
		IdleTTL:         cfg.Assistant.SessionTTL,
		CleanupInterval: cleanupInterval(cfg.Assistant.SessionTTL),
		Completer:       completer,
		Timing: assistant.Timing{
			TriggerLatency: cfg.Assistant.TriggerLatency,
			Cooldown:       cfg.Assistant.Cooldown,
			PromptTimeout:  cfg.Assistant.PromptTimeout,
			ReplyTimeout:   cfg.Assistant.ReplyTimeout,
		},
		Logger:   logger,
		Observer: m,
		Sinks:    sinks,
	})
	defer registry.Close()

	router := handler.NewRouter(handler.Dependencies{
		Config:   *cfg,
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
	})

	startServer(ctx, cfg.Server, router, logger, registry.Close)
}

func setupLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithError(err).Warnf("unknown LOG_LEVEL %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// cleanupInterval 过期会话的清理周期：TTL 的三分之一，至多一分钟
func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 3
	if interval > time.Minute || interval <= 0 {
		interval = time.Minute
	}
	return interval
}

// startServer 运行HTTP服务；onShutdown 在优雅关闭开始时调用，用于结束长连接。
func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *logrus.Entry, onShutdown func()) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if onShutdown != nil {
		srv.RegisterOnShutdown(onShutdown)
	}

	logger.WithField("addr", addr).Info("EmoLearn assistant backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
