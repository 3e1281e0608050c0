package ai

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/service/assistant"
)

// NewCompleter returns the reply provider selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig, logger *logrus.Entry) (assistant.Completer, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		svc, err := NewService(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.ProviderOpenAI:
		completer, err := NewOpenAICompleter(cfg.OpenAI, logger)
		if err != nil {
			return nil, err
		}
		return completer, nil
	case config.ProviderOffline, "":
		return NewOfflineCompleter(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
