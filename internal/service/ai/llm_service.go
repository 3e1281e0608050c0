package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// Service acquires assistant replies through an eino chain
type Service struct {
	prompts *ModePromptManager
	chain   compose.Runnable[map[string]any, *schema.Message]
	logger  *logrus.Entry
}

// NewService creates a new AI service backed by the configured Ark model
func NewService(ctx context.Context, cfg config.AIConfig, logger *logrus.Entry) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, logger)
}

// NewServiceWithModel builds the chain around an existing chat model
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, logger *logrus.Entry) (*Service, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		prompts: NewModePromptManager(),
		chain:   runnable,
		logger:  logger.WithField("provider", "ark"),
	}, nil
}

// Complete generates a reply for prompt in the given mode
func (s *Service) Complete(ctx context.Context, query string, mode chat.Mode) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(query, mode))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyReply
	}

	s.logger.WithFields(logrus.Fields{
		"mode":   mode,
		"length": len(response.Content),
	}).Debug("generated reply")
	return response.Content, nil
}

func (s *Service) buildChainInput(query string, mode chat.Mode) map[string]any {
	return map[string]any{
		"system": s.prompts.BuildSystemPrompt(mode),
		"query":  query,
	}
}
