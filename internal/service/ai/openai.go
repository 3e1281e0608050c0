package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/sirupsen/logrus"

	"github.com/emolearn/emolearn/backend/internal/config"
	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// ErrEmptyReply is returned when a provider answers with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// OpenAICompleter acquires replies from an OpenAI-compatible Responses API,
// such as OpenAI itself or Groq.
type OpenAICompleter struct {
	client          *openai.Client
	model           string
	maxOutputTokens int64
	prompts         *ModePromptManager
	logger          *logrus.Entry
}

// NewOpenAICompleter creates a completer from configuration. Extra request
// options are appended after the configured ones.
func NewOpenAICompleter(cfg config.OpenAIConfig, logger *logrus.Entry, opts ...option.RequestOption) (*OpenAICompleter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("OpenAI API key or model is missing")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(2),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	requestOpts = append(requestOpts, opts...)

	client := openai.NewClient(requestOpts...)
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAICompleter{
		client:          &client,
		model:           cfg.Model,
		maxOutputTokens: maxTokens,
		prompts:         NewModePromptManager(),
		logger:          logger.WithField("provider", "openai"),
	}, nil
}

// Complete generates a reply. Quiz mode asks for structured output and renders
// it to markup.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, mode chat.Mode) (string, error) {
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Instructions:    openai.String(c.prompts.BuildSystemPrompt(mode)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if mode == chat.ModeQuiz {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "Quiz",
					Schema:      quizSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Multiple-choice quiz"),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("responses request failed: %w", err)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}

	if mode == chat.ModeQuiz {
		var quiz Quiz
		if err := decodeModelJSON(text, &quiz); err != nil {
			c.logger.WithError(err).Warn("quiz output was not valid JSON, returning raw text")
			return text, nil
		}
		text = quiz.Markdown()
	}

	c.logger.WithFields(logrus.Fields{
		"mode":   mode,
		"length": len(text),
	}).Debug("generated reply")
	return text, nil
}
