package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

func TestServiceCompleteBuildsModePrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "Photosynthesis turns light into food."}
	svc, err := NewServiceWithModel(context.Background(), fake, nil)
	require.NoError(t, err)

	reply, err := svc.Complete(context.Background(), "what is {photosynthesis}?", chat.ModeExplainSimply)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis turns light into food.", reply)

	require.Len(t, fake.seen, 2)
	assert.Equal(t, schema.System, fake.seen[0].Role)
	assert.Contains(t, fake.seen[0].Content, "five years old")
	assert.Equal(t, schema.User, fake.seen[1].Role)
	assert.Equal(t, "what is {photosynthesis}?", fake.seen[1].Content)
}

func TestServiceCompleteErrors(t *testing.T) {
	failing := &fakeChatModel{err: errors.New("quota exceeded")}
	svc, err := NewServiceWithModel(context.Background(), failing, nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "hi", chat.ModeSimple)
	assert.ErrorContains(t, err, "quota exceeded")

	blank := &fakeChatModel{reply: "   "}
	svc, err = NewServiceWithModel(context.Background(), blank, nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "hi", chat.ModeSimple)
	assert.ErrorIs(t, err, ErrEmptyReply)
}
