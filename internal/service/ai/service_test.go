package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kcinzaa/Hatyaifinal/internal/config"
	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
)

type fakeChatModel struct {
	calls int
	input []*schema.Message
	reply string
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.input = input
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

func newTestService(t *testing.T, fake *fakeChatModel) *Service {
	t.Helper()
	svc, err := NewWithModel(context.Background(), fake, config.ProviderGemini, config.DefaultGeminiModel)
	require.NoError(t, err)
	return svc
}

func TestGenerateSendsTextVerbatim(t *testing.T) {
	fake := &fakeChatModel{reply: "สวัสดีครับ"}
	svc := newTestService(t, fake)

	reply, err := svc.Generate(context.Background(), "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "สวัสดีครับ", reply)

	require.Len(t, fake.input, 1)
	assert.Equal(t, schema.User, fake.input[0].Role)
	assert.Equal(t, "  hello there  ", fake.input[0].Content)
}

func TestGenerateModelErrorIsTransport(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("quota exceeded")}
	svc := newTestService(t, fake)

	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, chat.KindTransport, chat.KindOf(err))
}

func TestGenerateEmptyReplyIsTransport(t *testing.T) {
	fake := &fakeChatModel{reply: "   "}
	svc := newTestService(t, fake)

	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, chat.KindTransport, chat.KindOf(err))
}

func TestNewServiceWithoutCredential(t *testing.T) {
	svc, err := NewService(context.Background(), config.AIConfig{
		Provider:    config.ProviderGemini,
		GeminiModel: config.DefaultGeminiModel,
	})
	require.NoError(t, err)
	assert.False(t, svc.Configured())
	assert.Equal(t, config.DefaultGeminiModel, svc.ModelName())

	_, err = svc.Generate(context.Background(), "hello")
	require.ErrorIs(t, err, chat.ErrAINotConfigured)
	assert.Equal(t, chat.KindConfigMissing, chat.KindOf(err))
	assert.NoError(t, svc.Shutdown())
}

func TestPromptPartsKeepsUserMessagesOnly(t *testing.T) {
	parts := promptParts([]*schema.Message{
		schema.SystemMessage("ignored"),
		schema.UserMessage("hi"),
		nil,
	})
	require.Len(t, parts, 1)
	assert.Equal(t, genai.Text("hi"), parts[0])
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("hello "), genai.Text("world")}},
		}},
	}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	assert.Error(t, err)

	_, err = responseText(nil)
	assert.Error(t, err)
}
