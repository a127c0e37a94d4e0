package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

// GeminiChatModel adapts a Gemini generative model to eino's BaseChatModel.
type GeminiChatModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiChatModel opens a client authenticated with apiKey and binds modelName.
func NewGeminiChatModel(ctx context.Context, apiKey, modelName string) (*GeminiChatModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiChatModel{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Generate sends the user messages of input as a single-turn prompt.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	parts := promptParts(input)
	if len(parts) == 0 {
		return nil, fmt.Errorf("gemini prompt is empty")
	}

	resp, err := m.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream yields the whole generated message as a single chunk.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Close releases the client connection.
func (m *GeminiChatModel) Close() error {
	return m.client.Close()
}

func promptParts(input []*schema.Message) []genai.Part {
	parts := make([]genai.Part, 0, len(input))
	for _, msg := range input {
		if msg == nil || msg.Role != schema.User {
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}
	return parts
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil {
			return "", fmt.Errorf("gemini returned no candidates, block reason %v", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("gemini candidate has no content, finish reason %v", candidate.FinishReason)
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	if builder.Len() == 0 {
		return "", fmt.Errorf("gemini candidate has no text parts")
	}
	return builder.String(), nil
}
