package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/do"
	"github.com/samber/oops"

	"github.com/Kcinzaa/Hatyaifinal/internal/config"
	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
)

var _ do.Shutdownable = (*Service)(nil)

// Service sends a single user prompt to the configured generative model.
// No system prompt and no history are attached.
type Service struct {
	provider  string
	modelName string
	chain     compose.Runnable[[]*schema.Message, *schema.Message]
	closer    io.Closer
}

// NewService builds the model for cfg.Provider. When the provider's credential is
// missing the returned Service is usable but answers every call with a config failure.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		slog.Warn("generative model credential not configured", "provider", cfg.Provider)
		return &Service{provider: cfg.Provider, modelName: cfg.ModelName()}, nil
	}

	chatModel, closer, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	svc, err := NewWithModel(ctx, chatModel, cfg.Provider, cfg.ModelName())
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	svc.closer = closer
	return svc, nil
}

// NewWithModel wraps an existing chat model.
func NewWithModel(ctx context.Context, chatModel model.BaseChatModel, provider, modelName string) (*Service, error) {
	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		provider:  provider,
		modelName: modelName,
		chain:     runnable,
	}, nil
}

func newChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		m, err := cfg.NewArkChatModel(ctx)
		return m, nil, err
	default:
		m, err := NewGeminiChatModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}
}

// Configured reports whether a model is wired in.
func (s *Service) Configured() bool {
	return s.chain != nil
}

// Provider returns the provider name, e.g. "gemini".
func (s *Service) Provider() string {
	return s.provider
}

// ModelName returns the fixed model selector.
func (s *Service) ModelName() string {
	return s.modelName
}

// Generate submits text verbatim and returns the generated text.
// Errors are *chat.Failure values.
func (s *Service) Generate(ctx context.Context, text string) (string, error) {
	if s.chain == nil {
		slog.Error("generative model credential is missing, check .env", "provider", s.provider)
		return "", chat.ErrAINotConfigured
	}

	slog.Info("sending prompt to generative model", "provider", s.provider, "model", s.modelName, "length", len(text))

	response, err := s.chain.Invoke(ctx, []*schema.Message{schema.UserMessage(text)})
	if err != nil {
		return "", s.transportFailure(oops.In("ai").
			With("provider", s.provider, "model", s.modelName).
			Wrapf(err, "failed to run chat chain"))
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", s.transportFailure(oops.In("ai").
			With("provider", s.provider, "model", s.modelName).
			Errorf("model returned no text"))
	}

	slog.Info("received reply from generative model", "provider", s.provider, "length", len(response.Content))
	return response.Content, nil
}

// Shutdown releases the underlying client.
func (s *Service) Shutdown() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Service) transportFailure(err error) error {
	slog.Error("generative model call failed", "error", err)
	return chat.Fail(chat.KindTransport, err)
}
