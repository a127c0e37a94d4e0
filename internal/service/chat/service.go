package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
)

// RelayPrefix marks a message meant for the relay bot.
const RelayPrefix = "!bot"

const transcriptLimit = 50

// Request is a chat message with its destination already decided.
type Request interface {
	Route() chat.Route
	Text() string
}

// RelayRequest goes to the relay bot.
type RelayRequest struct {
	Body string
}

func (r RelayRequest) Route() chat.Route { return chat.RouteRelay }
func (r RelayRequest) Text() string      { return r.Body }

// GenerativeRequest goes to the generative model.
type GenerativeRequest struct {
	Body string
}

func (r GenerativeRequest) Route() chat.Route { return chat.RouteGenerative }
func (r GenerativeRequest) Text() string      { return r.Body }

// ParseRequest decides the route from the wire message. A RelayPrefix message has the
// prefix cut off and surrounding whitespace trimmed; anything else is passed unmodified.
func ParseRequest(message string) Request {
	if strings.HasPrefix(message, RelayPrefix) {
		return RelayRequest{Body: strings.TrimSpace(message[len(RelayPrefix):])}
	}
	return GenerativeRequest{Body: message}
}

// Relay is the session-based bot backend.
type Relay interface {
	SendAndAwaitReply(ctx context.Context, text string) (string, error)
}

// Generator is the generative model backend.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Result is the outcome of one dispatched request. Err, when set, is a *chat.Failure.
type Result struct {
	Route chat.Route
	Text  string
	Err   error
}

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() chat.Kind {
	if r.Err == nil {
		return ""
	}
	return chat.KindOf(r.Err)
}

// Service routes requests to exactly one backend and keeps a short in-memory transcript.
type Service struct {
	relay     Relay
	generator Generator

	mu         sync.RWMutex
	transcript []chat.Message
}

// NewService wires the two backends.
func NewService(relay Relay, generator Generator) *Service {
	return &Service{
		relay:      relay,
		generator:  generator,
		transcript: make([]chat.Message, 0, transcriptLimit),
	}
}

// Dispatch calls the backend chosen by req.
func (s *Service) Dispatch(ctx context.Context, req Request) Result {
	result := Result{Route: req.Route()}

	switch req.(type) {
	case RelayRequest:
		slog.Info("routing to direct line bot")
		result.Text, result.Err = s.relay.SendAndAwaitReply(ctx, req.Text())
	default:
		slog.Info("routing to generative model")
		result.Text, result.Err = s.generator.Generate(ctx, req.Text())
	}

	s.record(req, result)
	return result
}

// Transcript returns the most recent exchanges, oldest first.
func (s *Service) Transcript() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.transcript))
	copy(copied, s.transcript)
	return copied
}

func (s *Service) record(req Request, result Result) {
	message := chat.Message{
		ID:        uuid.NewString(),
		Route:     result.Route,
		Content:   req.Text(),
		Reply:     result.Text,
		Failure:   result.Kind(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if len(s.transcript) == transcriptLimit {
		s.transcript = append(s.transcript[:0], s.transcript[1:]...)
	}
	s.transcript = append(s.transcript, message)
	s.mu.Unlock()

	slog.Debug("chat exchange recorded", "id", message.ID, "route", message.Route, "failure", message.Failure)
}
