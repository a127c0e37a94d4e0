package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Kcinzaa/Hatyaifinal/internal/config"
	chatModel "github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
	"github.com/Kcinzaa/Hatyaifinal/internal/service/ai"
	chatService "github.com/Kcinzaa/Hatyaifinal/internal/service/chat"
	"github.com/Kcinzaa/Hatyaifinal/internal/service/relay"
)

type brokenModel struct{}

func (brokenModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, errors.New("connection reset by peer")
}

func (brokenModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("connection reset by peer")
}

// setupRouter wires real clients whose upstreams are unreachable.
func setupRouter(t *testing.T, debugRoutes bool) http.Handler {
	t.Helper()

	dead := httptest.NewServer(http.NotFoundHandler())
	endpoint := dead.URL
	dead.Close()

	relayClient := relay.NewClient(config.RelayConfig{
		Secret:       "secret",
		Endpoint:     endpoint,
		UserID:       "user",
		PollInterval: time.Millisecond,
		PollAttempts: 1,
		HTTPTimeout:  time.Second,
	}, nil)

	aiSvc, err := ai.NewWithModel(context.Background(), brokenModel{}, config.ProviderGemini, config.DefaultGeminiModel)
	if err != nil {
		t.Fatalf("build ai service: %v", err)
	}

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>Hatyai chat</h1>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	dispatcher := chatService.NewService(relayClient, aiSvc)
	deps := Deps{
		Dispatcher: dispatcher,
		Catalog:    chatModel.DefaultCatalog(),
		Relay:      relayClient,
		AI:         aiSvc,
		StaticDir:  staticDir,
	}
	if debugRoutes {
		deps.Transcript = dispatcher
	}
	return NewRouter(deps)
}

func postChat(r http.Handler, message string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"`+message+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatAnswers200WhenUpstreamsFail(t *testing.T) {
	router := setupRouter(t, false)
	catalog := chatModel.DefaultCatalog()

	for message, want := range map[string]string{
		"!bot hello": catalog.RelayTransport,
		"hello":      catalog.AITransport,
	} {
		resp := postChat(router, message)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", message, resp.Code)
		}
		if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s: unexpected content type %q", message, ct)
		}

		var reply chatModel.Reply
		if err := json.Unmarshal(resp.Body.Bytes(), &reply); err != nil {
			t.Fatalf("%s: decode reply: %v", message, err)
		}
		if reply.Reply != want {
			t.Fatalf("%s: expected %q, got %q", message, want, reply.Reply)
		}
	}
}

func TestUnknownGetServesFrontend(t *testing.T) {
	router := setupRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/rooms/42", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Hatyai chat") {
		t.Fatalf("expected index page, got %q", resp.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	router := setupRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"provider":"gemini"`) {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestDebugTranscriptRecordsChat(t *testing.T) {
	router := setupRouter(t, true)
	postChat(router, "hello")

	req := httptest.NewRequest(http.MethodGet, "/debug/transcript", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Count    int                 `json:"count"`
		Messages []chatModel.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if body.Count != 1 || body.Messages[0].Content != "hello" || body.Messages[0].Failure != chatModel.KindTransport {
		t.Fatalf("unexpected transcript %+v", body)
	}
}

func TestDebugTranscriptDisabledByDefault(t *testing.T) {
	router := setupRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/debug/transcript", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	// falls through to the frontend, never the transcript
	if strings.Contains(resp.Body.String(), `"messages"`) {
		t.Fatalf("transcript exposed without DEBUG_ROUTES: %q", resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Hatyai chat") {
		t.Fatalf("expected index page, got %q", resp.Body.String())
	}
}
