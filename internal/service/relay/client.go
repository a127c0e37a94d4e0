package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/Kcinzaa/Hatyaifinal/internal/config"
	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
)

var _ do.Shutdownable = (*Client)(nil)

// Session is the single conversation this process holds with the relay service.
type Session struct {
	ConversationID string    `json:"conversationId"`
	CreatedAt      time.Time `json:"createdAt"`
	Streaming      bool      `json:"streaming"`

	streamURL string
	stream    *streamListener
}

// Client bridges one lazily created conversation with a Direct Line style relay service.
// The conversation is created on first use and reused for the lifetime of the Client.
type Client struct {
	cfg  config.RelayConfig
	http *http.Client

	group   singleflight.Group
	mu      sync.RWMutex
	session *Session
}

// NewClient returns a relay client. A nil httpClient gets one with cfg.HTTPTimeout.
func NewClient(cfg config.RelayConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Configured reports whether a relay credential is present.
func (c *Client) Configured() bool {
	return c.cfg.Enabled()
}

// Session returns a snapshot of the held conversation, if any.
func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	snapshot := Session{
		ConversationID: c.session.ConversationID,
		CreatedAt:      c.session.CreatedAt,
		Streaming:      c.session.stream != nil && c.session.stream.alive(),
	}
	return snapshot, true
}

// SendAndAwaitReply posts text into the conversation and waits, bounded by the poll
// budget, for the bot's reply. Errors are *chat.Failure values.
func (c *Client) SendAndAwaitReply(ctx context.Context, text string) (string, error) {
	if !c.cfg.Enabled() {
		slog.Error("direct line secret is missing, check DIRECT_LINE_SECRET")
		return "", chat.ErrRelayNotConfigured
	}

	session, err := c.ensureSession(ctx)
	if err != nil {
		return "", c.transportFailure(err)
	}

	var sub *subscription
	if session.stream != nil && session.stream.alive() {
		sub = session.stream.subscribe()
		defer sub.cancel()
	}

	postedID, err := c.postActivity(ctx, session, text)
	if err != nil {
		return "", c.transportFailure(err)
	}

	reply, err := c.awaitReply(ctx, session, postedID, sub)
	if errors.Is(err, chat.ErrRelayPending) {
		slog.Info("direct line bot has not replied within the poll budget", "conversation_id", session.ConversationID)
		return "", err
	}
	if err != nil {
		return "", c.transportFailure(err)
	}

	return reply, nil
}

// Shutdown closes the activity stream, if one was opened.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.stream != nil {
		return c.session.stream.Close()
	}
	return nil
}

func (c *Client) transportFailure(err error) error {
	slog.Error("direct line error", "error", err)
	return chat.Fail(chat.KindTransport, err)
}

// ensureSession returns the held session, creating it on first use.
// Concurrent first callers share a single creation request.
func (c *Client) ensureSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	existing := c.session
	c.mu.RUnlock()
	if existing != nil {
		return existing, nil
	}

	v, err, _ := c.group.Do("conversation", func() (any, error) {
		c.mu.RLock()
		existing := c.session
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// 会话由所有等待者共享，不能被第一个调用方的取消拖垮。
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.creationTimeout())
		defer cancel()

		session, err := c.createConversation(createCtx)
		if err != nil {
			return nil, err
		}

		if c.cfg.Stream && session.streamURL != "" {
			listener, err := dialStream(createCtx, session.streamURL)
			if err != nil {
				slog.Warn("direct line stream unavailable, falling back to polling",
					"conversation_id", session.ConversationID, "error", err)
			} else {
				session.stream = listener
				session.Streaming = true
			}
		}

		c.mu.Lock()
		c.session = session
		c.mu.Unlock()

		slog.Info("direct line conversation started",
			"conversation_id", session.ConversationID, "streaming", session.Streaming)
		return session, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil
}

func (c *Client) creationTimeout() time.Duration {
	if c.cfg.HTTPTimeout > 0 {
		return c.cfg.HTTPTimeout
	}
	return 30 * time.Second
}

func (c *Client) createConversation(ctx context.Context) (*Session, error) {
	payload, err := c.do(ctx, http.MethodPost, "/conversations", nil)
	if err != nil {
		return nil, err
	}

	var conv conversationResponse
	if err := json.Unmarshal(payload, &conv); err != nil {
		return nil, oops.In("relay").Wrapf(err, "failed to decode conversation")
	}
	if conv.ConversationID == "" {
		return nil, oops.In("relay").Errorf("conversation response carried no conversationId")
	}

	return &Session{
		ConversationID: conv.ConversationID,
		CreatedAt:      time.Now().UTC(),
		streamURL:      conv.StreamURL,
	}, nil
}

// postActivity sends text as a message from the configured user and returns the
// activity id assigned by the service, or "" when the service did not return one.
func (c *Client) postActivity(ctx context.Context, session *Session, text string) (string, error) {
	clientActivityID := uuid.NewString()
	activity := Activity{
		Type: activityTypeMessage,
		From: ChannelAccount{ID: c.cfg.UserID},
		Text: text,
		ChannelData: map[string]any{
			"clientActivityID": clientActivityID,
		},
	}

	payload, err := c.do(ctx, http.MethodPost, activitiesPath(session), activity)
	if err != nil {
		return "", oops.In("relay").With("conversation_id", session.ConversationID).Wrapf(err, "failed to post activity")
	}

	var resource resourceResponse
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &resource); err != nil {
			slog.Debug("direct line post returned an unreadable body", "error", err)
		}
	}

	slog.Debug("direct line activity posted",
		"conversation_id", session.ConversationID,
		"activity_id", resource.ID,
		"client_activity_id", clientActivityID)
	return resource.ID, nil
}

func (c *Client) fetchActivities(ctx context.Context, session *Session) (ActivitySet, error) {
	payload, err := c.do(ctx, http.MethodGet, activitiesPath(session), nil)
	if err != nil {
		return ActivitySet{}, oops.In("relay").With("conversation_id", session.ConversationID).Wrapf(err, "failed to fetch activities")
	}

	var set ActivitySet
	if err := json.Unmarshal(payload, &set); err != nil {
		return ActivitySet{}, oops.In("relay").With("conversation_id", session.ConversationID).Wrapf(err, "failed to decode activities")
	}
	return set, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, oops.In("relay").Wrapf(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Endpoint+path, reader)
	if err != nil {
		return nil, oops.In("relay").Wrapf(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, oops.In("relay").With("method", method, "path", path).Wrapf(err, "request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, oops.In("relay").With("method", method, "path", path).Wrapf(err, "failed to read response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, oops.In("relay").
			With("method", method, "path", path, "status", resp.StatusCode).
			Errorf("unexpected status %d: %s", resp.StatusCode, truncate(payload, 256))
	}

	return payload, nil
}

func activitiesPath(session *Session) string {
	return "/conversations/" + url.PathEscape(session.ConversationID) + "/activities"
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
