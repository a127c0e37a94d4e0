package relay

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndAwaitReplyUsesStream(t *testing.T) {
	fake, srv := newFakeDirectLine(t)
	fake.fetchStatus = http.StatusInternalServerError

	upgrader := websocket.Upgrader{}
	frames := make(chan ActivitySet, 4)

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// keep-alive frame first
		_ = conn.WriteMessage(websocket.TextMessage, []byte(""))
		for set := range frames {
			if err := conn.WriteJSON(set); err != nil {
				return
			}
		}
	})
	streamSrv := newServer(t, mux)
	fake.streamURL = "ws" + strings.TrimPrefix(streamSrv.URL, "http") + "/stream"

	cfg := testConfig(srv.URL)
	cfg.Stream = true
	cfg.PollInterval = 100 * time.Millisecond
	client := NewClient(cfg, nil)
	t.Cleanup(func() { _ = client.Shutdown() })

	go func() {
		for fake.posts.Load() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		frames <- ActivitySet{Activities: []Activity{userMessage(postedActivityID, "hello")}}
		frames <- ActivitySet{Activities: []Activity{{
			ID:        "conv-1|0000002",
			Type:      "message",
			From:      ChannelAccount{ID: "hatyai-bot"},
			Text:      "from stream",
			ReplyToID: "someone-else",
		}}}
		frames <- ActivitySet{Activities: []Activity{botMessage("conv-1|0000003", "pushed")}}
		close(frames)
	}()

	reply, err := client.SendAndAwaitReply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "pushed", reply)
	assert.EqualValues(t, 0, fake.fetches.Load())
}

func TestStreamDialFailureFallsBackToPolling(t *testing.T) {
	fake, srv := newFakeDirectLine(t)
	fake.streamURL = "ws://127.0.0.1:1/unreachable"
	fake.activities = func(int32) []Activity {
		return []Activity{botMessage("conv-1|0000002", "polled")}
	}

	cfg := testConfig(srv.URL)
	cfg.Stream = true
	client := NewClient(cfg, nil)

	reply, err := client.SendAndAwaitReply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "polled", reply)

	session, ok := client.Session()
	require.True(t, ok)
	assert.False(t, session.Streaming)
}

func TestWaitStreamTimesOut(t *testing.T) {
	ch := make(chan Activity)
	sub := &subscription{ch: ch, done: make(chan struct{}), cancel: func() {}}

	start := time.Now()
	_, ok := waitStream(context.Background(), sub, "", "user", 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
