package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/oops"
)

const subscriberBuffer = 32

// streamListener reads activity sets pushed over the conversation's websocket and
// fans them out to subscribers.
type streamListener struct {
	conn *websocket.Conn

	mu   sync.Mutex
	subs map[uint64]chan Activity
	next uint64

	done   chan struct{}
	closed atomic.Bool
}

type subscription struct {
	ch     <-chan Activity
	done   <-chan struct{}
	cancel func()
}

func dialStream(ctx context.Context, streamURL string) (*streamListener, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return nil, oops.In("relay").Wrapf(err, "failed to dial activity stream")
	}

	l := &streamListener{
		conn: conn,
		subs: make(map[uint64]chan Activity),
		done: make(chan struct{}),
	}
	go l.run()
	return l, nil
}

func (l *streamListener) run() {
	defer close(l.done)

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if !l.closed.Load() {
				slog.Warn("direct line stream closed", "error", err)
			}
			return
		}

		// empty frames are keep-alives
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		var set ActivitySet
		if err := json.Unmarshal(data, &set); err != nil {
			slog.Debug("skipping unreadable stream frame", "error", err)
			continue
		}
		l.publish(set.Activities)
	}
}

func (l *streamListener) publish(activities []Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ch := range l.subs {
		for _, activity := range activities {
			select {
			case ch <- activity:
			default:
				slog.Warn("stream subscriber is full, dropping activity", "activity_id", activity.ID)
			}
		}
	}
}

func (l *streamListener) subscribe() *subscription {
	ch := make(chan Activity, subscriberBuffer)

	l.mu.Lock()
	id := l.next
	l.next++
	l.subs[id] = ch
	l.mu.Unlock()

	return &subscription{
		ch:   ch,
		done: l.done,
		cancel: func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		},
	}
}

func (l *streamListener) alive() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Close stops the reader goroutine.
func (l *streamListener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.conn.Close()
	<-l.done
	return err
}

// waitStream blocks until a bot message answering postedID arrives, the budget
// elapses, ctx ends, or the stream closes.
func waitStream(ctx context.Context, sub *subscription, postedID, userID string, budget time.Duration) (string, bool) {
	timer := time.NewTimer(budget)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", false
		case <-timer.C:
			return "", false
		case <-sub.done:
			return "", false
		case activity := <-sub.ch:
			if !isBotMessage(activity, userID) {
				continue
			}
			if postedID != "" && activity.ReplyToID != "" && activity.ReplyToID != postedID {
				continue
			}
			return activity.Text, true
		}
	}
}
