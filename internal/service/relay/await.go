package relay

import (
	"context"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/Kcinzaa/Hatyaifinal/internal/model/chat"
)

// awaitReply waits for the bot's answer to the activity identified by postedID.
// With a stream subscription it waits for a pushed reply first and falls back to a
// single fetch; otherwise it polls the activity list up to PollAttempts times.
func (c *Client) awaitReply(ctx context.Context, session *Session, postedID string, sub *subscription) (string, error) {
	if sub != nil {
		budget := c.cfg.InitialDelay + time.Duration(c.cfg.PollAttempts)*c.cfg.PollInterval
		if text, ok := waitStream(ctx, sub, postedID, c.cfg.UserID, budget); ok {
			return text, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return c.poll(ctx, session, postedID, 0, 1)
	}

	return c.poll(ctx, session, postedID, c.cfg.InitialDelay, c.cfg.PollAttempts)
}

func (c *Client) poll(ctx context.Context, session *Session, postedID string, delay time.Duration, attempts int) (string, error) {
	if err := sleep(ctx, delay); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		set, err := c.fetchActivities(ctx, session)
		if err != nil {
			return "", err
		}

		if text, ok := selectReply(set.Activities, c.replyAnchor(postedID), c.cfg.UserID); ok {
			return text, nil
		}

		if attempt < attempts {
			if err := sleep(ctx, c.cfg.PollInterval); err != nil {
				return "", err
			}
		}
	}

	return "", chat.ErrRelayPending
}

// replyAnchor returns the activity id replies must follow, or "" when the whole
// activity list counts.
func (c *Client) replyAnchor(postedID string) string {
	if c.cfg.RepliesAfterPost {
		return postedID
	}
	return ""
}

// selectReply returns the text of the last bot message in activities. With a
// non-empty anchor that appears in the list, only activities after it count.
func selectReply(activities []Activity, anchor, userID string) (string, bool) {
	candidates := activities
	if anchor != "" {
		for i, activity := range activities {
			if activity.ID == anchor {
				candidates = activities[i+1:]
				break
			}
		}
	}

	replies := pie.Filter(candidates, func(a Activity) bool {
		return isBotMessage(a, userID)
	})
	if len(replies) == 0 {
		return "", false
	}

	return pie.Last(replies).Text, true
}

func isBotMessage(a Activity, userID string) bool {
	return a.From.ID != userID && a.Type == activityTypeMessage
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
