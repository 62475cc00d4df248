package slack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	slacklib "github.com/slack-go/slack"
)

// DefaultStreamInterval is the minimum gap between chat.update calls while
// streaming. Slack rate-limits chat.update to roughly one call per second per
// channel.
const DefaultStreamInterval = time.Second

type Client struct {
	api            *slacklib.Client
	streamInterval time.Duration
}

func NewClient(botToken string, opts ...slacklib.Option) *Client {
	return &Client{api: slacklib.New(botToken, opts...), streamInterval: DefaultStreamInterval}
}

// SetStreamInterval overrides DefaultStreamInterval.
func (c *Client) SetStreamInterval(d time.Duration) {
	c.streamInterval = d
}

// GetBotUserID returns the Slack user ID of the bot token.
func (c *Client) GetBotUserID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to call auth.test: %w", err)
	}
	return resp.UserID, nil
}

// Send posts one message to the channel.
func (c *Client) Send(ctx context.Context, channelID string, msg OutboundMessage) error {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, messageOptions(msg)...); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

// OpenStream prepares a streamed reply in the channel. Nothing is posted
// until the first chunk (or Close).
func (c *Client) OpenStream(_ context.Context, channelID string) (MessageStream, error) {
	return &messageStream{api: c.api, channelID: channelID, interval: c.streamInterval}, nil
}

// messageStream posts the first chunk as a new message and grows it with
// chat.update, at most once per interval. Close writes the final text with
// the annotation blocks.
type messageStream struct {
	api       *slacklib.Client
	channelID string
	interval  time.Duration

	mu        sync.Mutex
	ts        string
	buf       strings.Builder
	lastFlush time.Time
	closed    bool
}

func (s *messageStream) Emit(ctx context.Context, chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("stream already closed")
	}
	s.buf.WriteString(chunk)

	if s.ts == "" {
		_, ts, err := s.api.PostMessageContext(ctx, s.channelID, messageOptions(OutboundMessage{Text: s.buf.String()})...)
		if err != nil {
			return fmt.Errorf("failed to start stream: %w", err)
		}
		s.ts = ts
		s.lastFlush = time.Now()
		return nil
	}

	if time.Since(s.lastFlush) < s.interval {
		return nil
	}
	return s.updateLocked(ctx, OutboundMessage{Text: s.buf.String()})
}

func (s *messageStream) Close(ctx context.Context, final OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.buf.WriteString(final.Text)
	msg := OutboundMessage{Text: s.buf.String(), AIGenerated: final.AIGenerated, Feedback: final.Feedback}

	if s.ts == "" {
		if _, _, err := s.api.PostMessageContext(ctx, s.channelID, messageOptions(msg)...); err != nil {
			return fmt.Errorf("failed to post stream: %w", err)
		}
		return nil
	}
	return s.updateLocked(ctx, msg)
}

func (s *messageStream) updateLocked(ctx context.Context, msg OutboundMessage) error {
	if _, _, _, err := s.api.UpdateMessageContext(ctx, s.channelID, s.ts, messageOptions(msg)...); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	s.lastFlush = time.Now()
	return nil
}
