package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/justmike1/sprintbot/metrics"
	botslack "github.com/justmike1/sprintbot/slack"
	"github.com/justmike1/sprintbot/store"
)

const (
	msgAgentError = "The agent encountered an error or bug."
	msgAgentFix   = "To continue to run this agent, please fix the agent source code."
)

// Dispatcher is the top-level message handler: it routes each message to the
// Jira handler or the chat responder, delivers the reply and persists the
// conversation history.
type Dispatcher struct {
	out     Outbound
	store   store.Store
	locks   *store.KeyedMutex
	jira    *JiraHandler
	chat    *ChatResponder
	metrics *metrics.Collector
	logger  *slog.Logger

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

func NewDispatcher(out Outbound, st store.Store, jiraHandler *JiraHandler, chat *ChatResponder, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		out:     out,
		store:   st,
		locks:   store.NewKeyedMutex(),
		jira:    jiraHandler,
		chat:    chat,
		metrics: m,
		logger:  slog.Default().With("component", "dispatcher"),
	}
}

// HandleMessage processes one inbound message. Messages for the same
// conversation key are handled one at a time. On failure the user gets two
// fixed diagnostic lines and the history is left as it was.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg botslack.InboundMessage) {
	key := store.Key{ConversationID: msg.ConversationID, SenderID: msg.SenderID}
	logger := d.logger.With("request_id", uuid.NewString(), "conversation", key.String(), "group", msg.IsGroup)

	if !d.begin() {
		logger.WarnContext(ctx, "dropping message received during shutdown")
		return
	}
	defer d.inflight.Done()

	unlock := d.locks.Lock(key.String())
	defer unlock()

	err := d.safeDispatch(ctx, logger, key, msg)
	if err == nil {
		return
	}

	logger.ErrorContext(ctx, "message handling failed", "error", err)
	d.metrics.RecordDispatchError()
	for _, line := range []string{msgAgentError, msgAgentFix} {
		if sendErr := d.out.Send(ctx, msg.ConversationID, botslack.OutboundMessage{Text: line}); sendErr != nil {
			logger.ErrorContext(ctx, "failed to send diagnostic message", "error", sendErr)
		}
	}
}

func (d *Dispatcher) begin() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draining {
		return false
	}
	d.inflight.Add(1)
	return true
}

// Shutdown stops accepting messages and waits for those in progress to
// finish, or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight messages: %w", ctx.Err())
	}
}

// safeDispatch turns a panic in the handling path into an error.
func (d *Dispatcher) safeDispatch(ctx context.Context, logger *slog.Logger, key store.Key, msg botslack.InboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.dispatch(ctx, logger, key, msg)
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *slog.Logger, key store.Key, msg botslack.InboundMessage) error {
	history, err := d.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	delivery, err := NewDelivery(ctx, d.out, msg)
	if err != nil {
		return err
	}

	if IsJiraQuery(msg.Text) {
		d.metrics.RecordMessage(metrics.RouteJira)
		logger.InfoContext(ctx, "routing to jira", "mode", delivery.Mode())

		reply := d.jira.Handle(ctx, msg.Text)
		history = append(history, store.Turn{Role: store.RoleAssistant, Content: reply})
		if err := delivery.Reply(ctx, reply); err != nil {
			return fmt.Errorf("deliver jira reply: %w", err)
		}
	} else {
		d.metrics.RecordMessage(metrics.RouteChat)
		logger.InfoContext(ctx, "routing to chat", "mode", delivery.Mode(), "history_turns", len(history))

		history, err = d.chat.Respond(ctx, history, msg.Text, delivery)
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}
	}

	if err := d.store.Set(ctx, key, history); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// HandleFeedback records a feedback submission. Nothing consumes it beyond
// the log and the feedback counter.
func (d *Dispatcher) HandleFeedback(ctx context.Context, fb botslack.FeedbackEvent) {
	d.logger.InfoContext(ctx, "feedback received",
		"conversation", fb.ConversationID,
		"user", fb.SenderID,
		"message_ts", fb.MessageTS,
		"value", fb.Value)
	d.metrics.RecordFeedback(fb.Value)
}
