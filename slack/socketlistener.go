package slack

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SocketListener connects to Slack via Socket Mode (outbound WebSocket) and
// dispatches messages and feedback clicks to handlers. No inbound URL
// configuration is needed.
type SocketListener struct {
	smClient   *socketmode.Client
	router     *eventRouter
	debug      bool
	connected  atomic.Bool
	eventCount atomic.Int64
	logger     *slog.Logger
}

// NewSocketListener creates a Socket Mode listener.
// appToken is the Slack app-level token (xapp-...) with connections:write scope.
// botToken is the bot token (xoxb-...). botUserID is the bot's own user ID,
// used to ignore its own messages.
// Set env SOCKET_MODE_DEBUG=1 to enable wire-level logging.
func NewSocketListener(appToken, botToken, botUserID string, onMessage MessageHandler, onFeedback FeedbackHandler) *SocketListener {
	debug := os.Getenv("SOCKET_MODE_DEBUG") == "1"

	apiOpts := []slacklib.Option{slacklib.OptionAppLevelToken(appToken)}
	smOpts := []socketmode.Option{}
	if debug {
		apiOpts = append(apiOpts,
			slacklib.OptionDebug(true),
			slacklib.OptionLog(log.New(os.Stdout, "[slack-api] ", log.LstdFlags)))
		smOpts = append(smOpts,
			socketmode.OptionDebug(true),
			socketmode.OptionLog(log.New(os.Stdout, "[socket-wire] ", log.LstdFlags)))
	}

	logger := slog.Default().With("component", "socket-mode")
	return &SocketListener{
		smClient: socketmode.New(slacklib.New(botToken, apiOpts...), smOpts...),
		router: &eventRouter{
			botUserID:  botUserID,
			onMessage:  onMessage,
			onFeedback: onFeedback,
			logger:     logger,
		},
		debug:  debug,
		logger: logger,
	}
}

// Run connects to Slack and processes events until ctx is cancelled. The
// socketmode client reconnects on its own after disconnects.
func (sl *SocketListener) Run(ctx context.Context) error {
	go sl.handleEvents(ctx)

	sl.logger.Info("connecting to Slack", "debug", sl.debug)
	return sl.smClient.RunContext(ctx)
}

func (sl *SocketListener) handleEvents(ctx context.Context) {
	for {
		var evt socketmode.Event
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sl.smClient.Events:
			if !ok {
				sl.logger.Info("event channel closed, listener stopped")
				return
			}
			evt = e
		}
		sl.eventCount.Add(1)

		switch evt.Type {
		case socketmode.EventTypeConnecting:
			if sl.connected.Load() {
				sl.logger.Info("reconnecting")
			}

		case socketmode.EventTypeConnected:
			if !sl.connected.Swap(true) {
				sl.logger.Info("connected", "events_processed", sl.eventCount.Load())
			}

		case socketmode.EventTypeConnectionError:
			sl.connected.Store(false)
			sl.logger.Warn("connection error, will retry")

		case socketmode.EventTypeEventsAPI:
			sl.ack(evt)
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				sl.logger.Warn("unexpected EventsAPI payload", "data_type", fmt.Sprintf("%T", evt.Data))
				continue
			}
			sl.router.handleEventsAPI(ctx, eventsAPIEvent)

		case socketmode.EventTypeInteractive:
			sl.ack(evt)
			cb, ok := evt.Data.(slacklib.InteractionCallback)
			if !ok {
				sl.logger.Warn("unexpected interactive payload", "data_type", fmt.Sprintf("%T", evt.Data))
				continue
			}
			sl.router.handleInteraction(ctx, cb)

		default:
			sl.ack(evt)
		}
	}
}

// ack acknowledges an envelope immediately so Slack does not retry it.
func (sl *SocketListener) ack(evt socketmode.Event) {
	if evt.Request != nil {
		sl.smClient.Ack(*evt.Request)
	}
}
