package slack

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

// eventRouter turns Events API payloads and interactions into bot-level
// events. It is shared by the Socket Mode listener and the HTTP handler.
type eventRouter struct {
	botUserID  string
	onMessage  MessageHandler
	onFeedback FeedbackHandler
	logger     *slog.Logger
}

func (er *eventRouter) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		er.logger.Debug("skipping non-callback event", "type", event.Type)
		return
	}

	var (
		msg InboundMessage
		ok  bool
	)
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		msg, ok = inboundFromMessage(ev, er.botUserID)
	case *slackevents.AppMentionEvent:
		msg, ok = inboundFromMention(ev, er.botUserID)
	default:
		er.logger.Debug("unhandled inner event", "inner_type", event.InnerEvent.Type)
		return
	}
	if !ok {
		return
	}

	er.logger.Info("message received",
		"channel", msg.ConversationID, "user", msg.SenderID, "group", msg.IsGroup, "text", truncate(msg.Text, 80))
	go er.onMessage(ctx, msg)
}

func (er *eventRouter) handleInteraction(ctx context.Context, cb slacklib.InteractionCallback) {
	fb, ok := feedbackFromInteraction(cb)
	if !ok {
		er.logger.Debug("ignoring interaction", "type", cb.Type)
		return
	}
	if er.onFeedback != nil {
		go er.onFeedback(ctx, fb)
	}
}

// inboundFromMessage accepts plain user messages in one-to-one conversations.
// Channel messages reach the bot as app_mention events instead.
func inboundFromMessage(ev *slackevents.MessageEvent, botUserID string) (InboundMessage, bool) {
	if ev.ChannelType != "im" {
		return InboundMessage{}, false
	}
	if ev.SubType != "" || ev.BotID != "" || ev.User == "" || ev.User == botUserID {
		return InboundMessage{}, false
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return InboundMessage{}, false
	}
	return InboundMessage{
		ConversationID: ev.Channel,
		SenderID:       ev.User,
		Text:           text,
		IsGroup:        false,
	}, true
}

func inboundFromMention(ev *slackevents.AppMentionEvent, botUserID string) (InboundMessage, bool) {
	if ev.BotID != "" || ev.User == "" || ev.User == botUserID {
		return InboundMessage{}, false
	}
	text := strings.TrimSpace(mentionPattern.ReplaceAllString(ev.Text, ""))
	if text == "" {
		return InboundMessage{}, false
	}
	return InboundMessage{
		ConversationID: ev.Channel,
		SenderID:       ev.User,
		Text:           text,
		IsGroup:        true,
	}, true
}

func feedbackFromInteraction(cb slacklib.InteractionCallback) (FeedbackEvent, bool) {
	if cb.Type != slacklib.InteractionTypeBlockActions {
		return FeedbackEvent{}, false
	}
	for _, action := range cb.ActionCallback.BlockActions {
		if action == nil || action.BlockID != FeedbackBlockID {
			continue
		}
		channel := cb.Channel.ID
		if channel == "" {
			channel = cb.Container.ChannelID
		}
		return FeedbackEvent{
			ConversationID: channel,
			SenderID:       cb.User.ID,
			MessageTS:      cb.Container.MessageTs,
			Value:          action.Value,
		}, true
	}
	return FeedbackEvent{}, false
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
