package slack

import "context"

// InboundMessage is a user message addressed to the bot.
type InboundMessage struct {
	ConversationID string
	SenderID       string
	Text           string
	IsGroup        bool // false only for one-to-one (im) conversations
}

// FeedbackEvent is a click on one of the feedback buttons attached to an
// AI-generated reply. Value is opaque to the bot.
type FeedbackEvent struct {
	ConversationID string
	SenderID       string
	MessageTS      string
	Value          string
}

// OutboundMessage is a reply. AIGenerated adds the AI-generated marker and
// Feedback attaches the feedback buttons.
type OutboundMessage struct {
	Text        string
	AIGenerated bool
	Feedback    bool
}

// MessageStream delivers a reply incrementally. Emit appends a chunk; Close
// emits the terminal message, which finalises the streamed reply.
type MessageStream interface {
	Emit(ctx context.Context, chunk string) error
	Close(ctx context.Context, final OutboundMessage) error
}

// MessageHandler receives inbound messages.
type MessageHandler func(ctx context.Context, msg InboundMessage)

// FeedbackHandler receives feedback submissions.
type FeedbackHandler func(ctx context.Context, fb FeedbackEvent)
