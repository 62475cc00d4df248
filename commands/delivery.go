package commands

import (
	"context"
	"fmt"

	botslack "github.com/justmike1/sprintbot/slack"
)

// Delivery modes, also used as metric labels.
const (
	ModeBatch     = "batch"
	ModeStreaming = "streaming"
)

// Delivery is how one reply reaches the conversation. It is chosen once per
// message by NewDelivery and is either *BatchDelivery or *StreamingDelivery.
type Delivery interface {
	// Reply delivers a complete reply, annotated as AI-generated with
	// feedback buttons.
	Reply(ctx context.Context, text string) error
	Mode() string
}

// NewDelivery picks batch delivery for group conversations, which cannot
// show incremental updates, and streaming for one-to-one conversations.
func NewDelivery(ctx context.Context, out Outbound, msg botslack.InboundMessage) (Delivery, error) {
	if msg.IsGroup {
		return &BatchDelivery{out: out, channelID: msg.ConversationID}, nil
	}
	stream, err := out.OpenStream(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &StreamingDelivery{stream: stream}, nil
}

// BatchDelivery sends the reply as one message.
type BatchDelivery struct {
	out       Outbound
	channelID string
}

func (d *BatchDelivery) Reply(ctx context.Context, text string) error {
	return d.out.Send(ctx, d.channelID, annotated(text))
}

func (d *BatchDelivery) Mode() string { return ModeBatch }

// StreamingDelivery forwards chunks as they arrive and closes with an empty
// annotated message.
type StreamingDelivery struct {
	stream botslack.MessageStream
}

func (d *StreamingDelivery) Emit(ctx context.Context, chunk string) error {
	return d.stream.Emit(ctx, chunk)
}

func (d *StreamingDelivery) Close(ctx context.Context) error {
	return d.stream.Close(ctx, annotated(""))
}

// Reply streams text as a single chunk, then closes.
func (d *StreamingDelivery) Reply(ctx context.Context, text string) error {
	if err := d.Emit(ctx, text); err != nil {
		return err
	}
	return d.Close(ctx)
}

func (d *StreamingDelivery) Mode() string { return ModeStreaming }

func annotated(text string) botslack.OutboundMessage {
	return botslack.OutboundMessage{Text: text, AIGenerated: true, Feedback: true}
}
