package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/justmike1/sprintbot/llm"
	"github.com/justmike1/sprintbot/metrics"
	"github.com/justmike1/sprintbot/store"
)

// ChatResponder answers general messages with the language model.
type ChatResponder struct {
	model        ChatModel
	instructions string
	metrics      *metrics.Collector
}

func NewChatResponder(model ChatModel, instructions string, m *metrics.Collector) *ChatResponder {
	return &ChatResponder{model: model, instructions: instructions, metrics: m}
}

// Respond prompts the model with the conversation so far and delivers the
// reply. It returns history extended with the user's message and the reply;
// history itself is not modified.
func (r *ChatResponder) Respond(ctx context.Context, history []store.Turn, text string, d Delivery) ([]store.Turn, error) {
	req := llm.Request{
		Instructions: r.instructions,
		History:      toMessages(history),
		Text:         text,
	}

	start := time.Now()
	var (
		reply string
		err   error
	)
	switch d := d.(type) {
	case *BatchDelivery:
		reply, err = r.model.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("complete: %w", err)
		}
		r.metrics.ObserveLLM(d.Mode(), time.Since(start))
		if err := d.Reply(ctx, reply); err != nil {
			return nil, fmt.Errorf("send reply: %w", err)
		}

	case *StreamingDelivery:
		reply, err = r.model.Stream(ctx, req, func(chunk string) error {
			return d.Emit(ctx, chunk)
		})
		if err != nil {
			return nil, fmt.Errorf("stream: %w", err)
		}
		r.metrics.ObserveLLM(d.Mode(), time.Since(start))
		if err := d.Close(ctx); err != nil {
			return nil, fmt.Errorf("close stream: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported delivery %T", d)
	}

	out := make([]store.Turn, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		store.Turn{Role: store.RoleUser, Content: text},
		store.Turn{Role: store.RoleAssistant, Content: reply},
	)
	return out, nil
}

func toMessages(turns []store.Turn) []llm.Message {
	msgs := make([]llm.Message, len(turns))
	for i, t := range turns {
		msgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}
