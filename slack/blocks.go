package slack

import (
	"strings"
	"unicode/utf8"

	slacklib "github.com/slack-go/slack"
)

const (
	// FeedbackBlockID identifies the actions block carrying the feedback buttons.
	FeedbackBlockID = "feedback"

	FeedbackPositive = "positive"
	FeedbackNegative = "negative"

	aiBlockID        = "ai_generated"
	aiGeneratedLabel = ":sparkles: AI-generated"

	// Slack rejects section text longer than this.
	sectionTextLimit = 3000
)

func messageOptions(msg OutboundMessage) []slacklib.MsgOption {
	fallback := msg.Text
	if fallback == "" {
		fallback = "AI-generated response"
	}
	opts := []slacklib.MsgOption{slacklib.MsgOptionText(fallback, false)}

	var blocks []slacklib.Block
	for _, part := range splitText(msg.Text, sectionTextLimit) {
		blocks = append(blocks, slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, part, false, false), nil, nil))
	}
	if msg.AIGenerated {
		blocks = append(blocks, slacklib.NewContextBlock(aiBlockID,
			slacklib.NewTextBlockObject(slacklib.MarkdownType, aiGeneratedLabel, false, false)))
	}
	if msg.Feedback {
		blocks = append(blocks, slacklib.NewActionBlock(FeedbackBlockID,
			slacklib.NewButtonBlockElement("feedback_positive", FeedbackPositive,
				slacklib.NewTextBlockObject(slacklib.PlainTextType, ":thumbsup: Helpful", true, false)),
			slacklib.NewButtonBlockElement("feedback_negative", FeedbackNegative,
				slacklib.NewTextBlockObject(slacklib.PlainTextType, ":thumbsdown: Not helpful", true, false)),
		))
	}
	if len(blocks) > 0 {
		opts = append(opts, slacklib.MsgOptionBlocks(blocks...))
	}
	return opts
}

// splitText cuts s into pieces of at most limit bytes, preferring line
// breaks and never splitting a rune.
func splitText(s string, limit int) []string {
	var parts []string
	for len(s) > limit {
		cut := strings.LastIndex(s[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		parts = append(parts, s[:cut])
		s = strings.TrimPrefix(s[cut:], "\n")
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
