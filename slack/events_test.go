package slack

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var _ = Describe("inboundFromMessage", func() {
	base := func() *slackevents.MessageEvent {
		return &slackevents.MessageEvent{
			Channel:     "D1",
			ChannelType: "im",
			User:        "U1",
			Text:        "  what's my sprint status ",
		}
	}

	It("accepts direct messages as one-to-one", func() {
		msg, ok := inboundFromMessage(base(), "UBOT")
		Expect(ok).To(BeTrue())
		Expect(msg).To(Equal(InboundMessage{ConversationID: "D1", SenderID: "U1", Text: "what's my sprint status", IsGroup: false}))
	})

	DescribeTable("skips messages the bot must not answer",
		func(mutate func(*slackevents.MessageEvent)) {
			ev := base()
			mutate(ev)
			_, ok := inboundFromMessage(ev, "UBOT")
			Expect(ok).To(BeFalse())
		},
		Entry("channel messages", func(ev *slackevents.MessageEvent) { ev.ChannelType = "channel" }),
		Entry("edits", func(ev *slackevents.MessageEvent) { ev.SubType = "message_changed" }),
		Entry("bots", func(ev *slackevents.MessageEvent) { ev.BotID = "B1" }),
		Entry("itself", func(ev *slackevents.MessageEvent) { ev.User = "UBOT" }),
		Entry("blank text", func(ev *slackevents.MessageEvent) { ev.Text = "   " }),
	)
})

var _ = Describe("inboundFromMention", func() {
	It("strips the mention and marks the conversation as a group", func() {
		msg, ok := inboundFromMention(&slackevents.AppMentionEvent{
			Channel: "C1",
			User:    "U1",
			Text:    "<@UBOT> find the jira story",
		}, "UBOT")
		Expect(ok).To(BeTrue())
		Expect(msg.Text).To(Equal("find the jira story"))
		Expect(msg.IsGroup).To(BeTrue())
	})

	It("skips a bare mention", func() {
		_, ok := inboundFromMention(&slackevents.AppMentionEvent{Channel: "C1", User: "U1", Text: "<@UBOT>"}, "UBOT")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("feedbackFromInteraction", func() {
	It("extracts feedback button clicks", func() {
		cb := slacklib.InteractionCallback{
			Type:      slacklib.InteractionTypeBlockActions,
			User:      slacklib.User{ID: "U1"},
			Container: slacklib.Container{ChannelID: "D1", MessageTs: "1.2"},
			ActionCallback: slacklib.ActionCallbacks{BlockActions: []*slacklib.BlockAction{
				{BlockID: FeedbackBlockID, ActionID: "feedback_negative", Value: FeedbackNegative},
			}},
		}
		fb, ok := feedbackFromInteraction(cb)
		Expect(ok).To(BeTrue())
		Expect(fb).To(Equal(FeedbackEvent{ConversationID: "D1", SenderID: "U1", MessageTS: "1.2", Value: "negative"}))
	})

	It("ignores other actions", func() {
		cb := slacklib.InteractionCallback{
			Type: slacklib.InteractionTypeBlockActions,
			ActionCallback: slacklib.ActionCallbacks{BlockActions: []*slacklib.BlockAction{
				{BlockID: "something_else", Value: "x"},
			}},
		}
		_, ok := feedbackFromInteraction(cb)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("truncate", func() {
	It("leaves short text alone", func() {
		Expect(truncate("hello", 80)).To(Equal("hello"))
	})

	It("never splits a multi-byte rune", func() {
		s := strings.Repeat("a", 79) + "日本語"

		out := truncate(s, 80)
		Expect(utf8.ValidString(out)).To(BeTrue())
		Expect(out).To(Equal(strings.Repeat("a", 79) + "…"))
	})
})
