package commands

import (
	"context"

	"github.com/justmike1/sprintbot/jira"
	"github.com/justmike1/sprintbot/llm"
	botslack "github.com/justmike1/sprintbot/slack"
)

// JiraClient is the subset of the Jira API the bot needs.
type JiraClient interface {
	GetCurrentUser(ctx context.Context) (*jira.User, error)
	FindIssue(ctx context.Context, issueKey string) (*jira.IssueSummary, error)
	GetAllBoards(ctx context.Context) (*jira.BoardList, error)
}

// ChatModel produces replies from the language model.
type ChatModel interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Stream(ctx context.Context, req llm.Request, onChunk func(string) error) (string, error)
}

// Outbound delivers replies to a conversation.
type Outbound interface {
	Send(ctx context.Context, channelID string, msg botslack.OutboundMessage) error
	OpenStream(ctx context.Context, channelID string) (botslack.MessageStream, error)
}
