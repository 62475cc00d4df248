package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/justmike1/sprintbot/jira"
	"github.com/justmike1/sprintbot/metrics"
)

const (
	msgJiraUnavailable  = "Unable to connect to JIRA. Please check your credentials and try again."
	msgJiraHelp         = "I can help you with JIRA. Try asking me to:\n- Search for issues\n- Show sprint information\n- List your assigned tasks"
	msgJiraAPIError     = "Sorry, I encountered an error while processing your JIRA request: %s"
	msgJiraGenericError = "Sorry, I encountered an error while processing your JIRA request. Please check your JIRA configuration."
)

// JiraHandler answers queries already classified as Jira-related.
type JiraHandler struct {
	client     JiraClient
	project    string
	keyPattern *regexp.Regexp
	metrics    *metrics.Collector
	logger     *slog.Logger
}

func NewJiraHandler(client JiraClient, project string, m *metrics.Collector) *JiraHandler {
	h := &JiraHandler{
		client:  client,
		project: project,
		metrics: m,
		logger:  slog.Default().With("component", "jira-handler"),
	}
	if project != "" {
		h.keyPattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(project) + `-(\d+)\b`)
	}
	return h
}

// Handle returns the user-facing reply for query. Failures are reported in
// the reply itself; nothing is retried.
func (h *JiraHandler) Handle(ctx context.Context, query string) string {
	user, err := h.client.GetCurrentUser(ctx)
	h.metrics.RecordJiraRequest("myself", err)
	if err != nil {
		h.logger.ErrorContext(ctx, "jira connectivity check failed", "error", err)
		return msgJiraUnavailable
	}
	h.logger.DebugContext(ctx, "jira connectivity check passed", "account", user.AccountID)

	intent := ClassifyIntent(query)
	reply, err := h.handleIntent(ctx, intent, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "jira query failed", "intent", intent.String(), "error", err)
		return errorReply(err)
	}
	return reply
}

func (h *JiraHandler) handleIntent(ctx context.Context, intent Intent, query string) (string, error) {
	switch intent {
	case IntentSearch:
		key := h.issueKey(query)
		h.logger.InfoContext(ctx, "looking up issue", "key", key)
		issue, err := h.client.FindIssue(ctx, key)
		h.metrics.RecordJiraRequest("issue", err)
		if err != nil {
			return "", fmt.Errorf("find issue %s: %w", key, err)
		}
		return fmt.Sprintf("Found issue: %s\nSummary: %s\nStatus: %s", issue.Key, issue.Summary, issue.Status), nil

	case IntentSprint:
		h.logger.InfoContext(ctx, "listing boards")
		boards, err := h.client.GetAllBoards(ctx)
		h.metrics.RecordJiraRequest("board", err)
		if err != nil {
			return "", fmt.Errorf("list boards: %w", err)
		}
		return fmt.Sprintf("Found %d boards", boards.Total), nil

	default:
		return msgJiraHelp, nil
	}
}

// issueKey picks the issue to look up: an explicit key of the configured
// project mentioned in the query, else the project's first issue. The
// project key is used as configured in both cases.
func (h *JiraHandler) issueKey(query string) string {
	if h.keyPattern != nil {
		if m := h.keyPattern.FindStringSubmatch(query); m != nil {
			return h.project + "-" + m[1]
		}
	}
	return h.project + "-1"
}

func errorReply(err error) string {
	var apiErr *jira.APIError
	if errors.As(err, &apiErr) {
		detail := strings.Join(apiErr.Messages(), ", ")
		if detail == "" {
			detail = "Unknown error"
		}
		return fmt.Sprintf(msgJiraAPIError, detail)
	}
	return msgJiraGenericError
}
