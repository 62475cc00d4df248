package commands

import "strings"

var jiraKeywords = []string{"jira", "story", "sprint", "task"}

// IsJiraQuery reports whether text should go to the Jira handler rather than
// the language model.
func IsJiraQuery(text string) bool {
	return containsAny(strings.ToLower(text), jiraKeywords...)
}

// Intent is what a Jira query asks for.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentSearch
	IntentSprint
)

func (i Intent) String() string {
	switch i {
	case IntentSearch:
		return "search"
	case IntentSprint:
		return "sprint"
	default:
		return "unknown"
	}
}

// ClassifyIntent maps a Jira query to an intent by substring match. Search
// wins over sprint when both appear.
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "search", "find"):
		return IntentSearch
	case strings.Contains(lower, "sprint"):
		return IntentSprint
	default:
		return IntentUnknown
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
