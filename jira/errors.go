package jira

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError is a non-2xx response from Jira. When the body carries Jira's
// structured error payload its messages are decoded.
type APIError struct {
	StatusCode    int
	ErrorMessages []string
	Errors        map[string]string
	Body          string
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	var payload struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.ErrorMessages = payload.ErrorMessages
		e.Errors = payload.Errors
	}
	return e
}

// Messages returns the top-level error messages followed by the field errors
// as "field: message", sorted by field.
func (e *APIError) Messages() []string {
	msgs := append([]string(nil), e.ErrorMessages...)
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f, e.Errors[f]))
	}
	return msgs
}

func (e *APIError) Error() string {
	if msgs := e.Messages(); len(msgs) > 0 {
		return fmt.Sprintf("jira API error (HTTP %d): %s", e.StatusCode, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("jira API error (HTTP %d): %s", e.StatusCode, e.Body)
}
