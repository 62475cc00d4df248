package commands

import (
	"context"
	"errors"

	"github.com/justmike1/sprintbot/jira"
	"github.com/justmike1/sprintbot/metrics"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("JiraHandler", func() {
	var (
		ctx     context.Context
		client  *fakeJira
		handler *JiraHandler
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = newFakeJira()
		handler = NewJiraHandler(client, "ABC", metrics.New(nil))
	})

	It("reports a failed connectivity check without querying further", func() {
		client.getCurrentUserFn = func(context.Context) (*jira.User, error) {
			return nil, errors.New("dial tcp: connection refused")
		}

		Expect(handler.Handle(ctx, "search jira")).To(Equal(
			"Unable to connect to JIRA. Please check your credentials and try again."))
		Expect(client.issueCalls).To(BeEmpty())
		Expect(client.boardCalls).To(BeZero())
	})

	Describe("search intent", func() {
		BeforeEach(func() {
			client.findIssueFn = func(_ context.Context, key string) (*jira.IssueSummary, error) {
				return &jira.IssueSummary{Key: key, Summary: "Login fails", Status: "In Progress"}, nil
			}
		})

		It("looks up the project's first issue", func() {
			reply := handler.Handle(ctx, "search jira for login")

			Expect(client.issueCalls).To(Equal([]string{"ABC-1"}))
			Expect(reply).To(Equal("Found issue: ABC-1\nSummary: Login fails\nStatus: In Progress"))
		})

		It("uses an issue key of the project mentioned in the query", func() {
			handler.Handle(ctx, "find story ABC-42 please")

			Expect(client.issueCalls).To(Equal([]string{"ABC-42"}))
		})

		It("spells the project key as configured for both explicit and default keys", func() {
			handler = NewJiraHandler(client, "abc", metrics.New(nil))

			handler.Handle(ctx, "jira find it")
			handler.Handle(ctx, "jira find ABC-7")

			Expect(client.issueCalls).To(Equal([]string{"abc-1", "abc-7"}))
		})

		It("ignores keys of other projects", func() {
			handler.Handle(ctx, "find story XYZ-42")

			Expect(client.issueCalls).To(Equal([]string{"ABC-1"}))
		})

		It("relays Jira's error messages", func() {
			client.findIssueFn = func(context.Context, string) (*jira.IssueSummary, error) {
				return nil, &jira.APIError{
					StatusCode:    404,
					ErrorMessages: []string{"Issue does not exist"},
					Errors:        map[string]string{"key": "invalid"},
				}
			}

			Expect(handler.Handle(ctx, "search jira")).To(Equal(
				"Sorry, I encountered an error while processing your JIRA request: Issue does not exist, key: invalid"))
		})

		It("says Unknown error when Jira gives no messages", func() {
			client.findIssueFn = func(context.Context, string) (*jira.IssueSummary, error) {
				return nil, &jira.APIError{StatusCode: 500, Body: "<html>oops</html>"}
			}

			Expect(handler.Handle(ctx, "search jira")).To(Equal(
				"Sorry, I encountered an error while processing your JIRA request: Unknown error"))
		})

		It("falls back to the generic message for transport failures", func() {
			client.findIssueFn = func(context.Context, string) (*jira.IssueSummary, error) {
				return nil, context.DeadlineExceeded
			}

			Expect(handler.Handle(ctx, "search jira")).To(Equal(
				"Sorry, I encountered an error while processing your JIRA request. Please check your JIRA configuration."))
		})
	})

	Describe("sprint intent", func() {
		It("reports the board count", func() {
			client.getAllBoardsFn = func(context.Context) (*jira.BoardList, error) {
				return &jira.BoardList{Total: 3}, nil
			}

			Expect(handler.Handle(ctx, "show sprint")).To(Equal("Found 3 boards"))
			Expect(client.boardCalls).To(Equal(1))
		})

		It("reports board errors like any other Jira error", func() {
			client.getAllBoardsFn = func(context.Context) (*jira.BoardList, error) {
				return nil, &jira.APIError{StatusCode: 401, ErrorMessages: []string{"Unauthorized"}}
			}

			Expect(handler.Handle(ctx, "show sprint")).To(Equal(
				"Sorry, I encountered an error while processing your JIRA request: Unauthorized"))
		})
	})

	It("returns the help text for anything else", func() {
		Expect(handler.Handle(ctx, "list my tasks")).To(Equal(
			"I can help you with JIRA. Try asking me to:\n- Search for issues\n- Show sprint information\n- List your assigned tasks"))
		Expect(client.issueCalls).To(BeEmpty())
		Expect(client.boardCalls).To(BeZero())
	})

	It("appends -1 to an empty project", func() {
		handler = NewJiraHandler(client, "", metrics.New(nil))
		client.findIssueFn = func(_ context.Context, key string) (*jira.IssueSummary, error) {
			return &jira.IssueSummary{Key: key}, nil
		}

		handler.Handle(ctx, "search jira")
		Expect(client.issueCalls).To(Equal([]string{"-1"}))
	})
})
