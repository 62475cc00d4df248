package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	slacklib "github.com/slack-go/slack"
)

type apiCall struct {
	Method  string
	Channel string
	TS      string
	Text    string
	Blocks  string
}

type fakeSlackAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeSlackAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer GinkgoRecover()
	Expect(r.ParseForm()).To(Succeed())

	call := apiCall{
		Method:  r.URL.Path[1:],
		Channel: r.Form.Get("channel"),
		TS:      r.Form.Get("ts"),
		Text:    r.Form.Get("text"),
		Blocks:  r.Form.Get("blocks"),
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch call.Method {
	case "auth.test":
		_, _ = w.Write([]byte(`{"ok":true,"user_id":"UBOT","user":"sprintbot"}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"channel":"` + call.Channel + `","ts":"1700000000.000100"}`))
	}
}

func (f *fakeSlackAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		api    *fakeSlackAPI
		client *Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &fakeSlackAPI{}
		srv := httptest.NewServer(api)
		DeferCleanup(srv.Close)
		client = NewClient("xoxb-test", slacklib.OptionAPIURL(srv.URL+"/"))
	})

	It("resolves the bot user id", func() {
		id, err := client.GetBotUserID(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("UBOT"))
	})

	It("sends an annotated message with feedback buttons", func() {
		Expect(client.Send(ctx, "C1", OutboundMessage{Text: "Found 2 boards", AIGenerated: true, Feedback: true})).To(Succeed())

		calls := api.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Method).To(Equal("chat.postMessage"))
		Expect(calls[0].Channel).To(Equal("C1"))
		Expect(calls[0].Text).To(Equal("Found 2 boards"))
		Expect(calls[0].Blocks).To(ContainSubstring("AI-generated"))
		Expect(calls[0].Blocks).To(ContainSubstring(`"block_id":"feedback"`))
		Expect(calls[0].Blocks).To(ContainSubstring(`"value":"positive"`))
	})

	It("sends plain messages without annotation", func() {
		Expect(client.Send(ctx, "C1", OutboundMessage{Text: "oops"})).To(Succeed())

		calls := api.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Blocks).NotTo(ContainSubstring("AI-generated"))
		Expect(calls[0].Blocks).NotTo(ContainSubstring("feedback"))
	})

	Describe("streaming", func() {
		It("posts the first chunk, updates per chunk and finalises with the annotation", func() {
			client.SetStreamInterval(0)
			stream, err := client.OpenStream(ctx, "D1")
			Expect(err).NotTo(HaveOccurred())
			Expect(api.Calls()).To(BeEmpty())

			Expect(stream.Emit(ctx, "Sprint 12 ")).To(Succeed())
			Expect(stream.Emit(ctx, "ends Friday.")).To(Succeed())
			Expect(stream.Close(ctx, OutboundMessage{AIGenerated: true, Feedback: true})).To(Succeed())

			calls := api.Calls()
			Expect(calls).To(HaveLen(3))
			Expect(calls[0].Method).To(Equal("chat.postMessage"))
			Expect(calls[0].Text).To(Equal("Sprint 12 "))
			Expect(calls[1].Method).To(Equal("chat.update"))
			Expect(calls[1].TS).To(Equal("1700000000.000100"))
			Expect(calls[1].Text).To(Equal("Sprint 12 ends Friday."))
			Expect(calls[2].Method).To(Equal("chat.update"))
			Expect(calls[2].Text).To(Equal("Sprint 12 ends Friday."))
			Expect(calls[2].Blocks).To(ContainSubstring("AI-generated"))
		})

		It("coalesces chunks that arrive within the interval", func() {
			client.SetStreamInterval(time.Hour)
			stream, _ := client.OpenStream(ctx, "D1")

			for _, c := range []string{"a", "b", "c"} {
				Expect(stream.Emit(ctx, c)).To(Succeed())
			}
			Expect(stream.Close(ctx, OutboundMessage{AIGenerated: true})).To(Succeed())

			calls := api.Calls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[1].Text).To(Equal("abc"))
		})

		It("posts the terminal marker alone when nothing was streamed", func() {
			stream, _ := client.OpenStream(ctx, "D1")
			Expect(stream.Close(ctx, OutboundMessage{AIGenerated: true, Feedback: true})).To(Succeed())

			calls := api.Calls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Method).To(Equal("chat.postMessage"))
			Expect(calls[0].Blocks).To(ContainSubstring("AI-generated"))
		})

		It("rejects chunks after close", func() {
			stream, _ := client.OpenStream(ctx, "D1")
			Expect(stream.Close(ctx, OutboundMessage{})).To(Succeed())
			Expect(stream.Emit(ctx, "late")).To(MatchError(ContainSubstring("closed")))
			Expect(stream.Close(ctx, OutboundMessage{})).To(Succeed())
		})
	})
})
