package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// EventsHandler serves the HTTP Events API and interactivity endpoints as an
// alternative to Socket Mode. Every request is verified against the signing
// secret.
type EventsHandler struct {
	signingSecret string
	router        *eventRouter
}

func NewEventsHandler(signingSecret, botUserID string, onMessage MessageHandler, onFeedback FeedbackHandler) *EventsHandler {
	return &EventsHandler{
		signingSecret: signingSecret,
		router: &eventRouter{
			botUserID:  botUserID,
			onMessage:  onMessage,
			onFeedback: onFeedback,
			logger:     slog.Default().With("component", "slack-events"),
		},
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	verifier, err := slacklib.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		h.router.logger.Warn("failed to create secrets verifier", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	_, _ = verifier.Write(body)
	if err := verifier.Ensure(); err != nil {
		h.router.logger.Warn("signature verification failed", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Slack retries deliveries it considers slow; the first attempt is
	// already being handled.
	if r.Header.Get("X-Slack-Retry-Num") != "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Handlers outlive the request.
	ctx := context.WithoutCancel(r.Context())

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		h.serveInteraction(ctx, w, body)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.router.logger.Warn("failed to parse event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if event.Type == slackevents.URLVerification {
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
		return
	}

	w.WriteHeader(http.StatusOK)
	h.router.handleEventsAPI(ctx, event)
}

func (h *EventsHandler) serveInteraction(ctx context.Context, w http.ResponseWriter, body []byte) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var cb slacklib.InteractionCallback
	if err := json.Unmarshal([]byte(values.Get("payload")), &cb); err != nil {
		h.router.logger.Warn("failed to parse interaction payload", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.router.handleInteraction(ctx, cb)
}
