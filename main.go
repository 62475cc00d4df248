package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justmike1/sprintbot/commands"
	"github.com/justmike1/sprintbot/config"
	"github.com/justmike1/sprintbot/jira"
	"github.com/justmike1/sprintbot/llm"
	"github.com/justmike1/sprintbot/logger"
	"github.com/justmike1/sprintbot/metrics"
	"github.com/justmike1/sprintbot/prompts"
	botslack "github.com/justmike1/sprintbot/slack"
	"github.com/justmike1/sprintbot/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("sprintbot exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flushLogs, err := logger.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = flushLogs(flushCtx)
	}()

	logConfig(cfg)

	instructions, err := prompts.Load(cfg.InstructionsFile)
	if err != nil {
		return fmt.Errorf("failed to load instructions: %w", err)
	}

	jiraClient := newJiraClient(ctx, cfg.Jira)
	go probeJira(ctx, jiraClient)

	llmClient := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	})
	slog.Info("language model configured", "model", llmClient.Model(), "custom_base_url", cfg.OpenAI.BaseURL != "")

	var st store.Store = store.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to conversation store: %w", err)
		}
		defer func() { _ = redisStore.Close() }()
		st = redisStore
		slog.Info("conversation store: redis")
	} else {
		slog.Info("conversation store: in-memory")
	}

	m := metrics.New(nil)
	slackClient := botslack.NewClient(cfg.SlackBotToken)

	botUserID, err := slackClient.GetBotUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to identify bot user: %w", err)
	}
	slog.Info("bot identity resolved", "bot_user_id", botUserID)

	dispatcher := commands.NewDispatcher(slackClient, st,
		commands.NewJiraHandler(jiraClient, cfg.Jira.Project, m),
		commands.NewChatResponder(llmClient, instructions, m),
		m)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", ipAllowlist(cfg.MetricsAllowedCIDRs, m.Handler()))
	if cfg.SlackSigningSecret != "" {
		mux.Handle("/slack/events", botslack.NewEventsHandler(cfg.SlackSigningSecret, botUserID,
			dispatcher.HandleMessage, dispatcher.HandleFeedback))
		slog.Info("HTTP Events API endpoint enabled", "path", "/slack/events")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	listener := botslack.NewSocketListener(cfg.SlackAppToken, cfg.SlackBotToken, botUserID,
		dispatcher.HandleMessage, dispatcher.HandleFeedback)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("socket mode: %w", err)
		}
	}()

	go func() {
		slog.Info("sprintbot server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case runErr = <-errCh:
		slog.Error("component failed, shutting down", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	// Runs before the deferred store Close.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		slog.Error("message handlers did not finish", "error", err)
	}
	return runErr
}

// newJiraClient prefers OAuth when client credentials are set. A failed
// OAuth setup falls back to Basic Auth so the bot still starts; Jira queries
// then report the connectivity failure to users.
func newJiraClient(ctx context.Context, cfg config.JiraConfig) *jira.Client {
	if missing := cfg.Missing(); len(missing) > 0 {
		slog.Warn("Jira configuration incomplete, Jira queries will fail", "missing", missing)
	}

	if cfg.UseOAuth() {
		client, err := jira.NewOAuthClient(ctx, cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, cfg.Project)
		if err == nil {
			return client
		}
		slog.Error("Jira OAuth setup failed, falling back to Basic Auth", "error", err)
	}
	return jira.NewClient(cfg.BaseURL, cfg.Email, cfg.Token, cfg.Project)
}

// probeJira checks Jira connectivity once at startup. The result is only
// logged.
func probeJira(ctx context.Context, client *jira.Client) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := client.GetCurrentUser(ctx)
	if err != nil {
		slog.Warn("Jira connectivity check failed", "auth", client.AuthMode(), "error", err)
		return
	}
	slog.Info("Jira connectivity check passed",
		"auth", client.AuthMode(),
		"account", user.DisplayName,
		"project", client.DefaultProject())
}

// logConfig logs the effective configuration with secrets reduced to
// presence flags.
func logConfig(cfg *config.Config) {
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"app_type", cfg.AppType,
		"has_client_id", cfg.ClientID != "",
		"jira_base_url", cfg.Jira.BaseURL,
		"jira_project", cfg.Jira.Project,
		"jira_oauth", cfg.Jira.UseOAuth(),
		"has_jira_token", cfg.Jira.Token != "",
		"has_openai_key", cfg.OpenAI.APIKey != "",
		"openai_model", cfg.OpenAI.Model,
		"has_signing_secret", cfg.SlackSigningSecret != "",
		"instructions_file", cfg.InstructionsFile,
		"redis", cfg.RedisURL != "",
		"otel", cfg.OTel.Enabled(),
	)
}
