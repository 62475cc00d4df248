package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultPort             = "8080"
	defaultModel            = "gpt-4o"
	defaultInstructionsFile = "instructions.txt"
	defaultServiceName      = "sprintbot"
	defaultEnv              = "development"
)

// App identity modes understood by the hosting platform.
const (
	AppTypeMultiTenant     = "MultiTenant"
	AppTypeSingleTenant    = "SingleTenant"
	AppTypeUserAssignedMsi = "UserAssignedMsi"
)

type Config struct {
	Env  string
	Port string

	SlackBotToken      string
	SlackAppToken      string
	SlackSigningSecret string

	Jira   JiraConfig
	OpenAI OpenAIConfig
	OTel   OTelConfig

	// AppType and ClientID describe the bot's identity (managed identity
	// when AppType is UserAssignedMsi). Token acquisition happens outside
	// this process.
	AppType  string
	ClientID string

	InstructionsFile    string
	RedisURL            string
	MetricsAllowedCIDRs string
}

type JiraConfig struct {
	BaseURL      string
	Token        string
	Email        string
	Project      string
	ClientID     string
	ClientSecret string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OTelConfig struct {
	Endpoint    string
	Headers     string
	ServiceName string
}

// Enabled reports whether an OTLP endpoint is configured.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// UseOAuth returns true when OAuth 2.0 client credentials are configured.
func (c JiraConfig) UseOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Missing lists the Jira settings that are absent. Basic Auth needs the base
// URL, email, token and project; OAuth replaces email and token with the
// client credentials.
func (c JiraConfig) Missing() []string {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "JIRA_BASE_URL")
	}
	if !c.UseOAuth() {
		if c.Token == "" {
			missing = append(missing, "JIRA_API_TOKEN")
		}
		if c.Email == "" {
			missing = append(missing, "JIRA_EMAIL")
		}
	}
	if c.Project == "" {
		missing = append(missing, "JIRA_PROJECT")
	}
	return missing
}

// UseManagedIdentity returns true when the bot authenticates with a
// user-assigned managed identity.
func (c *Config) UseManagedIdentity() bool {
	return c.AppType == AppTypeUserAssignedMsi
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment. In development a .env file
// in the working directory is loaded first when present.
func Load() (*Config, error) {
	if getEnv("SPRINTBOT_ENV", defaultEnv) == defaultEnv {
		_ = godotenv.Load(".env")
	}

	cfg := &Config{
		Env:                getEnv("SPRINTBOT_ENV", defaultEnv),
		Port:               getEnv("PORT", defaultPort),
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:      os.Getenv("SLACK_APP_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		Jira: JiraConfig{
			BaseURL:      os.Getenv("JIRA_BASE_URL"),
			Token:        os.Getenv("JIRA_API_TOKEN"),
			Email:        os.Getenv("JIRA_EMAIL"),
			Project:      os.Getenv("JIRA_PROJECT"),
			ClientID:     os.Getenv("JIRA_CLIENT_ID"),
			ClientSecret: os.Getenv("JIRA_CLIENT_SECRET"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   getEnv("OPENAI_MODEL", defaultModel),
		},
		OTel: OTelConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:     os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", defaultServiceName),
		},
		AppType:             getEnv("BOT_APP_TYPE", AppTypeMultiTenant),
		ClientID:            os.Getenv("CLIENT_ID"),
		InstructionsFile:    getEnv("INSTRUCTIONS_FILE", defaultInstructionsFile),
		RedisURL:            os.Getenv("REDIS_URL"),
		MetricsAllowedCIDRs: os.Getenv("METRICS_ALLOWED_CIDRS"),
	}

	if cfg.SlackBotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if cfg.SlackAppToken == "" {
		return nil, fmt.Errorf("SLACK_APP_TOKEN is required (Socket Mode app-level token)")
	}

	switch cfg.AppType {
	case AppTypeMultiTenant, AppTypeSingleTenant, AppTypeUserAssignedMsi:
	default:
		return nil, fmt.Errorf("BOT_APP_TYPE %q is not one of %s, %s, %s",
			cfg.AppType, AppTypeMultiTenant, AppTypeSingleTenant, AppTypeUserAssignedMsi)
	}
	if cfg.UseManagedIdentity() && cfg.ClientID == "" {
		return nil, fmt.Errorf("CLIENT_ID is required when BOT_APP_TYPE is %s", AppTypeUserAssignedMsi)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
