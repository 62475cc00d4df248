package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// authMode controls how API requests are authenticated.
type authMode string

const (
	authBasic authMode = "basic"
	authOAuth authMode = "oauth"

	// Atlassian OAuth 2.0 token endpoint.
	atlassianTokenURL        = "https://auth.atlassian.com/oauth/token"
	atlassianResourcesURL    = "https://api.atlassian.com/oauth/token/accessible-resources"
	atlassianOAuthAPIBaseURL = "https://api.atlassian.com/ex/jira"

	requestTimeout = 5 * time.Second
)

// Client provides access to the Jira Cloud REST API v3 and the Agile API.
type Client struct {
	baseURL    string // API base URL for REST calls (differs between Basic Auth and OAuth)
	siteURL    string // e.g. "https://yourorg.atlassian.net", matched against OAuth accessible resources
	email      string
	apiToken   string
	projectKey string
	httpClient *http.Client
	mode       authMode
	logger     *slog.Logger
}

// NewClient creates a Jira API client using Basic Auth (email + API token).
// A bare host such as "yourorg.atlassian.net" is treated as https.
func NewClient(baseURL, email, apiToken, defaultProject string) *Client {
	cleanURL := normalizeSiteURL(baseURL)
	return &Client{
		baseURL:    cleanURL,
		siteURL:    cleanURL,
		email:      email,
		apiToken:   apiToken,
		projectKey: defaultProject,
		httpClient: &http.Client{Timeout: requestTimeout},
		mode:       authBasic,
		logger:     slog.Default().With("component", "jira"),
	}
}

// NewOAuthClient creates a Jira API client using OAuth 2.0 client
// credentials. It resolves the Atlassian cloud ID for the given site URL and
// rewrites the base URL to the OAuth API endpoint.
func NewOAuthClient(ctx context.Context, baseURL, clientID, clientSecret, defaultProject string) (*Client, error) {
	cleanURL := normalizeSiteURL(baseURL)

	creds := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     atlassianTokenURL,
	}
	base := &http.Client{Timeout: requestTimeout}
	httpClient := creds.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = requestTimeout

	c := &Client{
		siteURL:    cleanURL,
		projectKey: defaultProject,
		httpClient: httpClient,
		mode:       authOAuth,
		logger:     slog.Default().With("component", "jira"),
	}

	cloudID, err := c.resolveCloudID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Atlassian cloud ID for %s: %w", cleanURL, err)
	}
	c.baseURL = fmt.Sprintf("%s/%s", atlassianOAuthAPIBaseURL, cloudID)
	c.logger.Info("OAuth cloud ID resolved", "site", cleanURL, "base_url", c.baseURL)

	return c, nil
}

func normalizeSiteURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u != "" && !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return u
}

// resolveCloudID calls the Atlassian accessible-resources endpoint to find the
// cloud ID matching the configured site URL.
func (c *Client) resolveCloudID(ctx context.Context) (string, error) {
	var resources []struct {
		ID   string `json:"id"`
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, atlassianResourcesURL, &resources); err != nil {
		return "", err
	}

	if len(resources) == 0 {
		return "", fmt.Errorf("no accessible Atlassian sites found, ensure the OAuth app is authorized for your site")
	}

	siteNorm := strings.ToLower(c.siteURL)
	for _, r := range resources {
		if strings.TrimRight(strings.ToLower(r.URL), "/") == siteNorm {
			return r.ID, nil
		}
	}

	if len(resources) == 1 {
		c.logger.Warn("site URL did not match, using the only available site",
			"site", c.siteURL, "resource_url", resources[0].URL, "cloud_id", resources[0].ID)
		return resources[0].ID, nil
	}

	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = fmt.Sprintf("%s (%s)", r.URL, r.ID)
	}
	return "", fmt.Errorf("site URL %q not found in accessible resources: %v", c.siteURL, names)
}

// AuthMode returns the authentication mode ("basic" or "oauth").
func (c *Client) AuthMode() string {
	return string(c.mode)
}

// DefaultProject returns the configured default project key.
func (c *Client) DefaultProject() string {
	return c.projectKey
}

// User is the authenticated Jira account.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active"`
}

// GetCurrentUser returns the account the client authenticates as. It doubles
// as a connectivity and credentials check.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, c.baseURL+"/rest/api/3/myself", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueSummary is the part of an issue the bot reports.
type IssueSummary struct {
	Key     string
	Summary string
	Status  string
}

// FindIssue fetches a single Jira issue by key.
func (c *Client) FindIssue(ctx context.Context, issueKey string) (*IssueSummary, error) {
	reqURL := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=summary,status",
		c.baseURL, url.PathEscape(issueKey))

	var raw struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
			Status  struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	}
	if err := c.getJSON(ctx, reqURL, &raw); err != nil {
		return nil, err
	}
	return &IssueSummary{
		Key:     raw.Key,
		Summary: raw.Fields.Summary,
		Status:  raw.Fields.Status.Name,
	}, nil
}

// Board is an Agile board.
type Board struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// BoardList is one page of boards plus the server-reported total.
type BoardList struct {
	Total      int     `json:"total"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	IsLast     bool    `json:"isLast"`
	Values     []Board `json:"values"`
}

// GetAllBoards lists the Agile boards visible to the authenticated user.
func (c *Client) GetAllBoards(ctx context.Context) (*BoardList, error) {
	var boards BoardList
	if err := c.getJSON(ctx, c.baseURL+"/rest/agile/1.0/board", &boards); err != nil {
		return nil, err
	}
	return &boards, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.mode == authBasic {
		req.SetBasicAuth(c.email, c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
