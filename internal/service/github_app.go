package service

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GitHubAppError is returned when GitHub App configuration or API calls fail.
type GitHubAppError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *GitHubAppError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("github app %s: status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("github app %s: %v", e.Op, e.Err)
}

func (e *GitHubAppError) Unwrap() error { return e.Err }

// GitHubAppConfig holds the credentials for authenticating as a GitHub App.
type GitHubAppConfig struct {
	AppID      int64
	PrivateKey *rsa.PrivateKey
	APIBase    string
	Timeout    time.Duration
}

// Issue is the subset of the created-issue response the bot reports back.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

type installationToken struct {
	token     string
	expiresAt time.Time
}

// GitHubAppClient talks to the GitHub REST API as a GitHub App installation,
// caching installation tokens until shortly before they expire.
type GitHubAppClient struct {
	config     GitHubAppConfig
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	tokens map[int64]installationToken
}

// NewGitHubAppClient creates a client from the given app configuration.
func NewGitHubAppClient(config GitHubAppConfig, logger *slog.Logger) *GitHubAppClient {
	if config.APIBase == "" {
		config.APIBase = "https://api.github.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubAppClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		tokens:     make(map[int64]installationToken),
	}
}

// LoadPrivateKeyFromEnv reads the app's RSA key from GITHUB_PRIVATE_KEY_PATH,
// GITHUB_PRIVATE_KEY_PEM, or GITHUB_PRIVATE_KEY_B64, in that order.
func LoadPrivateKeyFromEnv() (*rsa.PrivateKey, error) {
	var pemData []byte
	switch {
	case os.Getenv("GITHUB_PRIVATE_KEY_PATH") != "":
		data, err := os.ReadFile(os.Getenv("GITHUB_PRIVATE_KEY_PATH"))
		if err != nil {
			return nil, fmt.Errorf("reading GITHUB_PRIVATE_KEY_PATH: %w", err)
		}
		pemData = data
	case os.Getenv("GITHUB_PRIVATE_KEY_PEM") != "":
		pemData = []byte(os.Getenv("GITHUB_PRIVATE_KEY_PEM"))
	case os.Getenv("GITHUB_PRIVATE_KEY_B64") != "":
		data, err := base64.StdEncoding.DecodeString(os.Getenv("GITHUB_PRIVATE_KEY_B64"))
		if err != nil {
			return nil, fmt.Errorf("GITHUB_PRIVATE_KEY_B64 is not valid base64: %w", err)
		}
		pemData = data
	default:
		return nil, fmt.Errorf("GitHub App private key not found: set one of GITHUB_PRIVATE_KEY_PATH, GITHUB_PRIVATE_KEY_PEM, or GITHUB_PRIVATE_KEY_B64")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub App private key: %w", err)
	}
	return key, nil
}

// appJWT issues a short-lived RS256 token identifying the app itself.
func (c *GitHubAppClient) appJWT() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"iss": c.config.AppID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.config.PrivateKey)
	if err != nil {
		return "", &GitHubAppError{Op: "jwt", Err: err}
	}
	return signed, nil
}

func (c *GitHubAppClient) doJSON(ctx context.Context, op, method, path, authorization string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &GitHubAppError{Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIBase+path, body)
	if err != nil {
		return &GitHubAppError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GitHubAppError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GitHubAppError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &GitHubAppError{Op: op, Err: err}
		}
	}
	return nil
}

func (c *GitHubAppClient) requestAsApp(ctx context.Context, op, method, path string, out any) error {
	token, err := c.appJWT()
	if err != nil {
		return err
	}
	return c.doJSON(ctx, op, method, path, "Bearer "+token, nil, out)
}

func (c *GitHubAppClient) requestAsInstallation(ctx context.Context, op, method, repo, path string, payload, out any) error {
	token, err := c.installationTokenFor(ctx, repo)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, op, method, path, "token "+token, payload, out)
}

// installationID resolves the app's installation on the repository.
func (c *GitHubAppClient) installationID(ctx context.Context, repo string) (int64, error) {
	var data struct {
		ID *int64 `json:"id"`
	}
	if err := c.requestAsApp(ctx, "installation lookup", http.MethodGet, "/repos/"+repo+"/installation", &data); err != nil {
		return 0, err
	}
	if data.ID == nil {
		return 0, &GitHubAppError{Op: "installation lookup", Err: fmt.Errorf("installation id missing from response")}
	}
	return *data.ID, nil
}

// installationTokenFor returns a cached installation token for the
// repository, minting a new one when the cached token is within 30 seconds
// of expiry.
func (c *GitHubAppClient) installationTokenFor(ctx context.Context, repo string) (string, error) {
	installationID, err := c.installationID(ctx, repo)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	cached, ok := c.tokens[installationID]
	c.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt.Add(-30*time.Second)) {
		return cached.token, nil
	}

	var data struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	path := fmt.Sprintf("/app/installations/%d/access_tokens", installationID)
	if err := c.requestAsApp(ctx, "installation token", http.MethodPost, path, &data); err != nil {
		return "", err
	}
	if data.Token == "" || data.ExpiresAt.IsZero() {
		return "", &GitHubAppError{Op: "installation token", Err: fmt.Errorf("token missing from response")}
	}

	c.mu.Lock()
	c.tokens[installationID] = installationToken{token: data.Token, expiresAt: data.ExpiresAt}
	c.mu.Unlock()

	return data.Token, nil
}

// ListLabels returns the label names defined on the repository.
func (c *GitHubAppClient) ListLabels(ctx context.Context, repo string) ([]string, error) {
	var labels []struct {
		Name string `json:"name"`
	}
	if err := c.requestAsInstallation(ctx, "list labels", http.MethodGet, repo, "/repos/"+repo+"/labels", nil, &labels); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names, nil
}

// ListAssignees returns the logins assignable to issues on the repository.
func (c *GitHubAppClient) ListAssignees(ctx context.Context, repo string) ([]string, error) {
	var users []struct {
		Login string `json:"login"`
	}
	if err := c.requestAsInstallation(ctx, "list assignees", http.MethodGet, repo, "/repos/"+repo+"/assignees", nil, &users); err != nil {
		return nil, err
	}
	logins := make([]string, 0, len(users))
	for _, u := range users {
		logins = append(logins, u.Login)
	}
	return logins, nil
}

// CreateIssue files a new issue on the repository.
func (c *GitHubAppClient) CreateIssue(ctx context.Context, repo, title, body string, labels, assignees []string) (*Issue, error) {
	payload := map[string]any{"title": title, "body": body}
	if len(labels) > 0 {
		payload["labels"] = labels
	}
	if len(assignees) > 0 {
		payload["assignees"] = assignees
	}

	var issue Issue
	if err := c.requestAsInstallation(ctx, "create issue", http.MethodPost, repo, "/repos/"+repo+"/issues", payload, &issue); err != nil {
		return nil, err
	}
	c.logger.Info("Created GitHub issue", "repo", repo, "number", issue.Number, "url", issue.HTMLURL)
	return &issue, nil
}
