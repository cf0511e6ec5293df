package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// newFakeGitHub serves the minimal GitHub App surface: installation lookup,
// token minting, labels, assignees, and issue creation.
func newFakeGitHub(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	tokenMints := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/installation", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		json.NewEncoder(w).Encode(map[string]any{"id": 77})
	})
	mux.HandleFunc("/app/installations/77/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		tokenMints++
		json.NewEncoder(w).Encode(map[string]any{
			"token":      "installation-token",
			"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/repos/owner/repo/labels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token installation-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]string{{"name": "bug"}, {"name": "enhancement"}})
	})
	mux.HandleFunc("/repos/owner/repo/assignees", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{{"login": "lxgrf"}})
	})
	mux.HandleFunc("/repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Broken dice", payload["title"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"number": 12, "html_url": "https://github.com/owner/repo/issues/12"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenMints
}

func newTestClient(t *testing.T, apiBase string) *GitHubAppClient {
	t.Helper()
	return NewGitHubAppClient(GitHubAppConfig{
		AppID:      1234,
		PrivateKey: testKey(t),
		APIBase:    apiBase,
	}, nil)
}

func TestGitHubAppClientListLabels(t *testing.T) {
	server, _ := newFakeGitHub(t)
	client := newTestClient(t, server.URL)

	labels, err := client.ListLabels(context.Background(), "owner/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"bug", "enhancement"}, labels)
}

func TestGitHubAppClientListAssignees(t *testing.T) {
	server, _ := newFakeGitHub(t)
	client := newTestClient(t, server.URL)

	assignees, err := client.ListAssignees(context.Background(), "owner/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"lxgrf"}, assignees)
}

func TestGitHubAppClientCreateIssue(t *testing.T) {
	server, _ := newFakeGitHub(t)
	client := newTestClient(t, server.URL)

	issue, err := client.CreateIssue(context.Background(), "owner/repo", "Broken dice", "body", []string{"bug"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, issue.Number)
	assert.Equal(t, "https://github.com/owner/repo/issues/12", issue.HTMLURL)
}

func TestGitHubAppClientCachesInstallationToken(t *testing.T) {
	server, mints := newFakeGitHub(t)
	client := newTestClient(t, server.URL)

	_, err := client.ListLabels(context.Background(), "owner/repo")
	require.NoError(t, err)
	_, err = client.ListAssignees(context.Background(), "owner/repo")
	require.NoError(t, err)

	assert.Equal(t, 1, *mints)
}

func TestGitHubAppClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ListLabels(context.Background(), "owner/repo")

	var appErr *GitHubAppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Contains(t, appErr.Body, "Bad credentials")
}
