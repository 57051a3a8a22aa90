package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHub(server *httptest.Server) *GitHubService {
	return &GitHubService{BaseURL: server.URL, Client: server.Client(), Logger: testLogger()}
}

func TestThreadFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications/threads/12345678", r.URL.Path)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{
			"url": "http://api.example.com/fake/12345678",
			"subscription_url": "http://api.example.com/fake/12345678/subscribe",
			"reason": "manual",
			"updated_at": "2016-04-12T06:40:17Z",
			"subject": {"title": "Fake Issue", "url": "http://example.com/fake/12345678", "type": "Issue"},
			"repository": {"name": "Left-Pad", "owner": {"login": "Octocat"}}
		}`)
	}))
	defer server.Close()

	thread, ok := newTestGitHub(server).Thread(context.Background(), "token123", "12345678")
	require.True(t, ok)
	assert.Equal(t, "http://api.example.com/fake/12345678", thread.URL)
	assert.Equal(t, "manual", thread.Reason)
	assert.Equal(t, "2016-04-12T06:40:17Z", thread.UpdatedAt)
	assert.Equal(t, "Fake Issue", thread.Subject.Title)
	assert.Equal(t, "Issue", thread.Subject.Type)
	assert.Equal(t, "Octocat", thread.Repository.Owner.Login)
	assert.Equal(t, "Left-Pad", thread.Repository.Name)
}

func TestThreadFetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, ok := newTestGitHub(server).Thread(context.Background(), "token123", "12345678")
	assert.False(t, ok)
}

func TestThreadFetchBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fake json")
	}))
	defer server.Close()

	_, ok := newTestGitHub(server).Thread(context.Background(), "token123", "12345678")
	assert.False(t, ok)
}

func TestNotificationsPageCursor(t *testing.T) {
	var baseURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("all"))
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": "00002"}]`)
			return
		}
		assert.Equal(t, "1451606400", r.URL.Query().Get("since"))
		w.Header().Set("Link", fmt.Sprintf(
			`<%s/notifications?all=true&page=2&since=1451606400>; rel="next", <%s/notifications?all=true&page=9&since=1451606400>; rel="last"`,
			baseURL, baseURL))
		fmt.Fprint(w, `[{"id": "00001"}]`)
	}))
	defer server.Close()
	baseURL = server.URL

	gs := newTestGitHub(server)

	items, next, err := gs.NotificationsPage(context.Background(), "token123", 1451606400, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "00001", items[0].ID)
	require.NotEmpty(t, next)

	// The cursor is a plain URL, so paging can resume from it at any point.
	items, next, err = gs.NotificationsPage(context.Background(), "token123", 1451606400, next)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "00002", items[0].ID)
	assert.Empty(t, next)
}

func TestNotificationsPageNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "message"}`)
	}))
	defer server.Close()

	_, _, err := newTestGitHub(server).NotificationsPage(context.Background(), "token123", 1451606400, "")
	assert.Error(t, err)
}

func TestNotificationsPageBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fake json")
	}))
	defer server.Close()

	_, _, err := newTestGitHub(server).NotificationsPage(context.Background(), "token123", 1451606400, "")
	assert.Error(t, err)
}
