package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
)

// DefaultGitHubAPIURL is the upstream notification feed endpoint.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubNotification is one item from the upstream notifications feed. Only
// the id matters for the backfill fan-out.
type GitHubNotification struct {
	ID string `json:"id"`
}

// GitHubThread mirrors the upstream thread detail payload.
type GitHubThread struct {
	URL             string `json:"url"`
	SubscriptionURL string `json:"subscription_url"`
	Reason          string `json:"reason"`
	UpdatedAt       string `json:"updated_at"`
	Subject         struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Type  string `json:"type"`
	} `json:"subject"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// GitHubService fetches notification data from the upstream feed using a
// user-scoped access token.
type GitHubService struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

// Thread fetches the detail for a single notification thread. A non-200
// response or an unparseable body yields ok=false; neither is retried.
func (gs *GitHubService) Thread(ctx context.Context, token, threadID string) (*GitHubThread, bool) {
	url := fmt.Sprintf("%s/notifications/threads/%s", gs.BaseURL, threadID)
	resp, err := gs.get(ctx, url, token)
	if err != nil {
		gs.Logger.Error("could not fetch thread information", "thread_id", threadID, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		gs.Logger.Info("could not find thread information",
			"thread_id", threadID, "status", resp.StatusCode, "url", url)
		return nil, false
	}

	var thread GitHubThread
	if err := json.NewDecoder(resp.Body).Decode(&thread); err != nil {
		gs.Logger.Error("could not parse JSON from thread response", "thread_id", threadID, "error", err)
		return nil, false
	}
	return &thread, true
}

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)

// NotificationsPage fetches one page of the notifications feed. cursor is the
// URL of the page to fetch; an empty cursor starts from the beginning. The
// returned cursor is empty once the last page has been consumed, so callers
// can restart or resume paging from any point.
func (gs *GitHubService) NotificationsPage(ctx context.Context, token string, since int64, cursor string) ([]GitHubNotification, string, error) {
	url := cursor
	if url == "" {
		url = fmt.Sprintf("%s/notifications?all=true&since=%d", gs.BaseURL, since)
	}

	resp, err := gs.get(ctx, url, token)
	if err != nil {
		return nil, "", fmt.Errorf("could not fetch notification list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected HTTP response code %d from %s", resp.StatusCode, url)
	}

	var items []GitHubNotification
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, "", fmt.Errorf("could not parse notification list: %w", err)
	}

	next := ""
	if m := nextLinkPattern.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
		next = m[1]
	}
	return items, next, nil
}

func (gs *GitHubService) get(ctx context.Context, url, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return gs.Client.Do(req)
}
