// Package githubapi is a rate-limited client for the GitHub REST API.
// It only uses unauthenticated endpoints, so it is conservative about
// request pacing and treats 403 as a rate-limit signal.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	perPage     = 100
	maxPageCap  = 10
	backoffCap  = 30 * time.Second
	defaultBase = "https://api.github.com"
)

// Repo is the subset of the repository listing payload the pipeline needs.
type Repo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	CloneURL    string    `json:"clone_url"`
	HTMLURL     string    `json:"html_url"`
	SizeKB      int       `json:"size"`
	Stars       int       `json:"stargazers_count"`
	Fork        bool      `json:"fork"`
	UpdatedAt   time.Time `json:"updated_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type searchResponse struct {
	Items []Repo `json:"items"`
}

// Client talks to the hosting REST API with a fixed inter-request delay
// and exponential backoff on rate limiting.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	requestDelay time.Duration
	maxRetries   int
	logger       *slog.Logger
}

// NewClient builds a client. baseURL falls back to the public API when empty.
func NewClient(baseURL, userAgent string, requestDelay, timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBase
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		userAgent:    userAgent,
		requestDelay: requestDelay,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// ListOrgRepos pages through an organization's public repositories. It
// stops at a short page, at maxPages (capped at 10) or at a 404, and skips
// pages that keep failing after retries rather than aborting the listing.
func (c *Client) ListOrgRepos(ctx context.Context, org string, maxPages int) ([]Repo, error) {
	if maxPages <= 0 || maxPages > maxPageCap {
		maxPages = maxPageCap
	}

	var repos []Repo
	for page := 1; page <= maxPages; page++ {
		params := url.Values{
			"type":      {"public"},
			"sort":      {"updated"},
			"direction": {"desc"},
			"per_page":  {strconv.Itoa(perPage)},
			"page":      {strconv.Itoa(page)},
		}
		endpoint := fmt.Sprintf("%s/orgs/%s/repos?%s", c.baseURL, url.PathEscape(org), params.Encode())

		body, done, err := c.get(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return repos, ctx.Err()
			}
			c.logger.Warn("skipping repo page after repeated failures", "org", org, "page", page, "error", err)
			continue
		}
		if done {
			break
		}

		var pageRepos []Repo
		if err := json.Unmarshal(body, &pageRepos); err != nil {
			c.logger.Warn("failed to decode repo page", "org", org, "page", page, "error", err)
			continue
		}
		repos = append(repos, pageRepos...)
		if len(pageRepos) < perPage {
			break
		}
	}
	return repos, nil
}

// SearchRepos queries the search endpoint with the same rate-limit
// discipline as org listing. sort is "stars" or "updated".
func (c *Client) SearchRepos(ctx context.Context, query, sort string) ([]Repo, error) {
	if sort == "" {
		sort = "stars"
	}
	params := url.Values{
		"q":        {query},
		"sort":     {sort},
		"order":    {"desc"},
		"per_page": {"50"},
	}
	endpoint := fmt.Sprintf("%s/search/repositories?%s", c.baseURL, params.Encode())

	body, done, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("repository search failed: %w", err)
	}
	if done {
		return nil, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return resp.Items, nil
}

// get performs one logical GET with the fixed inter-request delay, retry
// and backoff policy. The second return value is true when the server
// reported 404, which callers treat as "no more data".
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, bool, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := sleepCtx(ctx, c.requestDelay); err != nil {
			return nil, false, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("request error", "url", endpoint, "attempt", attempt+1, "error", err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK && readErr == nil:
				return body, false, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, true, nil
			case resp.StatusCode == http.StatusForbidden:
				lastErr = fmt.Errorf("rate limited (403)")
				c.logger.Warn("rate limited, backing off", "url", endpoint, "attempt", attempt+1)
				if err := sleepCtx(ctx, c.requestDelay); err != nil {
					return nil, false, err
				}
			default:
				if readErr != nil {
					lastErr = readErr
				} else {
					lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
				}
				c.logger.Warn("unexpected response", "url", endpoint, "status", resp.StatusCode)
			}
		}

		if attempt < c.maxRetries {
			wait := c.requestDelay * time.Duration(1<<attempt)
			if wait > backoffCap {
				wait = backoffCap
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, false, err
			}
		}
	}
	return nil, false, fmt.Errorf("failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
