package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-agent", 0, 5*time.Second, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func repoPage(n int) []Repo {
	repos := make([]Repo, n)
	for i := range repos {
		repos[i].Name = fmt.Sprintf("repo-%d", i)
	}
	return repos
}

func TestListOrgReposStopsAtShortPage(t *testing.T) {
	var pagesServed []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		switch page {
		case "1":
			json.NewEncoder(w).Encode(repoPage(perPage))
		default:
			json.NewEncoder(w).Encode(repoPage(3))
		}
	})

	c := newTestClient(t, handler)
	repos, err := c.ListOrgRepos(context.Background(), "openstax", 0)
	if err != nil {
		t.Fatalf("ListOrgRepos() error: %v", err)
	}
	if len(repos) != perPage+3 {
		t.Errorf("got %d repos, want %d", len(repos), perPage+3)
	}
	if len(pagesServed) != 2 {
		t.Errorf("served pages %v, want exactly 2 requests", pagesServed)
	}
}

func TestListOrgReposNotFoundEndsListing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			json.NewEncoder(w).Encode(repoPage(perPage))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, handler)
	repos, err := c.ListOrgRepos(context.Background(), "openstax", 0)
	if err != nil {
		t.Fatalf("ListOrgRepos() error: %v", err)
	}
	if len(repos) != perPage {
		t.Errorf("got %d repos, want %d from the page before the 404", len(repos), perPage)
	}
}

func TestGetRetriesAfterRateLimit(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(repoPage(1))
	})

	c := newTestClient(t, handler)
	repos, err := c.ListOrgRepos(context.Background(), "openstax", 1)
	if err != nil {
		t.Fatalf("ListOrgRepos() error: %v", err)
	}
	if len(repos) != 1 {
		t.Errorf("got %d repos, want 1 after retry", len(repos))
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts)
	}
}

func TestSearchRepos(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "physics textbook" {
			t.Errorf("query = %q", got)
		}
		resp := searchResponse{Items: repoPage(2)}
		resp.Items[0].Owner.Login = "openstax"
		json.NewEncoder(w).Encode(resp)
	})

	c := newTestClient(t, handler)
	repos, err := c.SearchRepos(context.Background(), "physics textbook", "")
	if err != nil {
		t.Fatalf("SearchRepos() error: %v", err)
	}
	if len(repos) != 2 || repos[0].Owner.Login != "openstax" {
		t.Errorf("repos = %+v, want 2 items with owner on the first", repos)
	}
}

func TestCancelledContextStopsListing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(repoPage(perPage))
	})
	c := newTestClient(t, handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ListOrgRepos(ctx, "openstax", 0); err == nil {
		t.Error("ListOrgRepos() with cancelled context returned nil error")
	}
}
