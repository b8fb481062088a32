package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/davidlary/openbooks/models"
)

// Scraper pulls direct-download textbook links from publisher subject
// pages. It is the fallback strategy for books that are published as
// PDFs rather than git repositories.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	delay      time.Duration
	logger     *slog.Logger
}

// NewScraper builds a scraper rooted at baseURL (e.g. the OpenStax site).
func NewScraper(baseURL, userAgent string, delay, timeout time.Duration, logger *slog.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		delay:      delay,
		logger:     logger,
	}
}

// ScrapeSubjects visits one subject page per subject and collects
// download candidates. Page failures are logged and skipped; the scrape
// never aborts the run.
func (s *Scraper) ScrapeSubjects(ctx context.Context, subjects []string) []models.DiscoveredBook {
	var books []models.DiscoveredBook
	for _, subject := range subjects {
		pageURL := fmt.Sprintf("%s/subjects/%s", s.baseURL, url.PathEscape(strings.ToLower(subject)))

		found, err := s.scrapePage(ctx, pageURL, subject)
		if err != nil {
			if ctx.Err() != nil {
				return books
			}
			s.logger.Warn("subject page scrape failed", "subject", subject, "url", pageURL, "error", err)
			continue
		}
		books = append(books, found...)

		select {
		case <-ctx.Done():
			return books
		case <-time.After(s.delay):
		}
	}
	return books
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL, subject string) ([]models.DiscoveredBook, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	// The whole-page article title is the last-resort name for links
	// whose surrounding markup carries no heading.
	pageTitle := ""
	if article, rErr := readability.FromReader(strings.NewReader(string(body)), base); rErr == nil {
		pageTitle = strings.TrimSpace(article.Title)
	}

	var books []models.DiscoveredBook
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		if !strings.Contains(lower, "pdf") && !strings.Contains(lower, "download") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref).String()
		if seen[absolute] {
			return
		}
		seen[absolute] = true

		title := nearestTitle(sel)
		if title == "" {
			title = pageTitle
		}
		if title == "" {
			title = titleFromURL(absolute)
		}
		if title == "" {
			return
		}

		books = append(books, models.DiscoveredBook{
			Name:           title,
			CloneURL:       absolute,
			Subject:        subject,
			SourceStrategy: "scrape:" + pageURL,
			Format:         models.FormatPDF,
		})
	})
	return books, nil
}

// nearestTitle walks up to three ancestors of an anchor looking for a
// heading or a node whose class mentions "title".
func nearestTitle(sel *goquery.Selection) string {
	node := sel
	for i := 0; i < 3; i++ {
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
		if h := node.Find("h1, h2, h3, h4").First(); h.Length() > 0 {
			if t := strings.TrimSpace(h.Text()); t != "" {
				return t
			}
		}
		if class, ok := node.Attr("class"); ok && strings.Contains(strings.ToLower(class), "title") {
			if t := strings.TrimSpace(node.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}
