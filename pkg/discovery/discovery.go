// Package discovery finds candidate textbooks through the hosting REST
// API and through HTML subject pages, classifies them and normalizes
// their metadata into models.DiscoveredBook values.
package discovery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/githubapi"
)

// Engine coordinates the discovery strategies. It is stateless between
// calls; dedup happens on the combined result set.
type Engine struct {
	api        *githubapi.Client
	classifier *Classifier
	scraper    *Scraper
	logger     *slog.Logger
}

// NewEngine wires the discovery strategies together.
func NewEngine(api *githubapi.Client, classifier *Classifier, scraper *Scraper, logger *slog.Logger) *Engine {
	return &Engine{api: api, classifier: classifier, scraper: scraper, logger: logger}
}

// DiscoverOrganization lists an organization's repositories and keeps the
// ones that classify as textbooks. A failing organization yields an empty
// slice plus the error; callers log and continue with other sources.
func (e *Engine) DiscoverOrganization(ctx context.Context, org string) ([]models.DiscoveredBook, error) {
	repos, err := e.api.ListOrgRepos(ctx, org, 0)
	if err != nil {
		return nil, err
	}

	var books []models.DiscoveredBook
	for _, repo := range repos {
		if !e.classifier.IsTextbook(repo) {
			continue
		}
		books = append(books, e.toBook(repo, "org:"+org))
	}
	e.logger.Info("organization discovery complete",
		"org", org, "repos", len(repos), "textbooks", len(books))
	return books, nil
}

// SearchRepositories runs a repository search query and classifies the
// results.
func (e *Engine) SearchRepositories(ctx context.Context, query string) ([]models.DiscoveredBook, error) {
	repos, err := e.api.SearchRepos(ctx, query, "stars")
	if err != nil {
		return nil, err
	}

	var books []models.DiscoveredBook
	for _, repo := range repos {
		if !e.classifier.IsTextbook(repo) {
			continue
		}
		books = append(books, e.toBook(repo, "search:"+query))
	}
	e.logger.Info("search discovery complete",
		"query", query, "results", len(repos), "textbooks", len(books))
	return books, nil
}

// ScrapeSubjectPages delegates to the HTML scraper when one is configured.
func (e *Engine) ScrapeSubjectPages(ctx context.Context, subjects []string) []models.DiscoveredBook {
	if e.scraper == nil {
		return nil
	}
	return e.scraper.ScrapeSubjects(ctx, subjects)
}

func (e *Engine) toBook(repo githubapi.Repo, source string) models.DiscoveredBook {
	subject := ExtractSubject(repo.Name, repo.Description)
	return models.DiscoveredBook{
		RepoName:       repo.Name,
		Name:           CleanBookName(repo.Name),
		Org:            repo.Owner.Login,
		CloneURL:       repo.CloneURL,
		Subject:        subject,
		Description:    repo.Description,
		Stars:          repo.Stars,
		SizeKB:         repo.SizeKB,
		UpdatedAt:      repo.UpdatedAt,
		SourceStrategy: source,
		Format:         models.FormatGit,
		LevelHint:      InferLevelHint(repo.Name, subject),
	}
}

// Deduplicate drops books whose identity (org/repo) was already seen.
// The first occurrence wins, so source ordering decides which metadata
// survives.
func Deduplicate(books []models.DiscoveredBook) []models.DiscoveredBook {
	seen := make(map[string]bool, len(books))
	out := books[:0:0]
	for _, b := range books {
		key := strings.ToLower(b.Identity())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

var namePrefixes = []string{
	"derived-from-osbooks-", "osbooks-", "cnxbook-", "openstax-",
}

// acronyms restored after title-casing.
var acronyms = map[string]string{
	"Ap": "AP", "Us": "US", "Ib": "IB",
}

// CleanBookName turns a repository name into a human-readable title:
// known prefixes stripped, hyphens to spaces, words title-cased and
// common acronyms restored.
func CleanBookName(repoName string) string {
	name := strings.ToLower(repoName)
	for _, prefix := range namePrefixes {
		name = strings.TrimPrefix(name, prefix)
	}

	words := strings.Split(strings.ReplaceAll(name, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		w = strings.ToUpper(w[:1]) + w[1:]
		if fixed, ok := acronyms[w]; ok {
			w = fixed
		}
		words[i] = w
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

// subjectKeywords maps keywords to display subjects, checked in order so
// the more specific subjects win.
var subjectKeywords = []struct {
	keyword string
	subject string
}{
	{"astronomy", "Physics"},
	{"physics", "Physics"},
	{"biology", "Biology"},
	{"anatomy", "Biology"},
	{"physiology", "Biology"},
	{"microbiology", "Biology"},
	{"chemistry", "Chemistry"},
	{"statistics", "Statistics"},
	{"calculus", "Mathematics"},
	{"algebra", "Mathematics"},
	{"math", "Mathematics"},
	{"economics", "Economics"},
	{"finance", "Economics"},
	{"psychology", "Psychology"},
	{"sociology", "Sociology"},
	{"anthropology", "Sociology"},
	{"business", "Business"},
	{"accounting", "Business"},
	{"marketing", "Business"},
	{"programming", "Computer Science"},
	{"computer", "Computer Science"},
}

// ExtractSubject picks a display subject from the repository name and
// description, defaulting to "Other".
func ExtractSubject(name, description string) string {
	combined := strings.ToLower(name + " " + description)
	for _, entry := range subjectKeywords {
		if strings.Contains(combined, entry.keyword) {
			return entry.subject
		}
	}
	return "Other"
}

// InferLevelHint guesses the educational level from the repository name.
// A handful of titles have well-known levels; everything else is Unknown
// and resolved later by the acquisition manager's level detector.
func InferLevelHint(repoName, subject string) models.Level {
	name := strings.ToLower(repoName)
	switch {
	case strings.Contains(name, "college-physics"),
		strings.Contains(name, "university-physics"):
		return models.LevelUniversity
	case name == "osbooks-physics":
		return models.LevelHighSchool
	case strings.Contains(name, "prealgebra"),
		strings.Contains(name, "pre-algebra"):
		return models.LevelHighSchool
	case strings.Contains(name, "calculus"),
		strings.Contains(name, "linear-algebra"):
		return models.LevelUniversity
	case strings.Contains(name, "ap-"):
		return models.LevelHighSchool
	case strings.Contains(name, "graduate"):
		return models.LevelGraduate
	}
	return models.LevelUnknown
}
