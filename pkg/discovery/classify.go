package discovery

import (
	"strings"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/githubapi"
)

// Classifier decides whether a repository looks like an open textbook.
// The precedence is fixed; the keyword vocabulary comes from config.
type Classifier struct {
	indicators models.IndicatorConfig
}

// NewClassifier builds a classifier from the configured indicator lists.
func NewClassifier(indicators models.IndicatorConfig) *Classifier {
	return &Classifier{indicators: indicators}
}

// IsTextbook classifies a repository. Exclusion keywords veto everything;
// after that, acceptance is tried in order of decreasing confidence:
//
//  1. a strong indicator in the repository name,
//  2. a trusted organization plus any subject or educational keyword,
//  3. any subject or educational keyword, provided the repository is
//     larger than the minimum size and (optionally) not a fork.
func (c *Classifier) IsTextbook(repo githubapi.Repo) bool {
	name := strings.ToLower(repo.Name)
	description := strings.ToLower(repo.Description)
	combined := name + " " + description

	for _, kw := range c.indicators.ExcludeIndicators {
		if strings.Contains(combined, kw) {
			return false
		}
	}

	for _, kw := range c.indicators.StrongIndicators {
		if strings.Contains(name, kw) {
			return true
		}
	}

	trusted := false
	for _, org := range c.indicators.TrustedOrganizations {
		if strings.EqualFold(repo.Owner.Login, org) {
			trusted = true
			break
		}
	}
	hasSubject := containsAny(combined, c.indicators.SubjectIndicators)
	hasEducational := containsAny(combined, c.indicators.EducationalIndicators)

	if trusted && (hasSubject || hasEducational) {
		return true
	}

	if hasSubject || hasEducational {
		if repo.SizeKB <= c.indicators.MinSizeKB {
			return false
		}
		if c.indicators.PreferNonForks && repo.Fork {
			return false
		}
		return true
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
