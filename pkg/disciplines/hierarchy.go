// Package disciplines maps free-form subject text onto the top-level
// concepts of the OpenAlex hierarchy, which fixes the second segment of
// the Books/{language}/{concept}/{level}/{repo} layout.
package disciplines

import "strings"

// conceptKeywords is checked in order; the first keyword hit wins, so
// more specific disciplines sit above broader ones.
var conceptKeywords = []struct {
	keyword string
	concept string
}{
	{"astronomy", "PhysicalSciences"},
	{"physics", "PhysicalSciences"},
	{"chemistry", "PhysicalSciences"},
	{"geology", "PhysicalSciences"},
	{"anatomy", "HealthSciences"},
	{"physiology", "HealthSciences"},
	{"nursing", "HealthSciences"},
	{"medicine", "HealthSciences"},
	{"microbiology", "LifeSciences"},
	{"biology", "LifeSciences"},
	{"neuroscience", "LifeSciences"},
	{"statistics", "Mathematics"},
	{"calculus", "Mathematics"},
	{"algebra", "Mathematics"},
	{"trigonometry", "Mathematics"},
	{"math", "Mathematics"},
	{"economics", "SocialSciences"},
	{"psychology", "SocialSciences"},
	{"sociology", "SocialSciences"},
	{"anthropology", "SocialSciences"},
	{"government", "SocialSciences"},
	{"history", "SocialSciences"},
	{"philosophy", "Humanities"},
	{"business", "Business"},
	{"accounting", "Business"},
	{"finance", "Business"},
	{"marketing", "Business"},
	{"entrepreneurship", "Business"},
	{"programming", "ComputerScience"},
	{"computer", "ComputerScience"},
}

// Classify returns the top-level concept for a subject or title string,
// or "" when no keyword matches. Callers decide the fallback directory.
func Classify(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range conceptKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.concept
		}
	}
	return ""
}
