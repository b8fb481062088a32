// Package models defines the shared data structures for the acquisition
// and indexing pipeline.
package models

import "time"

// Level is an educational level inferred for a discovered book.
type Level string

const (
	LevelHighSchool Level = "HighSchool"
	LevelUniversity Level = "University"
	LevelGraduate   Level = "Graduate"
	LevelUnknown    Level = "Unknown"
)

// BookFormat distinguishes git repositories from direct PDF downloads.
type BookFormat string

const (
	FormatGit BookFormat = "git"
	FormatPDF BookFormat = "pdf"
)

// DiscoveredBook is a candidate textbook produced by the discovery engine.
// It is immutable once produced and consumed exactly once by the
// acquisition manager.
type DiscoveredBook struct {
	RepoName       string     `json:"repo"`
	Name           string     `json:"name"`
	Org            string     `json:"org"`
	CloneURL       string     `json:"clone_url"`
	Subject        string     `json:"subject"`
	Description    string     `json:"description"`
	Stars          int        `json:"stars"`
	SizeKB         int        `json:"size_kb"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SourceStrategy string     `json:"source"`
	Format         BookFormat `json:"format"`
	LevelHint      Level      `json:"level_hint,omitempty"`
}

// Identity returns the dedup key for a discovered book: org/repo, falling
// back to the display name for repo-less (PDF) candidates.
func (b DiscoveredBook) Identity() string {
	name := b.RepoName
	if name == "" {
		name = b.Name
	}
	return b.Org + "/" + name
}

// Chapter is one chapter of externally-extracted book content.
type Chapter struct {
	Number     string
	Title      string
	Content    string
	PageNumber int
}

// Formula is a mathematical expression captured during extraction, with
// roughly 200 characters of surrounding context.
type Formula struct {
	Content string
	Type    string
	Context string
}

// ExtractedContent is the unit of work handed to the search indexer.
// Producing it (PDF/EPUB/CNXML/LaTeX parsing) is the text extractor's job
// and happens outside this module.
type ExtractedContent struct {
	Title       string
	Authors     []string
	SourcePath  string
	FormatType  string
	ContentHash string
	Language    string
	Chapters    []Chapter
	Formulas    []Formula
}
