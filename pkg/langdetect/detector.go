// Package langdetect determines a repository's natural language so it
// can be filed under Books/{language}/... Name hints are checked first;
// when the name says nothing, a sample of the repository's text content
// is run through a statistical detector.
package langdetect

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pemistahl/lingua-go"
)

const (
	maxSampleFiles = 5
	maxSampleBytes = 4096
)

// nameIndicators map repository-name substrings to languages. These are
// conventions in existing corpora (e.g. "fisica-universitaria" editions).
var nameIndicators = map[string]string{
	"-spanish":    "spanish",
	"-espanol":    "spanish",
	"fisica":      "spanish",
	"quimica":     "spanish",
	"matematicas": "spanish",
	"-french":     "french",
	"-francais":   "french",
	"-polish":     "polish",
	"-polska":     "polish",
	"fizyka":      "polish",
	"-german":     "german",
	"-deutsch":    "german",
	"-italian":    "italian",
	"-portuguese": "portuguese",
}

// Detector resolves repository languages. The zero value is not usable;
// construct with New so the statistical model is built once.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over the languages we expect in open textbook
// corpora.
func New() *Detector {
	langs := []lingua.Language{
		lingua.English, lingua.Spanish, lingua.French, lingua.German,
		lingua.Polish, lingua.Italian, lingua.Portuguese,
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			WithMinimumRelativeDistance(0.25).
			Build(),
	}
}

// Detect returns the lowercase English name of the repository's language,
// defaulting to "english" when nothing conclusive is found.
func (d *Detector) Detect(repoPath, repoName string) string {
	name := strings.ToLower(repoName)
	for indicator, lang := range nameIndicators {
		if strings.Contains(name, indicator) {
			return lang
		}
	}

	sample := sampleText(repoPath)
	if sample == "" {
		return "english"
	}
	if lang, ok := d.detector.DetectLanguageOf(sample); ok {
		return strings.ToLower(lang.String())
	}
	return "english"
}

// sampleText concatenates the head of a few text files from the repo.
func sampleText(repoPath string) string {
	if repoPath == "" {
		return ""
	}
	var sb strings.Builder
	count := 0
	filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || count >= maxSampleFiles {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt", ".tex", ".cnxml", ".xml", ".html":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if len(data) > maxSampleBytes {
			data = data[:maxSampleBytes]
		}
		sb.Write(data)
		sb.WriteByte('\n')
		count++
		return nil
	})
	return sb.String()
}
