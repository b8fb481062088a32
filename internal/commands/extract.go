package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/davidlary/openbooks/models"
)

// extractContent builds indexable content from a cloned repository's
// plain-text and markdown files. One file becomes one chapter, ordered by
// path. Richer formats (PDF, EPUB, CNXML) are handled by external
// extractors; this walker keeps the index useful for source-format books.
func extractContent(ctx context.Context, repoPath, title, language string) (models.ExtractedContent, error) {
	var files []string
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return models.ExtractedContent{}, err
	}
	sort.Strings(files)

	content := models.ExtractedContent{
		Title:      title,
		SourcePath: repoPath,
		FormatType: "markdown",
		Language:   language,
	}
	if content.Title == "" {
		content.Title = filepath.Base(repoPath)
	}

	hash := sha256.New()
	for i, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		text := string(data)
		hash.Write(data)

		rel, _ := filepath.Rel(repoPath, file)
		content.Chapters = append(content.Chapters, models.Chapter{
			Number:  strconv.Itoa(i + 1),
			Title:   chapterTitle(rel, text),
			Content: text,
		})
		content.Formulas = append(content.Formulas, extractFormulas(text)...)
	}
	hash.Write([]byte(repoPath))
	content.ContentHash = hex.EncodeToString(hash.Sum(nil))
	return content, nil
}

// chapterTitle takes the first markdown heading, falling back to the
// file name.
func chapterTitle(relPath, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	name := filepath.Base(relPath)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, "-", " ")
}

var (
	displayMathRe = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	inlineMathRe  = regexp.MustCompile(`\$([^$\n]+)\$`)
)

const formulaContextLen = 200

// extractFormulas captures LaTeX math from markdown, with surrounding
// text as context.
func extractFormulas(text string) []models.Formula {
	var formulas []models.Formula

	for _, match := range displayMathRe.FindAllStringSubmatchIndex(text, -1) {
		formulas = append(formulas, models.Formula{
			Content: strings.TrimSpace(text[match[2]:match[3]]),
			Type:    "display",
			Context: formulaContext(text, match[0], match[1]),
		})
	}

	stripped := displayMathRe.ReplaceAllString(text, "")
	for _, match := range inlineMathRe.FindAllStringSubmatchIndex(stripped, -1) {
		formula := strings.TrimSpace(stripped[match[2]:match[3]])
		if formula == "" {
			continue
		}
		formulas = append(formulas, models.Formula{
			Content: formula,
			Type:    "inline",
			Context: formulaContext(stripped, match[0], match[1]),
		})
	}
	return formulas
}

func formulaContext(text string, start, end int) string {
	ctxStart := start - formulaContextLen/2
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + formulaContextLen/2
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	return strings.TrimSpace(text[ctxStart:ctxEnd])
}
