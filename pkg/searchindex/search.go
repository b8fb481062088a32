package searchindex

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Mode selects which indexes a search consults.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeText    Mode = "text"
	ModeFormula Mode = "formula"
	ModeTitle   Mode = "title"
)

// Fixed relevance for non-scored match types. Title matches outrank
// chapter-title matches, which outrank bare formula matches.
const (
	formulaRelevance      = 1.0
	bookTitleRelevance    = 2.0
	chapterTitleRelevance = 1.5
)

const snippetLength = 200

// Result is one search hit.
type Result struct {
	BookID         string
	BookTitle      string
	ChapterNumber  string
	ChapterTitle   string
	ContentSnippet string
	Relevance      float64
	MatchType      string // "text", "formula" or "title"
	SourcePath     string
	PageNumber     int
}

// Search runs a query against the index. Duplicate hits on the same
// (book, chapter) keep the first occurrence, so text matches shadow
// title matches for the same chapter in mode all. Results are sorted by
// relevance descending and capped at maxResults.
func (ix *Index) Search(query string, maxResults int, mode Mode) ([]Result, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	if mode == "" {
		mode = ModeAll
	}

	var results []Result
	if mode == ModeAll || mode == ModeText {
		text, err := ix.searchText(query, maxResults)
		if err != nil {
			return nil, err
		}
		results = append(results, text...)
	}
	if mode == ModeAll || mode == ModeFormula {
		formulas, err := ix.searchFormulas(query, maxResults)
		if err != nil {
			return nil, err
		}
		results = append(results, formulas...)
	}
	if mode == ModeAll || mode == ModeTitle {
		titles, err := ix.searchTitles(query, maxResults)
		if err != nil {
			return nil, err
		}
		results = append(results, titles...)
	}

	results = dedupeResults(results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func (ix *Index) searchText(query string, maxResults int) ([]Result, error) {
	var results []Result
	for _, term := range ExtractTerms(query) {
		rows, err := ix.db.Query(`
			SELECT b.id, b.title, c.chapter_number, c.title, c.content,
			       t.tf_idf, b.source_path, COALESCE(c.page_number, 0)
			FROM terms t
			JOIN books b ON t.book_id = b.id
			JOIN chapters c ON t.chapter_id = c.id
			WHERE t.term LIKE ?
			ORDER BY t.tf_idf DESC
			LIMIT ?`, "%"+term+"%", maxResults)
		if err != nil {
			return nil, fmt.Errorf("text search failed: %w", err)
		}
		for rows.Next() {
			var r Result
			var content string
			if err := rows.Scan(&r.BookID, &r.BookTitle, &r.ChapterNumber, &r.ChapterTitle,
				&content, &r.Relevance, &r.SourcePath, &r.PageNumber); err != nil {
				rows.Close()
				return nil, fmt.Errorf("text search scan failed: %w", err)
			}
			r.ContentSnippet = makeSnippet(content, term)
			r.MatchType = "text"
			results = append(results, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("text search failed: %w", err)
		}
		rows.Close()
	}
	return results, nil
}

func (ix *Index) searchFormulas(query string, maxResults int) ([]Result, error) {
	pattern := "%" + query + "%"
	rows, err := ix.db.Query(`
		SELECT b.id, b.title, f.content, b.source_path
		FROM formulas f
		JOIN books b ON f.book_id = b.id
		WHERE f.content LIKE ? OR f.context LIKE ?
		LIMIT ?`, pattern, pattern, maxResults)
	if err != nil {
		return nil, fmt.Errorf("formula search failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var content string
		if err := rows.Scan(&r.BookID, &r.BookTitle, &content, &r.SourcePath); err != nil {
			return nil, fmt.Errorf("formula search scan failed: %w", err)
		}
		if len(content) > snippetLength {
			content = content[:snippetLength]
		}
		r.ChapterTitle = "Mathematical Formula"
		r.ContentSnippet = "Formula: " + content + "..."
		r.Relevance = formulaRelevance
		r.MatchType = "formula"
		results = append(results, r)
	}
	return results, rows.Err()
}

func (ix *Index) searchTitles(query string, maxResults int) ([]Result, error) {
	pattern := "%" + query + "%"

	rows, err := ix.db.Query(`
		SELECT id, title, source_path FROM books WHERE title LIKE ? LIMIT ?`,
		pattern, maxResults)
	if err != nil {
		return nil, fmt.Errorf("title search failed: %w", err)
	}
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.BookID, &r.BookTitle, &r.SourcePath); err != nil {
			rows.Close()
			return nil, fmt.Errorf("title search scan failed: %w", err)
		}
		r.ChapterTitle = "Book Title Match"
		r.ContentSnippet = "Book: " + r.BookTitle
		r.Relevance = bookTitleRelevance
		r.MatchType = "title"
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = ix.db.Query(`
		SELECT b.id, b.title, c.chapter_number, c.title, b.source_path,
		       COALESCE(c.page_number, 0)
		FROM chapters c
		JOIN books b ON c.book_id = b.id
		WHERE c.title LIKE ?
		LIMIT ?`, pattern, maxResults)
	if err != nil {
		return nil, fmt.Errorf("chapter title search failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.BookID, &r.BookTitle, &r.ChapterNumber, &r.ChapterTitle,
			&r.SourcePath, &r.PageNumber); err != nil {
			return nil, fmt.Errorf("chapter title search scan failed: %w", err)
		}
		r.ContentSnippet = "Chapter: " + r.ChapterTitle
		r.Relevance = chapterTitleRelevance
		r.MatchType = "title"
		results = append(results, r)
	}
	return results, rows.Err()
}

// dedupeResults keeps the first result per (book, chapter) pair.
func dedupeResults(results []Result) []Result {
	type key struct {
		bookID  string
		chapter string
	}
	seen := map[key]bool{}
	out := results[:0:0]
	for _, r := range results {
		k := key{r.BookID, r.ChapterNumber}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// makeSnippet returns ~snippetLength characters centered on the first
// occurrence of term, with ellipses marking truncation.
func makeSnippet(content, term string) string {
	pos := strings.Index(strings.ToLower(content), strings.ToLower(term))
	if pos == -1 {
		if len(content) > snippetLength {
			return content[:snippetLength] + "..."
		}
		return content + "..."
	}

	start := pos - snippetLength/2
	if start < 0 {
		start = 0
	}
	end := pos + len(term) + snippetLength/2
	if end > len(content) {
		end = len(content)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return strings.TrimSpace(snippet)
}

// Suggest returns up to max terms starting with prefix, most frequent
// first. Prefixes shorter than two characters return nothing.
func (ix *Index) Suggest(prefix string, max int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 2 {
		return nil, nil
	}
	if max <= 0 {
		max = 10
	}

	rows, err := ix.db.Query(`
		SELECT term, SUM(frequency) AS freq
		FROM terms
		WHERE term LIKE ?
		GROUP BY term
		ORDER BY freq DESC
		LIMIT ?`, prefix+"%", max)
	if err != nil {
		return nil, fmt.Errorf("suggest query failed: %w", err)
	}
	defer rows.Close()

	var suggestions []string
	for rows.Next() {
		var term string
		var freq sql.NullInt64
		if err := rows.Scan(&term, &freq); err != nil {
			return nil, fmt.Errorf("suggest scan failed: %w", err)
		}
		suggestions = append(suggestions, term)
	}
	return suggestions, rows.Err()
}
