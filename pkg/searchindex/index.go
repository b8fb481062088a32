// Package searchindex stores extracted book content in SQLite and serves
// term, formula and title search over it. Term scores are frequency
// times inverse document frequency, computed against the corpus as it
// exists when the book is indexed; earlier books keep their scores until
// they are reindexed, so scoring favors recently indexed content.
package searchindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davidlary/openbooks/models"
)

const DefaultDBName = "search_index.db"

// Index is the search index handle. Writes must be serialized by the
// caller (the scheduler's io pool runs index tasks one at a time); reads
// are safe concurrently.
type Index struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the index database at path (":memory:" works for
// tests) and ensures the schema exists.
func Open(path string, logger *slog.Logger) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases
	// from silently becoming independent per-connection stores.
	db.SetMaxOpenConns(1)
	ix := &Index{db: db, path: path, logger: logger}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize search index schema: %w", err)
	}
	return ix, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error { return ix.db.Close() }

// IndexBook indexes one book's chapters and formulas in a single
// transaction. Reindexing the same content hash replaces the book's rows.
// Scores for the new rows are frozen against the current corpus; rows of
// other books are not touched.
func (ix *Index) IndexBook(content models.ExtractedContent) error {
	ix.logger.Info("indexing book", "title", content.Title, "chapters", len(content.Chapters))

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	bookID := content.ContentHash
	authors, err := json.Marshal(content.Authors)
	if err != nil {
		return fmt.Errorf("failed to encode authors: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO books
		(id, title, authors, source_path, format_type, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bookID, content.Title, string(authors), content.SourcePath,
		content.FormatType, content.ContentHash, float64(time.Now().UnixMilli())/1000,
	); err != nil {
		return fmt.Errorf("failed to upsert book: %w", err)
	}

	// Reindex replaces this book's derived rows wholesale.
	for _, stmt := range []string{
		`DELETE FROM terms WHERE book_id = ?`,
		`DELETE FROM formulas WHERE book_id = ?`,
		`DELETE FROM chapters WHERE book_id = ?`,
	} {
		if _, err := tx.Exec(stmt, bookID); err != nil {
			return fmt.Errorf("failed to clear previous index rows: %w", err)
		}
	}

	for _, chapter := range content.Chapters {
		if err := indexChapter(tx, bookID, chapter); err != nil {
			return fmt.Errorf("failed to index chapter %q: %w", chapter.Title, err)
		}
	}
	for _, formula := range content.Formulas {
		if err := indexFormula(tx, bookID, formula); err != nil {
			return fmt.Errorf("failed to index formula: %w", err)
		}
	}

	if err := freezeScores(tx, bookID); err != nil {
		return fmt.Errorf("failed to compute term scores: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	return nil
}

func indexChapter(tx *sql.Tx, bookID string, chapter models.Chapter) error {
	var pageNumber any
	if chapter.PageNumber > 0 {
		pageNumber = chapter.PageNumber
	}
	res, err := tx.Exec(`
		INSERT INTO chapters (book_id, chapter_number, title, content, page_number)
		VALUES (?, ?, ?, ?, ?)`,
		bookID, chapter.Number, chapter.Title, chapter.Content, pageNumber)
	if err != nil {
		return err
	}
	chapterID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	terms := ExtractTerms(chapter.Content)
	freq := map[string]int{}
	for _, term := range terms {
		freq[term]++
	}

	// Provisional score is the plain term frequency ratio; freezeScores
	// overwrites it once corpus counts are known.
	total := len(terms)
	for term, n := range freq {
		provisional := 0.0
		if total > 0 {
			provisional = float64(n) / float64(total)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO terms (term, book_id, chapter_id, frequency, tf_idf)
			VALUES (?, ?, ?, ?, ?)`,
			term, bookID, chapterID, n, provisional); err != nil {
			return err
		}
	}
	return nil
}

func indexFormula(tx *sql.Tx, bookID string, formula models.Formula) error {
	formulaType := formula.Type
	if formulaType == "" {
		formulaType = "formula"
	}
	_, err := tx.Exec(`
		INSERT INTO formulas (book_id, content, formula_type, context)
		VALUES (?, ?, ?, ?)`,
		bookID, formula.Content, formulaType, formula.Context)
	return err
}

// freezeScores sets tf_idf = frequency * ln(totalDocs/docsWithTerm) for
// every term of this book, using document counts at this moment.
func freezeScores(tx *sql.Tx, bookID string) error {
	var totalDocs int
	if err := tx.QueryRow(`SELECT COUNT(DISTINCT book_id) FROM terms`).Scan(&totalDocs); err != nil {
		return err
	}
	if totalDocs == 0 {
		return nil
	}

	rows, err := tx.Query(`SELECT DISTINCT term FROM terms WHERE book_id = ?`, bookID)
	if err != nil {
		return err
	}
	var bookTerms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			rows.Close()
			return err
		}
		bookTerms = append(bookTerms, term)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, term := range bookTerms {
		var docsWithTerm int
		if err := tx.QueryRow(
			`SELECT COUNT(DISTINCT book_id) FROM terms WHERE term = ?`, term,
		).Scan(&docsWithTerm); err != nil {
			return err
		}
		if docsWithTerm == 0 {
			continue
		}
		idf := math.Log(float64(totalDocs) / float64(docsWithTerm))
		if _, err := tx.Exec(
			`UPDATE terms SET tf_idf = (frequency * ?) WHERE term = ? AND book_id = ?`,
			idf, term, bookID); err != nil {
			return err
		}
	}
	return nil
}

// ExtractTerms lowercases text, replaces punctuation with spaces and
// returns the words longer than two characters that are not stopwords.
func ExtractTerms(text string) []string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}

	var terms []string
	for _, word := range strings.Fields(sb.String()) {
		if len(word) > 2 && !stopwords[word] {
			terms = append(terms, word)
		}
	}
	return terms
}

// Rebuild drops every table and recreates the empty schema.
func (ix *Index) Rebuild() error {
	ix.logger.Info("rebuilding search index")
	if _, err := ix.db.Exec(dropAll); err != nil {
		return fmt.Errorf("failed to drop index tables: %w", err)
	}
	if _, err := ix.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to recreate index schema: %w", err)
	}
	return nil
}

// Stats describes the index contents.
type Stats struct {
	TotalBooks    int
	TotalChapters int
	TotalWords    int
	TotalFormulas int
	UniqueTerms   int
	SizeMB        float64
	LastIndexedAt float64
}

// Summary reads the index statistics.
func (ix *Index) Summary() (Stats, error) {
	var st Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(*) FROM books`, &st.TotalBooks},
		{`SELECT COUNT(*) FROM chapters`, &st.TotalChapters},
		{`SELECT COUNT(*) FROM terms`, &st.UniqueTerms},
		{`SELECT COALESCE(SUM(frequency), 0) FROM terms`, &st.TotalWords},
		{`SELECT COUNT(*) FROM formulas`, &st.TotalFormulas},
	}
	for _, q := range queries {
		if err := ix.db.QueryRow(q.sql).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("stats query failed: %w", err)
		}
	}
	if err := ix.db.QueryRow(
		`SELECT COALESCE(MAX(indexed_at), 0) FROM books`,
	).Scan(&st.LastIndexedAt); err != nil {
		return Stats{}, fmt.Errorf("stats query failed: %w", err)
	}
	if info, err := os.Stat(ix.path); err == nil {
		st.SizeMB = float64(info.Size()) / (1 << 20)
	}
	return st, nil
}

var stopwords = map[string]bool{
	"and": true, "are": true, "for": true, "from": true, "has": true,
	"its": true, "that": true, "the": true, "was": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "said": true, "each": true, "which": true,
	"she": true, "how": true, "other": true, "many": true, "some": true,
	"time": true, "very": true, "when": true, "much": true, "can": true,
	"would": true, "there": true, "could": true, "see": true, "him": true,
	"two": true, "more": true, "way": true, "may": true, "say": true,
	"come": true, "his": true, "been": true, "now": true, "find": true,
	"long": true, "down": true, "day": true, "did": true, "get": true,
	"made": true, "new": true, "also": true, "any": true, "after": true,
	"back": true, "well": true, "where": true, "just": true, "first": true,
	"over": true, "think": true, "than": true, "only": true, "work": true,
	"life": true, "into": true, "year": true, "state": true, "never": true,
	"become": true, "between": true, "high": true, "really": true,
	"something": true, "most": true, "another": true, "family": true,
	"own": true, "out": true, "leave": true, "put": true, "old": true,
	"while": true, "mean": true, "keep": true, "student": true, "why": true,
	"let": true, "great": true, "same": true, "big": true, "group": true,
	"begin": true, "seem": true, "country": true, "help": true, "talk": true,
	"turn": true, "ask": true, "show": true, "try": true, "during": true,
	"without": true, "again": true, "place": true, "right": true,
	"move": true, "too": true, "here": true, "off": true, "need": true,
	"give": true, "different": true, "away": true, "follow": true,
	"around": true, "three": true, "small": true, "set": true, "every": true,
	"large": true, "must": true, "before": true, "change": true,
	"does": true, "part": true,
}
