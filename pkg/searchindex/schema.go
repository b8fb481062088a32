package searchindex

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA busy_timeout = 5000;

-- Books: one row per indexed book, keyed by content hash
CREATE TABLE IF NOT EXISTS books (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    authors TEXT,                 -- JSON array
    source_path TEXT NOT NULL,
    format_type TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    indexed_at REAL NOT NULL      -- unix seconds
);

-- Chapters: ordered book content
CREATE TABLE IF NOT EXISTS chapters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    book_id TEXT NOT NULL,
    chapter_number TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    page_number INTEGER,
    FOREIGN KEY (book_id) REFERENCES books (id)
);

-- Terms: per-chapter term frequencies with scores frozen at index time
CREATE TABLE IF NOT EXISTS terms (
    term TEXT NOT NULL,
    book_id TEXT NOT NULL,
    chapter_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL,
    tf_idf REAL NOT NULL,
    PRIMARY KEY (term, book_id, chapter_id),
    FOREIGN KEY (book_id) REFERENCES books (id),
    FOREIGN KEY (chapter_id) REFERENCES chapters (id)
);

-- Formulas: mathematical notation with surrounding context
CREATE TABLE IF NOT EXISTS formulas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    book_id TEXT NOT NULL,
    content TEXT NOT NULL,
    formula_type TEXT,
    context TEXT,
    FOREIGN KEY (book_id) REFERENCES books (id)
);

CREATE INDEX IF NOT EXISTS idx_terms_term ON terms (term);
CREATE INDEX IF NOT EXISTS idx_terms_book ON terms (book_id);
CREATE INDEX IF NOT EXISTS idx_chapters_book ON chapters (book_id);
CREATE INDEX IF NOT EXISTS idx_formulas_book ON formulas (book_id);
`

const dropAll = `
DROP TABLE IF EXISTS terms;
DROP TABLE IF EXISTS formulas;
DROP TABLE IF EXISTS chapters;
DROP TABLE IF EXISTS books;
`
