package tracker

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestTracker(t *testing.T) (*Tracker, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "repository_inventory.json")
	tr, err := New(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return tr, path
}

// repoDir creates a real directory for a record; lookups re-validate the
// path on disk.
func repoDir(t *testing.T, elems ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{t.TempDir()}, elems...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestAddAndIsTracked(t *testing.T) {
	tr, _ := newTestTracker(t)

	rec := Record{
		CloneURL:  "https://github.com/openstax/osbooks-physics.git",
		LocalPath: repoDir(t, "english", "PhysicalSciences", "HighSchool", "osbooks-physics"),
	}
	if tr.IsTracked(rec.CloneURL, rec.LocalPath) {
		t.Fatal("IsTracked() = true before Add")
	}
	if err := tr.Add(rec); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	if !tr.IsTracked(rec.CloneURL, rec.LocalPath) {
		t.Error("IsTracked() = false for exact key")
	}
	// Same URL at a different path is still a duplicate.
	if !tr.IsTracked(rec.CloneURL, "/books/other/osbooks-physics") {
		t.Error("IsTracked() = false for same URL at different path")
	}
	if tr.IsTracked("https://github.com/openstax/osbooks-biology.git", "/books/x") {
		t.Error("IsTracked() = true for unrelated repository")
	}
}

func TestIsTrackedIgnoresFailedRecords(t *testing.T) {
	tr, _ := newTestTracker(t)

	rec := Record{
		CloneURL:  "https://github.com/openstax/osbooks-chemistry.git",
		LocalPath: repoDir(t, "osbooks-chemistry"),
		Status:    "failed",
	}
	if err := tr.Add(rec); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	// A failed clone must not block a retry.
	if tr.IsTracked(rec.CloneURL, rec.LocalPath) {
		t.Error("IsTracked() = true for failed record")
	}
}

func TestIsTrackedRevalidatesDisk(t *testing.T) {
	tr, _ := newTestTracker(t)

	dir := repoDir(t, "osbooks-astronomy")
	rec := Record{
		CloneURL:  "https://github.com/openstax/osbooks-astronomy.git",
		LocalPath: dir,
	}
	if err := tr.Add(rec); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !tr.IsTracked(rec.CloneURL, rec.LocalPath) {
		t.Fatal("IsTracked() = false while directory exists")
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	// A deleted directory must be re-cloned, not reported as tracked.
	if tr.IsTracked(rec.CloneURL, rec.LocalPath) {
		t.Error("IsTracked() = true after directory removal")
	}
}

func TestInventoryRoundTrip(t *testing.T) {
	tr, path := newTestTracker(t)

	rec := Record{
		CloneURL:     "https://github.com/openstax/osbooks-biology.git",
		LocalPath:    "/books/english/LifeSciences/University/osbooks-biology",
		Organization: "openstax",
		SizeMB:       42.5,
		Discipline:   "LifeSciences",
		Level:        "University",
	}
	if err := tr.Add(rec); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	reloaded, err := New(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	active := reloaded.ActiveRepositories()
	if len(active) != 1 {
		t.Fatalf("got %d active records after reload, want 1", len(active))
	}
	got := active[0]
	if got.CloneURL != rec.CloneURL || got.SizeMB != rec.SizeMB || got.Level != rec.Level {
		t.Errorf("reloaded record = %+v, want fields of %+v", got, rec)
	}
	if got.URLHash != URLHash(rec.CloneURL) {
		t.Errorf("URLHash = %q, want %q", got.URLHash, URLHash(rec.CloneURL))
	}
	if got.ClonedAt.IsZero() {
		t.Error("ClonedAt not populated on Add")
	}
}

func TestPlaceholderUpgrade(t *testing.T) {
	tr, _ := newTestTracker(t)

	path := repoDir(t, "english", "PhysicalSciences", "University", "college-physics")
	if err := tr.Add(Record{CloneURL: "file://" + path, LocalPath: path}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	realURL := "https://github.com/openstax/college-physics.git"
	if !tr.IsTracked(realURL, path) {
		t.Fatal("IsTracked() = false for placeholder path")
	}

	active := tr.ActiveRepositories()
	if len(active) != 1 {
		t.Fatalf("got %d records, want 1", len(active))
	}
	if active[0].CloneURL != realURL {
		t.Errorf("CloneURL = %q, want upgraded %q", active[0].CloneURL, realURL)
	}
	if active[0].URLHash != URLHash(realURL) {
		t.Error("URLHash not updated with placeholder upgrade")
	}
}

func TestFindDuplicates(t *testing.T) {
	tr, _ := newTestTracker(t)

	url := "https://github.com/openstax/osbooks-chemistry.git"
	older := Record{CloneURL: url, LocalPath: "/books/a/osbooks-chemistry"}
	newer := Record{CloneURL: url, LocalPath: "/books/b/osbooks-chemistry-copy"}
	if err := tr.Add(older); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := tr.Add(newer); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	groups := tr.FindDuplicates()
	if len(groups) != 1 {
		t.Fatalf("got %d duplicate groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Primary.LocalPath != older.LocalPath {
		t.Errorf("primary = %q, want earliest clone %q", g.Primary.LocalPath, older.LocalPath)
	}
	if len(g.Extras) != 1 || g.Extras[0].LocalPath != newer.LocalPath {
		t.Errorf("extras = %+v, want the later clone", g.Extras)
	}
}

func TestFindDuplicatesIgnoresInactive(t *testing.T) {
	tr, _ := newTestTracker(t)

	url := "https://github.com/openstax/osbooks-sociology.git"
	failed := Record{CloneURL: url, LocalPath: "/books/a/osbooks-sociology", Status: "failed"}
	active := Record{CloneURL: url, LocalPath: "/books/b/osbooks-sociology"}
	if err := tr.Add(failed); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := tr.Add(active); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	// The failed clone must not make the working copy look duplicated.
	if groups := tr.FindDuplicates(); len(groups) != 0 {
		t.Errorf("got %d duplicate groups, want 0: %+v", len(groups), groups)
	}

	st := tr.Summary()
	if st.Active != 1 || st.Failed != 1 {
		t.Errorf("Summary() active=%d failed=%d, want 1 and 1", st.Active, st.Failed)
	}
}

func TestFindNested(t *testing.T) {
	tr, _ := newTestTracker(t)

	root := t.TempDir()
	parent := filepath.Join(root, "osbooks-physics")
	child := filepath.Join(parent, "modules", "osbooks-physics-solutions")
	sibling := filepath.Join(root, "osbooks-biology")
	for _, dir := range []string{parent, child, sibling} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	for _, dir := range []string{parent, child, sibling} {
		if err := tr.Add(Record{CloneURL: "file://" + dir, LocalPath: dir}); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}

	pairs := tr.FindNested()
	if len(pairs) != 1 {
		t.Fatalf("got %d nested pairs, want 1: %+v", len(pairs), pairs)
	}
	if pairs[0].Parent != parent || pairs[0].Child != child {
		t.Errorf("nested pair = %+v, want parent=%q child=%q", pairs[0], parent, child)
	}
}

func TestScanRegistersRepos(t *testing.T) {
	tr, _ := newTestTracker(t)

	root := t.TempDir()
	repo := filepath.Join(root, "english", "PhysicalSciences", "University", "college-physics")
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "README.md"), []byte("# Physics"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Not a repository, must be ignored.
	if err := os.MkdirAll(filepath.Join(root, "english", "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	added, err := tr.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if added != 1 {
		t.Fatalf("Scan() added %d, want 1", added)
	}

	active := tr.ActiveRepositories()
	if len(active) != 1 {
		t.Fatalf("got %d records, want 1", len(active))
	}
	rec := active[0]
	if rec.CloneURL != "file://"+repo {
		t.Errorf("CloneURL = %q, want placeholder file://%s", rec.CloneURL, repo)
	}
	if rec.Language != "english" || rec.Discipline != "PhysicalSciences" || rec.Level != "University" {
		t.Errorf("path metadata = %q/%q/%q, want english/PhysicalSciences/University",
			rec.Language, rec.Discipline, rec.Level)
	}

	// Rescan is idempotent.
	added, err = tr.Scan(root)
	if err != nil {
		t.Fatalf("rescan error: %v", err)
	}
	if added != 0 {
		t.Errorf("rescan added %d, want 0", added)
	}
}

func TestUpdateStatusAndRemove(t *testing.T) {
	tr, _ := newTestTracker(t)

	rec := Record{
		CloneURL:  "https://github.com/openstax/osbooks-astronomy.git",
		LocalPath: "/books/osbooks-astronomy",
	}
	if err := tr.Add(rec); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := tr.UpdateStatus(rec.CloneURL, rec.LocalPath, "failed"); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if got := tr.ActiveRepositories(); len(got) != 0 {
		t.Errorf("failed record still active: %+v", got)
	}

	if err := tr.Remove(rec.CloneURL, rec.LocalPath); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if tr.Summary().Total != 0 {
		t.Error("record still present after Remove")
	}
}

func TestCleanupPlan(t *testing.T) {
	tr, _ := newTestTracker(t)

	url := "https://github.com/openstax/osbooks-statistics.git"
	if err := tr.Add(Record{CloneURL: url, LocalPath: "/books/a/osbooks-statistics", SizeMB: 100}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Add(Record{CloneURL: url, LocalPath: "/books/b/osbooks-statistics-dup", SizeMB: 120}); err != nil {
		t.Fatal(err)
	}

	actions, reclaimable := tr.CleanupPlan()
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Kind != "remove_duplicate" || actions[0].Path != "/books/b/osbooks-statistics-dup" {
		t.Errorf("action = %+v, want remove_duplicate of the later clone", actions[0])
	}
	if reclaimable != 120 {
		t.Errorf("reclaimable = %v MB, want 120", reclaimable)
	}
}
