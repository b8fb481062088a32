// Package tracker maintains the repository inventory: a single JSON
// document recording every cloned repository, keyed by a short hash of
// its clone URL and directory name. The inventory is the source of truth
// for idempotent acquisition and for duplicate/nested cleanup.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Record is one tracked repository.
type Record struct {
	CloneURL     string    `json:"clone_url"`
	URLHash      string    `json:"url_hash"`
	LocalPath    string    `json:"local_path"`
	RepoName     string    `json:"repo_name"`
	Organization string    `json:"organization"`
	ClonedAt     time.Time `json:"cloned_at"`
	LastUpdated  time.Time `json:"last_updated"`
	SizeMB       float64   `json:"size_mb"`
	Status       string    `json:"status"`
	Language     string    `json:"language,omitempty"`
	Discipline   string    `json:"discipline,omitempty"`
	Level        string    `json:"level,omitempty"`
}

type inventory struct {
	LastUpdated       time.Time          `json:"last_updated"`
	TotalRepositories int                `json:"total_repositories"`
	Repositories      map[string]*Record `json:"repositories"`
}

// Tracker owns the inventory file. Every mutation rewrites the whole
// document atomically (temp file then rename) under one mutex.
type Tracker struct {
	mu     sync.Mutex
	path   string
	inv    inventory
	logger *slog.Logger
}

// New loads the inventory at path, creating an empty one if the file does
// not exist yet.
func New(path string, logger *slog.Logger) (*Tracker, error) {
	t := &Tracker{
		path:   path,
		inv:    inventory{Repositories: map[string]*Record{}},
		logger: logger,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	if err := json.Unmarshal(data, &t.inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}
	if t.inv.Repositories == nil {
		t.inv.Repositories = map[string]*Record{}
	}
	return t, nil
}

// RecordKey derives the inventory key: the first 16 hex characters of the
// SHA-256 of "cloneURL:dirname". Two clones of the same URL into
// different directories get distinct keys.
func RecordKey(cloneURL, localPath string) string {
	sum := sha256.Sum256([]byte(cloneURL + ":" + filepath.Base(localPath)))
	return hex.EncodeToString(sum[:])[:16]
}

// URLHash is the full SHA-256 hex digest of the clone URL, used for
// URL-level duplicate detection independent of directory placement.
func URLHash(cloneURL string) string {
	sum := sha256.Sum256([]byte(cloneURL))
	return hex.EncodeToString(sum[:])
}

// save persists the inventory. Callers must hold t.mu.
func (t *Tracker) save() error {
	t.inv.LastUpdated = time.Now().UTC()
	t.inv.TotalRepositories = len(t.inv.Repositories)

	data, err := json.MarshalIndent(&t.inv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".inventory-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp inventory: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp inventory: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace inventory: %w", err)
	}
	return nil
}

// IsTracked reports whether a repository is already in the inventory. It
// matches on record key, URL hash or local path, considering only active
// records whose directory still exists on disk, so failed clones and
// removed directories are retried rather than short-circuited. When a
// path match holds a file:// placeholder URL (from a filesystem scan)
// and the caller supplies the real clone URL, the record is upgraded in
// place.
func (t *Tracker) IsTracked(cloneURL, localPath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.inv.Repositories[RecordKey(cloneURL, localPath)]; ok {
		if rec.Status == "active" && dirExists(rec.LocalPath) {
			return true
		}
	}

	hash := URLHash(cloneURL)
	for key, rec := range t.inv.Repositories {
		if rec.Status != "active" || !dirExists(rec.LocalPath) {
			continue
		}
		if rec.URLHash == hash {
			return true
		}
		if rec.LocalPath != localPath {
			continue
		}
		if strings.HasPrefix(rec.CloneURL, "file://") && !strings.HasPrefix(cloneURL, "file://") {
			delete(t.inv.Repositories, key)
			rec.CloneURL = cloneURL
			rec.URLHash = hash
			rec.LastUpdated = time.Now().UTC()
			t.inv.Repositories[RecordKey(cloneURL, localPath)] = rec
			if err := t.save(); err != nil {
				t.logger.Warn("failed to persist placeholder upgrade", "path", localPath, "error", err)
			}
		}
		return true
	}
	return false
}

// Add registers a repository and persists immediately.
func (t *Tracker) Add(rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	if rec.ClonedAt.IsZero() {
		rec.ClonedAt = now
	}
	rec.LastUpdated = now
	rec.URLHash = URLHash(rec.CloneURL)
	if rec.RepoName == "" {
		rec.RepoName = filepath.Base(rec.LocalPath)
	}
	if rec.Status == "" {
		rec.Status = "active"
	}
	t.inv.Repositories[RecordKey(rec.CloneURL, rec.LocalPath)] = &rec
	return t.save()
}

// UpdateStatus changes a repository's status and persists.
func (t *Tracker) UpdateStatus(cloneURL, localPath, status string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.inv.Repositories[RecordKey(cloneURL, localPath)]
	if !ok {
		return fmt.Errorf("repository not tracked: %s", localPath)
	}
	rec.Status = status
	rec.LastUpdated = time.Now().UTC()
	return t.save()
}

// Remove deletes a repository record and persists.
func (t *Tracker) Remove(cloneURL, localPath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := RecordKey(cloneURL, localPath)
	if _, ok := t.inv.Repositories[key]; !ok {
		return fmt.Errorf("repository not tracked: %s", localPath)
	}
	delete(t.inv.Repositories, key)
	return t.save()
}

// DuplicateGroup is a set of records sharing one clone URL. Primary is
// the earliest clone; Extras are candidates for removal.
type DuplicateGroup struct {
	CloneURL string
	Primary  Record
	Extras   []Record
}

// FindDuplicates groups active records by URL hash and returns every
// group with more than one member. The earliest ClonedAt is the primary;
// ties break on local path for determinism.
func (t *Tracker) FindDuplicates() []DuplicateGroup {
	t.mu.Lock()
	defer t.mu.Unlock()

	byHash := map[string][]Record{}
	for _, rec := range t.inv.Repositories {
		if rec.Status != "active" {
			continue
		}
		byHash[rec.URLHash] = append(byHash[rec.URLHash], *rec)
	}

	var groups []DuplicateGroup
	for _, recs := range byHash {
		if len(recs) < 2 {
			continue
		}
		sort.Slice(recs, func(i, j int) bool {
			if !recs[i].ClonedAt.Equal(recs[j].ClonedAt) {
				return recs[i].ClonedAt.Before(recs[j].ClonedAt)
			}
			return recs[i].LocalPath < recs[j].LocalPath
		})
		groups = append(groups, DuplicateGroup{
			CloneURL: recs[0].CloneURL,
			Primary:  recs[0],
			Extras:   recs[1:],
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CloneURL < groups[j].CloneURL })
	return groups
}

// NestedPair records a repository cloned inside another one.
type NestedPair struct {
	Parent string
	Child  string
}

// FindNested reports active repositories whose local path lies strictly
// inside another active repository's path. Both directories must still
// exist on disk; stale records do not produce cleanup actions.
func (t *Tracker) FindNested() []NestedPair {
	t.mu.Lock()
	paths := make([]string, 0, len(t.inv.Repositories))
	for _, rec := range t.inv.Repositories {
		if rec.Status != "active" {
			continue
		}
		paths = append(paths, rec.LocalPath)
	}
	t.mu.Unlock()

	sort.Slice(paths, func(i, j int) bool { return len(paths[i]) < len(paths[j]) })

	var pairs []NestedPair
	for i, parent := range paths {
		for _, child := range paths[i+1:] {
			if child == parent || !strings.HasPrefix(child, parent+string(filepath.Separator)) {
				continue
			}
			if !dirExists(parent) || !dirExists(child) {
				continue
			}
			pairs = append(pairs, NestedPair{Parent: parent, Child: child})
		}
	}
	return pairs
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Scan walks booksRoot for git repositories and registers any that are
// not yet tracked, using a file:// placeholder URL until the real clone
// URL is learned. Directory sizing runs concurrently. Returns the number
// of newly registered repositories.
func (t *Tracker) Scan(booksRoot string) (int, error) {
	var repoDirs []string
	err := filepath.WalkDir(booksRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			t.logger.Warn("scan skipping path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			repoDirs = append(repoDirs, filepath.Dir(path))
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan walk failed: %w", err)
	}

	sizes := make([]float64, len(repoDirs))
	var g errgroup.Group
	g.SetLimit(8)
	for i, dir := range repoDirs {
		i, dir := i, dir
		g.Go(func() error {
			sizes[i] = dirSizeMB(dir)
			return nil
		})
	}
	g.Wait()

	added := 0
	for i, dir := range repoDirs {
		placeholder := "file://" + dir
		if t.IsTracked(placeholder, dir) {
			continue
		}
		rec := Record{
			CloneURL:  placeholder,
			LocalPath: dir,
			RepoName:  filepath.Base(dir),
			SizeMB:    sizes[i],
			Status:    "active",
		}
		rec.Language, rec.Discipline, rec.Level = pathMetadata(booksRoot, dir)
		if err := t.Add(rec); err != nil {
			return added, err
		}
		added++
	}
	t.logger.Info("inventory scan complete", "found", len(repoDirs), "added", added)
	return added, nil
}

// pathMetadata recovers language/discipline/level from the standard
// Books/{language}/{discipline}/{level}/{repo} layout when present.
func pathMetadata(root, dir string) (language, discipline, level string) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", "", ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) >= 4 {
		return parts[0], parts[1], parts[2]
	}
	return "", "", ""
}

func dirSizeMB(dir string) float64 {
	var bytes int64
	filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			bytes += info.Size()
		}
		return nil
	})
	return float64(bytes) / (1 << 20)
}

// Stats summarizes the inventory.
type Stats struct {
	Total        int
	Active       int
	Failed       int
	TotalSizeMB  float64
	TotalSizeGB  float64
	ByDiscipline map[string]int
	ByLevel      map[string]int
	Duplicates   int
	Nested       int
}

// Summary computes inventory statistics.
func (t *Tracker) Summary() Stats {
	t.mu.Lock()
	st := Stats{
		ByDiscipline: map[string]int{},
		ByLevel:      map[string]int{},
	}
	for _, rec := range t.inv.Repositories {
		st.Total++
		switch rec.Status {
		case "failed":
			st.Failed++
		case "active":
			st.Active++
		}
		st.TotalSizeMB += rec.SizeMB
		if rec.Discipline != "" {
			st.ByDiscipline[rec.Discipline]++
		}
		if rec.Level != "" {
			st.ByLevel[rec.Level]++
		}
	}
	st.TotalSizeGB = st.TotalSizeMB / 1024
	t.mu.Unlock()

	for _, g := range t.FindDuplicates() {
		st.Duplicates += len(g.Extras)
	}
	st.Nested = len(t.FindNested())
	return st
}

// CleanupAction is one step of a cleanup plan.
type CleanupAction struct {
	Kind   string // "remove_duplicate" or "move_nested"
	Path   string
	Target string // parent path for move_nested
	SizeMB float64
}

// CleanupPlan lists the actions that would reclaim space: removing extra
// copies of duplicated URLs and surfacing nested clones. It only plans;
// execution is left to the caller.
func (t *Tracker) CleanupPlan() ([]CleanupAction, float64) {
	var actions []CleanupAction
	var reclaimable float64

	for _, group := range t.FindDuplicates() {
		for _, extra := range group.Extras {
			actions = append(actions, CleanupAction{
				Kind:   "remove_duplicate",
				Path:   extra.LocalPath,
				SizeMB: extra.SizeMB,
			})
			reclaimable += extra.SizeMB
		}
	}
	for _, pair := range t.FindNested() {
		actions = append(actions, CleanupAction{
			Kind:   "move_nested",
			Path:   pair.Child,
			Target: pair.Parent,
		})
	}
	return actions, reclaimable
}

// ActiveRepositories returns copies of every active record.
func (t *Tracker) ActiveRepositories() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var recs []Record
	for _, rec := range t.inv.Repositories {
		if rec.Status == "active" {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].LocalPath < recs[j].LocalPath })
	return recs
}
