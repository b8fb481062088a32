// Package acquire turns discovered candidates into tracked local clones.
// It owns placement (directory layout), idempotence (via the tracker) and
// the clone/update subprocess lifecycle.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/tracker"
)

// Clone gets a long leash; LFS checkouts of image-heavy books are slow.
// Update operations should be quick or are not worth waiting for.
const (
	cloneTimeout  = 15 * time.Minute
	updateTimeout = 2 * time.Minute
)

// ErrDirtyWorktree is returned by Update when local modifications would
// be clobbered by a pull. The repository is skipped, never reset.
var ErrDirtyWorktree = errors.New("worktree has local modifications")

// ErrRejected is returned by Clone when validation refuses a candidate.
var ErrRejected = errors.New("candidate rejected by validation")

// LanguageDetector resolves a repository's natural language.
type LanguageDetector interface {
	Detect(repoPath, repoName string) string
}

// GitClient is the subprocess surface the manager drives. gitcli.Runner
// implements it.
type GitClient interface {
	Clone(ctx context.Context, url, path string) error
	Fetch(ctx context.Context, path string) error
	Pull(ctx context.Context, path string) error
	StatusPorcelain(ctx context.Context, path string) (string, error)
	RevListBehind(ctx context.Context, path string) (int, error)
	LFSAvailable() bool
	LFSInstall(ctx context.Context, path string) error
	LFSPull(ctx context.Context, path string) error
}

// SubjectClassifier maps subject text to a top-level discipline, or ""
// when unknown.
type SubjectClassifier func(text string) string

// Manager acquires and updates repositories.
type Manager struct {
	cfg      *models.Config
	tracker  *tracker.Tracker
	git      GitClient
	detector LanguageDetector
	classify SubjectClassifier
	strict   bool
	logger   *slog.Logger
}

// NewManager wires an acquisition manager. strict limits acquisition to
// first-party publisher repositories.
func NewManager(cfg *models.Config, tr *tracker.Tracker, git GitClient,
	detector LanguageDetector, classify SubjectClassifier, strict bool, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		tracker:  tr,
		git:      git,
		detector: detector,
		classify: classify,
		strict:   strict,
		logger:   logger,
	}
}

// TargetPath computes where a book belongs:
// Books/{language}/{concept}/{level}/{repo}. Unknown concepts land in
// Uncategorized, unknown levels in University.
func (m *Manager) TargetPath(book models.DiscoveredBook) string {
	language := m.detector.Detect("", book.RepoName)

	concept := m.classify(book.Subject + " " + book.RepoName + " " + book.Description)
	if concept == "" {
		concept = "Uncategorized"
	}

	level := book.LevelHint
	if level == "" || level == models.LevelUnknown {
		level = models.LevelUniversity
	}

	return filepath.Join(m.cfg.BooksPath, language, concept, string(level), book.RepoName)
}

// Clone validates, places and clones one candidate. Already-tracked
// repositories short-circuit with their existing path. On failure the
// partial clone is removed and the candidate is recorded as failed so it
// is not retried forever.
func (m *Manager) Clone(ctx context.Context, book models.DiscoveredBook) (string, error) {
	if book.Format == models.FormatPDF {
		return "", fmt.Errorf("%w: direct downloads are not acquired over git", ErrRejected)
	}
	if ok, reason := Validate(book.RepoName, book.Description, book.CloneURL, m.strict); !ok {
		m.logger.Info("candidate rejected", "repo", book.Identity(), "reason", reason)
		return "", fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	target := m.TargetPath(book)
	if m.tracker.IsTracked(book.CloneURL, target) {
		m.logger.Debug("already tracked", "repo", book.Identity(), "path", target)
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create target dir: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	m.logger.Info("cloning", "repo", book.Identity(), "url", book.CloneURL, "path", target)
	if err := m.git.Clone(cloneCtx, book.CloneURL, target); err != nil {
		os.RemoveAll(target)
		if recErr := m.tracker.Add(tracker.Record{
			CloneURL:  book.CloneURL,
			LocalPath: target,
			RepoName:  book.RepoName,
			Status:    "failed",
		}); recErr != nil {
			m.logger.Warn("failed to record failed clone", "repo", book.Identity(), "error", recErr)
		}
		return "", fmt.Errorf("clone of %s failed: %w", book.Identity(), err)
	}

	rec := tracker.Record{
		CloneURL:     book.CloneURL,
		LocalPath:    target,
		RepoName:     book.RepoName,
		Organization: book.Org,
		SizeMB:       float64(book.SizeKB) / 1024,
		Status:       "active",
		Language:     m.detector.Detect(target, book.RepoName),
		Discipline:   m.classify(book.Subject + " " + book.RepoName),
		Level:        string(book.LevelHint),
	}
	if err := m.tracker.Add(rec); err != nil {
		return "", fmt.Errorf("failed to track %s: %w", book.Identity(), err)
	}

	m.fetchLFS(ctx, target)
	return target, nil
}

// fetchLFS pulls LFS objects when enabled. Failures only log; the clone
// itself is complete and usable without the binary assets.
func (m *Manager) fetchLFS(ctx context.Context, path string) {
	if !m.cfg.GitLFSEnabled || !m.git.LFSAvailable() {
		return
	}
	lfsCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	if err := m.git.LFSInstall(lfsCtx, path); err != nil {
		m.logger.Warn("lfs install failed", "path", path, "error", err)
		return
	}
	if err := m.git.LFSPull(lfsCtx, path); err != nil {
		m.logger.Warn("lfs pull failed", "path", path, "error", err)
	}
}

// Update brings one tracked repository up to date with its remote. A
// dirty worktree returns ErrDirtyWorktree; a repository already at the
// remote head is a no-op. Each subprocess gets its own timeout so a slow
// fetch does not starve the pull.
func (m *Manager) Update(ctx context.Context, rec tracker.Record) error {
	statusCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	status, err := m.git.StatusPorcelain(statusCtx, rec.LocalPath)
	cancel()
	if err != nil {
		return fmt.Errorf("status check failed for %s: %w", rec.LocalPath, err)
	}
	if status != "" {
		return fmt.Errorf("%w: %s", ErrDirtyWorktree, rec.LocalPath)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	err = m.git.Fetch(fetchCtx, rec.LocalPath)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch failed for %s: %w", rec.LocalPath, err)
	}

	behindCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	behind, err := m.git.RevListBehind(behindCtx, rec.LocalPath)
	cancel()
	if err != nil {
		return fmt.Errorf("behind count failed for %s: %w", rec.LocalPath, err)
	}
	if behind == 0 {
		return nil
	}

	m.logger.Info("updating", "path", rec.LocalPath, "behind", behind)
	pullCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	err = m.git.Pull(pullCtx, rec.LocalPath)
	cancel()
	if err != nil {
		return fmt.Errorf("pull failed for %s: %w", rec.LocalPath, err)
	}
	return nil
}

// UpdateAll walks every active repository and updates it, counting
// skipped (dirty) and failed repositories without aborting the sweep.
func (m *Manager) UpdateAll(ctx context.Context) (updated, skipped, failed int) {
	for _, rec := range m.tracker.ActiveRepositories() {
		if ctx.Err() != nil {
			return
		}
		if !gitDirExists(rec.LocalPath) {
			continue
		}
		switch err := m.Update(ctx, rec); {
		case err == nil:
			updated++
		case errors.Is(err, ErrDirtyWorktree):
			m.logger.Warn("skipping dirty worktree", "path", rec.LocalPath)
			skipped++
		default:
			m.logger.Warn("update failed", "path", rec.LocalPath, "error", err)
			failed++
		}
	}
	return
}

func gitDirExists(repoPath string) bool {
	info, err := os.Stat(filepath.Join(repoPath, ".git"))
	if err != nil {
		return false
	}
	// .git can be a file in worktrees; either form counts.
	return info.IsDir() || info.Mode().IsRegular()
}
