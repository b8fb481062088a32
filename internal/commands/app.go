// Package commands holds the CLI actions. Each action wires the
// components it needs from config and runs one pipeline stage.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/acquire"
	"github.com/davidlary/openbooks/pkg/disciplines"
	"github.com/davidlary/openbooks/pkg/discovery"
	"github.com/davidlary/openbooks/pkg/gitcli"
	"github.com/davidlary/openbooks/pkg/githubapi"
	"github.com/davidlary/openbooks/pkg/langdetect"
	"github.com/davidlary/openbooks/pkg/monitor"
	"github.com/davidlary/openbooks/pkg/scheduler"
	"github.com/davidlary/openbooks/pkg/searchindex"
	"github.com/davidlary/openbooks/pkg/tracker"
)

const discoveredBooksFile = "discovered_books.json"

// newLogger builds the process logger. --quiet raises the level so only
// errors reach stderr.
func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("quiet") {
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// deps is the wired component set shared by the actions.
type deps struct {
	cfg     *models.Config
	logger  *slog.Logger
	tracker *tracker.Tracker
	engine  *discovery.Engine
	manager *acquire.Manager
	sched   *scheduler.Scheduler
}

func buildDeps(c *cli.Context) (*deps, error) {
	logger := newLogger(c)

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	tr, err := tracker.New(filepath.Join(cfg.MetadataPath, "repository_inventory.json"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository inventory: %w", err)
	}

	api := githubapi.NewClient(cfg.GitHubAPIBaseURL, cfg.UserAgent,
		cfg.RequestDelay(), cfg.RequestTimeout(), cfg.MaxRetries, logger)
	classifier := discovery.NewClassifier(cfg.Indicators)
	scraper := discovery.NewScraper(cfg.OpenStaxBaseURL, cfg.UserAgent,
		cfg.RequestDelay(), cfg.RequestTimeout(), logger)
	engine := discovery.NewEngine(api, classifier, scraper, logger)

	git := gitcli.NewRunner(cfg.CloneDepth, cfg.GitLFSEnabled)
	manager := acquire.NewManager(cfg, tr, git,
		langdetect.New(), disciplines.Classify, c.Bool("strict"), logger)

	mon := monitor.New(cfg.BooksPath)
	sched := scheduler.New(scheduler.PoolSizes{
		Discovery: cfg.Workers.Discovery,
		Clone:     cfg.Workers.Clone,
		Process:   cfg.Workers.Processing,
		IO:        cfg.Workers.IO,
	}, mon, cfg.TaskTimeout(), logger)

	return &deps{
		cfg:     cfg,
		logger:  logger,
		tracker: tr,
		engine:  engine,
		manager: manager,
		sched:   sched,
	}, nil
}

// openIndex opens the search index under the configured directory.
func openIndex(cfg *models.Config, logger *slog.Logger) (*searchindex.Index, error) {
	if err := os.MkdirAll(cfg.SearchIndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	return searchindex.Open(filepath.Join(cfg.SearchIndexDir, searchindex.DefaultDBName), logger)
}
