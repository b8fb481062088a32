package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/discovery"
	"github.com/davidlary/openbooks/pkg/scheduler"
)

// DiscoverAction runs the discovery strategies and saves the deduplicated
// candidate list for a later acquire run.
func DiscoverAction(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}
	d.sched.Start()
	defer d.sched.Stop()

	orgs := d.cfg.Indicators.TrustedOrganizations
	if c.IsSet("orgs") {
		orgs = splitList(c.String("orgs"))
	}

	var tasks []scheduler.Task
	for _, org := range orgs {
		tasks = append(tasks, newDiscoveryTask(d.engine, org))
	}
	for _, query := range splitList(c.String("queries")) {
		tasks = append(tasks, newSearchTask(d.engine, query))
	}

	grouped, err := d.sched.SubmitBatch(c.Context, tasks)
	if err != nil {
		return fmt.Errorf("discovery batch failed: %w", err)
	}

	var books []models.DiscoveredBook
	failures := 0
	for _, res := range grouped[scheduler.KindDiscovery] {
		if res.Err != nil {
			failures++
			continue
		}
		if found, ok := res.Value.([]models.DiscoveredBook); ok {
			books = append(books, found...)
		}
	}

	if subjects := splitList(c.String("subjects")); len(subjects) > 0 {
		books = append(books, d.engine.ScrapeSubjectPages(c.Context, subjects)...)
	}

	books = discovery.Deduplicate(books)

	if err := saveDiscovered(d.cfg, books); err != nil {
		return err
	}

	stats := d.sched.Snapshot()
	fmt.Printf("Discovered %d candidate books (%d sources failed, %.1f tasks/sec)\n",
		len(books), failures, stats.TasksPerSec)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func saveDiscovered(cfg *models.Config, books []models.DiscoveredBook) error {
	if err := os.MkdirAll(cfg.MetadataPath, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode discovered books: %w", err)
	}
	path := filepath.Join(cfg.MetadataPath, discoveredBooksFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save discovered books: %w", err)
	}
	return nil
}

func loadDiscovered(cfg *models.Config) ([]models.DiscoveredBook, error) {
	path := filepath.Join(cfg.MetadataPath, discoveredBooksFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no discovered books at %s, run discover first", path)
		}
		return nil, fmt.Errorf("failed to read discovered books: %w", err)
	}
	var books []models.DiscoveredBook
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("failed to parse discovered books: %w", err)
	}
	return books, nil
}
