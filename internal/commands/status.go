package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/davidlary/openbooks/pkg/monitor"
	"github.com/davidlary/openbooks/pkg/searchindex"
)

// StatusAction prints a YAML snapshot of the collection, the search
// index and host resources.
func StatusAction(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	type inventorySection struct {
		Total        int            `yaml:"total"`
		Active       int            `yaml:"active"`
		Failed       int            `yaml:"failed"`
		SizeGB       float64        `yaml:"size_gb"`
		ByDiscipline map[string]int `yaml:"by_discipline,omitempty"`
		ByLevel      map[string]int `yaml:"by_level,omitempty"`
		Duplicates   int            `yaml:"duplicates"`
		Nested       int            `yaml:"nested"`
	}
	type indexSection struct {
		Books    int     `yaml:"books"`
		Chapters int     `yaml:"chapters"`
		Terms    int     `yaml:"unique_terms"`
		Formulas int     `yaml:"formulas"`
		SizeMB   float64 `yaml:"size_mb"`
	}
	type resourceSection struct {
		CPUPercent    float64 `yaml:"cpu_percent"`
		MemoryPercent float64 `yaml:"memory_percent"`
		DiskFreeGB    float64 `yaml:"disk_free_gb"`
		Healthy       bool    `yaml:"healthy"`
		Reason        string  `yaml:"reason"`
	}
	var out struct {
		Inventory inventorySection `yaml:"inventory"`
		Index     *indexSection    `yaml:"index,omitempty"`
		Resources resourceSection  `yaml:"resources"`
	}

	ts := d.tracker.Summary()
	out.Inventory = inventorySection{
		Total:        ts.Total,
		Active:       ts.Active,
		Failed:       ts.Failed,
		SizeGB:       ts.TotalSizeGB,
		ByDiscipline: ts.ByDiscipline,
		ByLevel:      ts.ByLevel,
		Duplicates:   ts.Duplicates,
		Nested:       ts.Nested,
	}

	dbPath := filepath.Join(d.cfg.SearchIndexDir, searchindex.DefaultDBName)
	if _, err := os.Stat(dbPath); err == nil {
		index, err := searchindex.Open(dbPath, d.logger)
		if err != nil {
			return err
		}
		is, err := index.Summary()
		index.Close()
		if err != nil {
			return err
		}
		out.Index = &indexSection{
			Books:    is.TotalBooks,
			Chapters: is.TotalChapters,
			Terms:    is.UniqueTerms,
			Formulas: is.TotalFormulas,
			SizeMB:   is.SizeMB,
		}
	}

	mon := monitor.New(d.cfg.BooksPath)
	sample := mon.Sample()
	healthy, reason := monitor.CheckStatus(sample)
	out.Resources = resourceSection{
		CPUPercent:    sample.CPUPercent,
		MemoryPercent: sample.MemoryPercent,
		DiskFreeGB:    sample.DiskFreeGB,
		Healthy:       healthy,
		Reason:        reason,
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
