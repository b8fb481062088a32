package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// ScanAction reconciles the inventory with the filesystem, registering
// repositories that exist on disk but are not yet tracked.
func ScanAction(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}
	added, err := d.tracker.Scan(d.cfg.BooksPath)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	fmt.Printf("Scan complete, %d repositories added to inventory\n", added)
	return nil
}

// CleanupAction prints the cleanup plan: duplicate clones to remove and
// nested clones to relocate. It never deletes anything itself.
func CleanupAction(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	actions, reclaimableMB := d.tracker.CleanupPlan()
	if len(actions) == 0 {
		fmt.Println("Inventory is clean, nothing to do")
		return nil
	}

	out := struct {
		Actions       any     `yaml:"actions"`
		ReclaimableMB float64 `yaml:"reclaimable_mb"`
	}{actions, reclaimableMB}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup plan: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
