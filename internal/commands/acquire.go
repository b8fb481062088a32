package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/davidlary/openbooks/pkg/acquire"
	"github.com/davidlary/openbooks/pkg/scheduler"
)

// AcquireAction clones the previously discovered books through the clone
// pool. With --update it instead syncs every tracked repository.
func AcquireAction(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	if c.Bool("update") {
		updated, skipped, failed := d.manager.UpdateAll(c.Context)
		fmt.Printf("Updated %d repositories (%d dirty skipped, %d failed)\n",
			updated, skipped, failed)
		return nil
	}

	books, err := loadDiscovered(d.cfg)
	if err != nil {
		return err
	}

	d.sched.Start()
	defer d.sched.Stop()

	tasks := make([]scheduler.Task, 0, len(books))
	for _, book := range books {
		tasks = append(tasks, newCloneTask(d.manager, book))
	}

	grouped, err := d.sched.SubmitBatch(c.Context, tasks)
	if err != nil {
		return fmt.Errorf("clone batch failed: %w", err)
	}

	cloned, rejected, failed := 0, 0, 0
	for _, res := range grouped[scheduler.KindClone] {
		switch {
		case res.Err == nil:
			cloned++
		case errors.Is(res.Err, acquire.ErrRejected):
			rejected++
		default:
			failed++
		}
	}

	stats := d.sched.Snapshot()
	fmt.Printf("Acquired %d of %d books (%d rejected, %d failed) in %s\n",
		cloned, len(books), rejected, failed, stats.TotalDuration.Round(time.Second))
	return nil
}
