package commands

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/scheduler"
)

// IndexAction extracts content from every active repository on the
// process pool, then writes each book into the search index through the
// io pool. With --rebuild the index is cleared first.
func IndexAction(c *cli.Context) error {
	d, err := buildDeps(c)
	if err != nil {
		return err
	}

	index, err := openIndex(d.cfg, d.logger)
	if err != nil {
		return err
	}
	defer index.Close()

	if c.Bool("rebuild") {
		if err := index.Rebuild(); err != nil {
			return err
		}
	}

	d.sched.Start()
	defer d.sched.Stop()

	var extractTasks []scheduler.Task
	for _, rec := range d.tracker.ActiveRepositories() {
		if _, err := os.Stat(rec.LocalPath); err != nil {
			continue
		}
		extractTasks = append(extractTasks, newProcessTask(rec.LocalPath, rec.RepoName, rec.Language))
	}
	if len(extractTasks) == 0 {
		return fmt.Errorf("no repositories to index under %s", d.cfg.BooksPath)
	}

	grouped, err := d.sched.SubmitBatch(c.Context, extractTasks)
	if err != nil {
		return fmt.Errorf("extraction batch failed: %w", err)
	}

	var indexTasks []scheduler.Task
	extractFailures := 0
	for _, res := range grouped[scheduler.KindProcess] {
		if res.Err != nil {
			extractFailures++
			continue
		}
		content, ok := res.Value.(models.ExtractedContent)
		if !ok || len(content.Chapters) == 0 {
			continue
		}
		indexTasks = append(indexTasks, newIndexTask(index, content))
	}

	grouped, err = d.sched.SubmitBatch(c.Context, indexTasks)
	if err != nil {
		return fmt.Errorf("index batch failed: %w", err)
	}
	indexed, indexFailures := 0, 0
	for _, res := range grouped[scheduler.KindIO] {
		if res.Err != nil {
			indexFailures++
		} else {
			indexed++
		}
	}

	st, err := index.Summary()
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d books (%d extraction failures, %d index failures)\n",
		indexed, extractFailures, indexFailures)
	fmt.Printf("Index now holds %d books, %d chapters, %d unique terms, %d formulas\n",
		st.TotalBooks, st.TotalChapters, st.UniqueTerms, st.TotalFormulas)
	return nil
}
