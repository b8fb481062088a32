package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/acquire"
	"github.com/davidlary/openbooks/pkg/discovery"
	"github.com/davidlary/openbooks/pkg/scheduler"
	"github.com/davidlary/openbooks/pkg/searchindex"
)

// discoveryTask lists one organization's textbook candidates.
type discoveryTask struct {
	scheduler.Base
	engine *discovery.Engine
	org    string
}

func newDiscoveryTask(engine *discovery.Engine, org string) *discoveryTask {
	return &discoveryTask{
		Base:   scheduler.NewBase("discover-"+org, scheduler.KindDiscovery, 1),
		engine: engine,
		org:    org,
	}
}

func (t *discoveryTask) Execute(ctx context.Context) (any, error) {
	return t.engine.DiscoverOrganization(ctx, t.org)
}

// searchTask runs one repository search query.
type searchTask struct {
	scheduler.Base
	engine *discovery.Engine
	query  string
}

func newSearchTask(engine *discovery.Engine, query string) *searchTask {
	return &searchTask{
		Base:   scheduler.NewBase("search-"+query, scheduler.KindDiscovery, 2),
		engine: engine,
		query:  query,
	}
}

func (t *searchTask) Execute(ctx context.Context) (any, error) {
	return t.engine.SearchRepositories(ctx, t.query)
}

// cloneTask acquires one discovered book. Physics gets priority over the
// other disciplines when a batch is larger than the clone pool.
type cloneTask struct {
	scheduler.Base
	manager *acquire.Manager
	book    models.DiscoveredBook
}

func newCloneTask(manager *acquire.Manager, book models.DiscoveredBook) *cloneTask {
	priority := 2
	if strings.EqualFold(book.Subject, "physics") {
		priority = 1
	}
	return &cloneTask{
		Base:    scheduler.NewBase("clone-"+book.Identity(), scheduler.KindClone, priority),
		manager: manager,
		book:    book,
	}
}

func (t *cloneTask) Execute(ctx context.Context) (any, error) {
	return t.manager.Clone(ctx, t.book)
}

// processTask extracts indexable content from one cloned repository.
type processTask struct {
	scheduler.Base
	repoPath string
	title    string
	language string
}

func newProcessTask(repoPath, title, language string) *processTask {
	return &processTask{
		Base:     scheduler.NewBase("process-"+repoPath, scheduler.KindProcess, 3),
		repoPath: repoPath,
		title:    title,
		language: language,
	}
}

func (t *processTask) Execute(ctx context.Context) (any, error) {
	content, err := extractContent(ctx, t.repoPath, t.title, t.language)
	if err != nil {
		return nil, fmt.Errorf("extraction failed for %s: %w", t.repoPath, err)
	}
	return content, nil
}

// indexTask writes one book's extracted content into the search index.
type indexTask struct {
	scheduler.Base
	index   *searchindex.Index
	content models.ExtractedContent
}

func newIndexTask(index *searchindex.Index, content models.ExtractedContent) *indexTask {
	return &indexTask{
		Base:    scheduler.NewBase("index-"+content.ContentHash, scheduler.KindIO, 3),
		index:   index,
		content: content,
	}
}

func (t *indexTask) Execute(_ context.Context) (any, error) {
	return nil, t.index.IndexBook(t.content)
}
