package commands

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/davidlary/openbooks/pkg/searchindex"
)

// SearchAction queries the search index and prints ranked results.
func SearchAction(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: search <query>")
	}

	d, err := buildDeps(c)
	if err != nil {
		return err
	}
	index, err := openIndex(d.cfg, d.logger)
	if err != nil {
		return err
	}
	defer index.Close()

	results, err := index.Search(query, c.Int("max-results"), searchindex.Mode(c.String("type")))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Printf("No results for %q\n", query)
		return nil
	}

	type row struct {
		Book      string  `yaml:"book"`
		Chapter   string  `yaml:"chapter,omitempty"`
		Snippet   string  `yaml:"snippet"`
		Relevance float64 `yaml:"relevance"`
		Match     string  `yaml:"match"`
		Source    string  `yaml:"source"`
	}
	rows := make([]row, len(results))
	for i, r := range results {
		chapter := r.ChapterTitle
		if r.ChapterNumber != "" {
			chapter = r.ChapterNumber + ". " + chapter
		}
		rows[i] = row{
			Book:      r.BookTitle,
			Chapter:   chapter,
			Snippet:   r.ContentSnippet,
			Relevance: r.Relevance,
			Match:     r.MatchType,
			Source:    r.SourcePath,
		}
	}

	data, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

// SuggestAction prints autocomplete suggestions for a prefix.
func SuggestAction(c *cli.Context) error {
	prefix := strings.TrimSpace(c.Args().First())
	if prefix == "" {
		return fmt.Errorf("usage: suggest <prefix>")
	}

	d, err := buildDeps(c)
	if err != nil {
		return err
	}
	index, err := openIndex(d.cfg, d.logger)
	if err != nil {
		return err
	}
	defer index.Close()

	suggestions, err := index.Suggest(prefix, c.Int("max-results"))
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}
	for _, s := range suggestions {
		fmt.Println(s)
	}
	return nil
}
