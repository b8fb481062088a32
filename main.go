package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/davidlary/openbooks/internal/commands"
)

func main() {
	app := &cli.App{
		Name:  "openbooks",
		Usage: "discover, acquire and index open textbook collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to YAML configuration",
				Value: "config.yaml",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "find candidate textbooks via the hosting API and subject pages",
				Action: commands.DiscoverAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "orgs",
						Usage: "comma-separated organizations (default: trusted orgs from config)",
					},
					&cli.StringFlag{
						Name:  "queries",
						Usage: "comma-separated repository search queries",
					},
					&cli.StringFlag{
						Name:  "subjects",
						Usage: "comma-separated subjects to scrape for PDF downloads",
					},
				},
			},
			{
				Name:   "acquire",
				Usage:  "clone discovered books into the collection",
				Action: commands.AcquireAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "only acquire first-party publisher repositories",
					},
					&cli.BoolFlag{
						Name:  "update",
						Usage: "update tracked repositories instead of cloning new ones",
					},
				},
			},
			{
				Name:   "scan",
				Usage:  "register repositories found on disk but missing from the inventory",
				Action: commands.ScanAction,
			},
			{
				Name:   "cleanup",
				Usage:  "show duplicate and nested clones that could be cleaned up",
				Action: commands.CleanupAction,
			},
			{
				Name:   "index",
				Usage:  "extract and index content from the collection",
				Action: commands.IndexAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rebuild",
						Usage: "clear the index before indexing",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "search the index",
				ArgsUsage: "<query>",
				Action:    commands.SearchAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-results",
						Value: 50,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "search type: all, text, formula or title",
						Value: "all",
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "autocomplete suggestions for a query prefix",
				ArgsUsage: "<prefix>",
				Action:    commands.SuggestAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-results",
						Value: 10,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "show collection, index and resource status",
				Action: commands.StatusAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
