package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/pricelens/backend/cmd/pricelens/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "pricelens",
		Usage: "Search and rank product listings across retailers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the configured sources and print ranked listings",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "country",
						Usage: "Country code (defaults to search.default_country)",
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of listings to print",
						Value: 20,
					},
					&cli.FloatFlag{
						Name:  "min-relevance",
						Usage: "Relevance floor in [0, 1] (defaults to search.min_relevance)",
						Value: -1,
					},
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Also print the per-source dispatch report",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:   "countries",
				Usage:  "List searchable countries and their sources",
				Action: commands.CountriesAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
