package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/kidandcat/homepagetests/pkg/browser"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/kidandcat/homepagetests/pkg/homepage"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Append the title of every page linked from the home page to a file",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringP("output", "o", "", "Titles file, appended to (default from config, titles.txt)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("output") {
		cfg.TitlesFile, _ = cmd.Flags().GetString("output")
	}

	rows, err := fixture.Load(cfg.Fixture)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	provider, err := newProvider()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var errs []error
	for _, row := range fixture.Distinct(rows) {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		report, err := scrapeRow(ctx, provider, row)
		fmt.Printf("%s: %d anchors, %d titles, %d skipped\n",
			row.HomePageButtonName, report.Anchors, len(report.Titles), report.Skipped)
		if err != nil {
			color.Red("  Error: %v", err)
			errs = append(errs, fmt.Errorf("%s: %w", row.HomePageButtonName, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	color.Green("Titles appended to %s", cfg.TitlesFile)
	return nil
}

func scrapeRow(ctx context.Context, provider *browser.Provider, row fixture.Row) (homepage.ScrapeReport, error) {
	session, err := provider.Open(ctx)
	if err != nil {
		return homepage.ScrapeReport{}, fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, cfg.BaseURL); err != nil {
		return homepage.ScrapeReport{}, fmt.Errorf("open home page: %w", err)
	}

	log := logger.With().Str("row", row.Name()).Logger()
	return homepage.NewScraper(session, timeouts(), log).ScrapeToFile(ctx, row, cfg.TitlesFile)
}
