package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"khobor.news/khobor/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.QueryIngestStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query ingest stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	totalsRows := [][]string{
		{"raw_articles", fmt.Sprintf("%d", stats.Totals.RawArticles)},
		{"articles", fmt.Sprintf("%d", stats.Totals.Articles)},
		{"geolocated", fmt.Sprintf("%d", stats.Totals.Geolocated)},
		{"oldest_published_at", formatUTCTimestampPtr(stats.OldestPublishedAt)},
		{"newest_published_at", formatUTCTimestampPtr(stats.NewestPublishedAt)},
	}
	if err := writeTable([]string{"metric", "value"}, totalsRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render totals table: %v\n", err)
		return 1
	}

	fmt.Println()
	sourceRows := make([][]string, 0, len(stats.Sources)+1)
	for _, row := range stats.Sources {
		sourceRows = append(sourceRows, []string{
			row.Source,
			fmt.Sprintf("%d", row.Articles),
			formatUTCTimestampPtr(row.LatestScrapedAt),
		})
	}
	sourceRows = append(sourceRows, []string{
		"TOTAL",
		fmt.Sprintf("%d", stats.Totals.Articles),
		"",
	})
	if err := writeTable([]string{"source", "articles", "latest_scraped_at"}, sourceRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render source table: %v\n", err)
		return 1
	}

	fmt.Println()
	categoryRows := make([][]string, 0, len(stats.Categories))
	for _, row := range stats.Categories {
		categoryRows = append(categoryRows, []string{
			row.Category,
			fmt.Sprintf("%d", row.Articles),
		})
	}
	if err := writeTable([]string{"category", "articles"}, categoryRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render category table: %v\n", err)
		return 1
	}

	return 0
}
