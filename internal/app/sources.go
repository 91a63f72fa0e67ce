package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"khobor.news/khobor/internal/cli"
	"khobor.news/khobor/internal/sources"
)

// sourceRow is the JSON read model of the sources command.
type sourceRow struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	RSSFeeds int    `json:"rss_feeds_count"`
}

// runSources lists the configured source registry. The registry comes
// from a YAML file or the embedded default, so no database is needed.
func runSources(args []string) int {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	sourcesFile := fs.String("sources", "", "Path to a sources YAML file (default: $SOURCES_FILE or embedded)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "sources does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	path := strings.TrimSpace(*sourcesFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SOURCES_FILE"))
	}

	registry, err := sources.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sources: %v\n", err)
		return 1
	}

	rows := make([]sourceRow, 0, registry.Len())
	for _, source := range registry.All() {
		rows = append(rows, sourceRow{
			Key:      source.Key,
			Name:     source.Name,
			BaseURL:  source.BaseURL,
			RSSFeeds: len(source.Feeds),
		})
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			row.Key,
			row.Name,
			row.BaseURL,
			fmt.Sprintf("%d", row.RSSFeeds),
		})
	}

	if err := writeTable([]string{"key", "name", "base_url", "rss_feeds"}, tableRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	return 0
}
