// Package app implements the khobor command line interface. Every
// command parses its own flag set, loads configuration from the
// environment, and returns a process exit code: 0 on success, 1 on
// operational failure, 2 on usage errors.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "scrape":
		return runScrape(args[1:])
	case "dedup":
		return runDedup(args[1:])
	case "compact":
		return runCompact(args[1:])
	case "process", "run-once":
		return runProcess(args[1:])
	case "articles":
		return runArticles(args[1:])
	case "sources":
		return runSources(args[1:])
	case "stats":
		return runStats(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "hash-token":
		return runHashToken(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "khobor CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  khobor <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  scrape     Scrape configured sources into the raw store")
	fmt.Fprintln(os.Stderr, "  dedup      Fold raw articles into the deduplicated store")
	fmt.Fprintln(os.Stderr, "  compact    Remove residual same-URL duplicates")
	fmt.Fprintln(os.Stderr, "  process    Run scrape, dedup, and compact in sequence")
	fmt.Fprintln(os.Stderr, "  run-once   Alias for process")
	fmt.Fprintln(os.Stderr, "  articles   List deduplicated articles")
	fmt.Fprintln(os.Stderr, "  sources    List configured news sources")
	fmt.Fprintln(os.Stderr, "  stats      Show ingest totals per source and category")
	fmt.Fprintln(os.Stderr, "  validate   Validate article JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP API server")
	fmt.Fprintln(os.Stderr, "  hash-token  Print the bcrypt hash of an admin API token")
	fmt.Fprintln(os.Stderr, "  daemon     Manage the systemd service")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"khobor <command> -h\" for command-specific flags.")
}
