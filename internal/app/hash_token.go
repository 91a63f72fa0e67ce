package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"khobor.news/khobor/internal/auth"
)

// runHashToken prints the bcrypt hash of an admin API token, ready for
// the ADMIN_TOKEN_HASH environment variable. The token comes from
// --token or, when that is empty, the first line of stdin so it stays
// out of shell history.
func runHashToken(args []string) int {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	token := fs.String("token", "", "Token to hash (default: read from stdin)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "hash-token does not accept positional arguments")
		return 2
	}

	value := strings.TrimSpace(*token)
	if value == "" {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			value = strings.TrimSpace(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read token from stdin: %v\n", err)
			return 1
		}
	}
	if value == "" {
		fmt.Fprintln(os.Stderr, "hash-token needs a token via --token or stdin")
		return 2
	}

	hash, err := auth.HashToken(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash token: %v\n", err)
		return 1
	}

	fmt.Println(hash)
	return 0
}
