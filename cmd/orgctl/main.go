// orgctl is a command-line client for the orgmark directory service.
//
// Usage:
//
//	orgctl <command> [flags]
//
// Commands:
//
//	tree      Print the manager/employee hierarchy for a search
//	show      Print an employee's stored annotation
//	annotate  Save a rectangle on the document as an employee's annotation
//	snippet   Print the text a rectangle covers on a local document
//	import    Upload a CSV or JSON employee file
//	chart     Print every employee with its management path
//	delete    Remove several employees at once
//
// The service address, timeouts and default document come from the same
// configuration as the server (API_URL, REQUEST_TIMEOUT, DOCUMENT_PATH,
// CONFIG_FILE, ...).
//
// Examples:
//
//	orgctl tree -q "ann"
//	orgctl annotate -id 12 -page 0 -rect 95,95,210,115 -doc org.pdf
//	orgctl import -file staff.csv -wait
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const usage = `usage: orgctl <command> [flags]

commands:
  tree      print the hierarchy for a search
  show      print an employee's annotation
  annotate  save a rectangle as an employee's annotation
  snippet   print the text under a rectangle of a local document
  import    upload a CSV or JSON employee file
  chart     print every employee with its management path
  delete    remove several employees at once

run "orgctl <command> -h" for command flags
`

type command func(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error

var commands = map[string]command{
	"tree":     runTree,
	"show":     runShow,
	"annotate": runAnnotate,
	"snippet":  runSnippet,
	"import":   runImport,
	"chart":    runChart,
	"delete":   runDelete,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if os.Getenv("ORGCTL_DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := cmd(context.Background(), os.Args[2:], os.Stdout, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
