// Command hl is the interactive CLI: it manages the hld daemon's
// lifecycle (start, stop, and status over IPC) and the user's local
// config.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chrisling-dev/hyperliquid-cli/internal/logging"
)

const version = "v0.1.0"

type loggerKey struct{}

// loggerFromContext returns the logger attached by the root command's
// --verbose handling, or a no-op logger if none was attached (e.g. in
// tests that build subcommands directly).
func loggerFromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return log
	}
	return zerolog.Nop()
}

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:     "hl",
		Short:   "Hyperliquid perpetuals market-data CLI",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log := zerolog.Nop()
			if verbose {
				log = logging.NewConsole()
			}
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, log))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log internal operations (daemon spawn, socket polling) to stderr")

	root.AddCommand(newServerCmd())
	root.AddCommand(newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
