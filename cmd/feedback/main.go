package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Notification cards and API error feedback",
		Long: `Feedback renders notification cards and turns failed API responses
into user-facing messages and field errors.

  • serve   runs the demo server with a live notification stack
  • probe   fetches a URL and shows how its error response is read
  • render  prints the HTML of a notification card`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		probeCmd(),
		renderCmd(),
		versionCmd(),
	)
	return rootCmd
}
