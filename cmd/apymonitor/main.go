package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	mode       string
	strict     bool
}

func main() {
	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "apymonitor",
		Short:         "Track DefiLlama pool APYs and alert on high yields",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML selection file")
	root.PersistentFlags().StringVar(&flags.mode, "mode", "", "selection mode (allowlist|single|predicate)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, record and evaluate once, then exit",
		Long: `Run one monitoring pass: fetch all pools, select the tracked ones,
append them to the CSV history, overwrite the JSON snapshot and print an
alert for every pool at or above the APY threshold.

Examples:
  apymonitor run
  apymonitor run --mode single
  apymonitor run --config pools.yaml --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), flags)
		},
	}
	runCmd.Flags().BoolVar(&flags.strict, "strict", false, "exit non-zero when no pool data could be fetched")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run on POLL_INTERVAL and expose metrics and the latest snapshot over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}

	root.AddCommand(runCmd, serveCmd)
	return root
}
