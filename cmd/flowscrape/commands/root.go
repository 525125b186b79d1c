package commands

import (
	"context"
	"fmt"
	"os"

	"flowscrape/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	limit   int
	outDir  string
)

var rootCmd = &cobra.Command{
	Use:   "flowscrape",
	Short: "flowscrape extracts agility events, detail pages and participant rosters from FlowAgility.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	// a bare invocation runs the whole chain
	Run: stageRun(stageAll, "run failed"),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "process at most this many events, 0 means all")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "output directory, overrides OUT_DIR")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
