package commands

import (
	"flowscrape/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(allCmd, eventsCmd, infoCmd, participantsCmd, csvCmd)
}

func stageRun(st stage, failure string) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := runStage(cmd.Context(), st); err != nil {
			serviceutil.Fatal(failure, err)
		}
	}
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Runs every stage: discovery, detail pages, rosters and the csv export.",
	Run:   stageRun(stageAll, "run failed"),
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Discovers the event listing and writes the 01events artifact.",
	Run:   stageRun(stageEvents, "event discovery failed"),
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Enriches the newest event listing with detail pages and participant counts.",
	Run:   stageRun(stageInfo, "info stage failed"),
}

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Collects full rosters for the newest detailed listing.",
	Run:   stageRun(stageParticipants, "roster collection failed"),
}

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Flattens the newest roster into csv and writes the final bundle.",
	Run:   stageRun(stageCSV, "export failed"),
}
