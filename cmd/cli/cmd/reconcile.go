package cmd

import (
	"fmt"

	"github.com/angelospk/tmdbimporter/pkg/core/reconcile"
	"github.com/spf13/cobra"
)

var (
	reconcileForce  bool
	reconcileDryRun bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rewrite season numbers from the season names in the workbook",
	Long: `Derives each season's number from its name ("第 2 季", "第 3 輯") and moves
every episode onto the renumbered season. The workbook is marked as
reconciled so it is not renumbered twice; --force overrides the mark.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()

		report, err := s.reconcile(reconcile.Options{Force: reconcileForce, DryRun: reconcileDryRun})
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if reconcileDryRun && !report.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "Dry run: workbook not modified.")
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().BoolVarP(&reconcileForce, "force", "f", false, "renumber a workbook that is already reconciled")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report changes without saving them")
}
