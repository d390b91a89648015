package cmd

import (
	"fmt"
	"io"

	"github.com/angelospk/tmdbimporter/pkg/core/reconcile"
	"github.com/spf13/cobra"
)

var extractReconcile bool

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Scrape a title from a streaming site into the workbook",
	Long: `Opens the title page in a browser and writes the series or movie name,
synopsis, seasons and episodes to the workbook, replacing its contents.

Supported sites: netflix.com, tv.apple.com, disneyplus.com, primevideo.com.
Disney+ needs an account; missing credentials are asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()

		rs, err := s.extract(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if rs.IsMovie() {
			fmt.Fprintf(out, "Extracted movie %q.\n", rs.Movies[0].Name)
		} else {
			fmt.Fprintf(out, "Extracted %d seasons and %d episodes.\n", len(rs.Seasons), len(rs.Episodes))
		}

		if !extractReconcile || rs.IsMovie() {
			return nil
		}
		report, err := s.reconcile(reconcile.Options{})
		if err != nil {
			return err
		}
		printReport(out, report)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractReconcile, "reconcile", true, "reconcile season numbers after extraction")
}

func printReport(w io.Writer, r *reconcile.Report) {
	if r.Skipped {
		fmt.Fprintln(w, "Workbook is already reconciled; use --force to renumber it again.")
		return
	}
	fmt.Fprintf(w, "Renumbered %d seasons and %d episodes.\n", r.SeasonsRenumbered, r.EpisodesRenumbered)
	if n := len(r.UnresolvedEpisodes); n > 0 {
		fmt.Fprintf(w, "%d episodes have no matching season and were left without a season number.\n", n)
	}
	if n := len(r.RowErrors); n > 0 {
		fmt.Fprintf(w, "%d rows were skipped or coerced while reading the workbook.\n", n)
	}
}
