package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the records stored in the workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()

		rs, err := s.load()
		if err != nil {
			return err
		}
		printRecordSet(cmd.OutOrStdout(), rs)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)
}

func printRecordSet(w io.Writer, rs *model.RecordSet) {
	state := "not reconciled"
	if rs.Reconciled {
		state = "reconciled"
	}

	if rs.IsMovie() {
		rows := make([][]string, 0, len(rs.Movies))
		for _, m := range rs.Movies {
			rows = append(rows, []string{m.Name, truncate(m.Description, 80)})
		}
		fmt.Fprintln(w, renderTable("Movie", []string{"Title", "Description"}, rows, nil))
		return
	}

	titles := make([][]string, 0, len(rs.Titles))
	for _, t := range rs.Titles {
		titles = append(titles, []string{t.Name, truncate(t.Description, 80)})
	}
	fmt.Fprintln(w, renderTable("Series", []string{"Name", "Description"}, titles, nil))

	seasons := make([][]string, 0, len(rs.Seasons))
	for _, se := range rs.Seasons {
		if se.Blank {
			seasons = append(seasons, []string{strconv.Itoa(se.Number), "(blank row)", ""})
			continue
		}
		seasons = append(seasons, []string{strconv.Itoa(se.Number), se.DisplayName, truncate(se.Description, 60)})
	}
	fmt.Fprintln(w, renderTable("Seasons", []string{"No.", "Name", "Description"}, seasons,
		[]columnAlignment{alignRight, alignLeft, alignLeft}))
	fmt.Fprintf(w, "Season numbers are %s.\n", state)

	episodes := make([][]string, 0, len(rs.Episodes))
	for _, ep := range rs.Episodes {
		if ep.Malformed() {
			episodes = append(episodes, append([]string(nil), ep.Raw...))
			continue
		}
		season := ep.SeasonNumber.String()
		if season == "" {
			season = "?"
		}
		episodes = append(episodes, []string{season, strconv.Itoa(ep.EpisodeNumber), ep.Title, truncate(ep.Description, 60)})
	}
	fmt.Fprintln(w, renderTable("Episodes", []string{"Season", "Episode", "Title", "Description"}, episodes,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft}))
}
