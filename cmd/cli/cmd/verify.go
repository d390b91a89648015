package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/tmdb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <tmdb-url>",
	Short: "Compare the workbook with the title's seasons on TMDB",
	Long: `Fetches the title from the TMDB API and lists, per season number, the
season name and episode count in the workbook next to TMDB's. Use it before
uploading to catch seasons that were numbered differently.

Needs a TMDB API key (tmdb.apikey) or read access token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := metadata.ParseTarget(args[0])
		if err != nil {
			return err
		}
		s := newSession(cmd)
		defer s.Close()

		err = s.requireCredentials(map[string]string{CfgKeyTMDBAPIKey: "TMDB API key"}, CfgKeyTMDBAPIKey)
		if err != nil {
			return err
		}
		id, err := target.NumericID()
		if err != nil {
			return err
		}
		rs, err := s.load()
		if err != nil {
			return err
		}

		client := NewTMDBClientFunc(viper.GetString(CfgKeyTMDBAPIURL), viper.GetString(CfgKeyTMDBAPIKey), viper.GetString(CfgKeyTMDBLanguage))
		out := cmd.OutOrStdout()
		if target.IsMovie() {
			movie, err := client.GetMovieDetails(s.ctx, id)
			if err != nil {
				return err
			}
			printMovieCheck(out, rs, movie)
			return nil
		}

		tv, err := client.GetTVDetails(s.ctx, id)
		if err != nil {
			return err
		}
		printSeasonChecks(out, tv, tmdb.CompareSeasons(rs, tv))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(verifyCmd)
}

func printMovieCheck(w io.Writer, rs *model.RecordSet, movie *tmdb.MovieDetails) {
	name := ""
	if len(rs.Movies) > 0 {
		name = rs.Movies[0].Name
	}
	rows := [][]string{{"Workbook", name}, {"TMDB", movie.Title}, {"Original", movie.OriginalTitle}}
	fmt.Fprintln(w, renderTable(fmt.Sprintf("Movie %d", movie.ID), []string{"Source", "Title"}, rows, nil))
}

func printSeasonChecks(w io.Writer, tv *tmdb.TVDetails, checks []tmdb.SeasonCheck) {
	rows := make([][]string, 0, len(checks))
	mismatches := 0
	for _, c := range checks {
		tmdbName, tmdbEpisodes, status := c.TMDBName, strconv.Itoa(c.TMDBEpisodes), "ok"
		if c.MissingOnTMDB {
			tmdbName, tmdbEpisodes = "-", "-"
		}
		if !c.OK() {
			status = "MISMATCH"
			mismatches++
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Number), c.WorkbookName, strconv.Itoa(c.WorkbookEpisodes), tmdbName, tmdbEpisodes, status,
		})
	}
	fmt.Fprintln(w, renderTable(tv.Name,
		[]string{"Season", "Workbook name", "Episodes", "TMDB name", "TMDB episodes", "Status"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
	if mismatches == 0 {
		fmt.Fprintln(w, "All seasons match.")
	} else {
		fmt.Fprintf(w, "%d seasons differ.\n", mismatches)
	}
}
