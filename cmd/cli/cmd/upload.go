package cmd

import (
	"fmt"
	"io"

	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/spf13/cobra"
)

var uploadEnqueueOnly bool

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <tmdb-url>",
	Short: "Queue the workbook for a TMDB title and fill its translation forms",
	Long: `Creates one upload job for the series or movie, one per season and one per
episode of the workbook, adds them to the upload queue, then logs in to
themoviedb.org and submits every pending job.

The URL may be any page of the title, e.g.
https://www.themoviedb.org/tv/1399-game-of-thrones/season/1.`,
	Args: cobra.ExactArgs(1),
	RunE: runUploadCmd,
}

func init() {
	RootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&uploadEnqueueOnly, "enqueue-only", false, "add jobs to the queue without uploading")
}

// runUploadCmd initializes dependencies and calls runUpload
func runUploadCmd(cmd *cobra.Command, args []string) error {
	target, err := metadata.ParseTarget(args[0])
	if err != nil {
		return err
	}

	s := newSession(cmd)
	defer s.Close()
	return runUpload(cmd.OutOrStdout(), s, target, uploadEnqueueOnly)
}

func runUpload(out io.Writer, s *session, target metadata.Target, enqueueOnly bool) error {
	if enqueueOnly {
		added, skipped, err := s.enqueue(target)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Queued %d jobs (%d already queued).\n", added, skipped)
		return nil
	}
	if err := runUploadSession(out, s, target); err != nil {
		return fmt.Errorf("upload stopped: %w", err)
	}
	return nil
}
