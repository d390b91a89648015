package cmd

import (
	"fmt"
	"io"

	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/spf13/cobra"
)

var (
	queueClear   bool
	queueHistory bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List pending upload jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()

		qm, err := s.queueManager()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if queueClear {
			if err := qm.ClearQueue(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Queue cleared.")
			return nil
		}

		printJobs(out, "Queue", qm.GetQueue())
		if queueHistory {
			printJobs(out, "History", qm.GetHistory())
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(queueCmd)
	queueCmd.Flags().BoolVar(&queueClear, "clear", false, "remove every job from the queue")
	queueCmd.Flags().BoolVar(&queueHistory, "history", false, "also list finished jobs")
}

func printJobs(w io.Writer, title string, jobs []metadata.UploadJob) {
	if len(jobs) == 0 {
		fmt.Fprintf(w, "%s is empty.\n", title)
		return
	}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{string(j.Status), string(j.Kind), truncate(j.Name, 30), j.EditURL, truncate(j.Message, 40)})
	}
	fmt.Fprintln(w, renderTable(title, []string{"Status", "Kind", "Name", "Edit URL", "Message"}, rows, nil))
}
