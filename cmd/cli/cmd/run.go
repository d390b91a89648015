package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/angelospk/tmdbimporter/pkg/core/reconcile"
	"github.com/spf13/cobra"
)

// excelSource uploads the workbook as it is instead of extracting first.
const excelSource = "excel"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, reconcile and upload titles one after another",
	Long: `Asks for a streaming site URL (or "excel" to reuse the current workbook)
and an optional TMDB URL, then extracts, reconciles and uploads. One browser
session is kept for the whole run, so every site is logged in to once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()
		return runInteractive(cmd.OutOrStdout(), s)
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runInteractive(out io.Writer, s *session) error {
	for {
		source, err := s.prompt.ask(`Video site URL or "excel": `)
		if err != nil {
			return ignoreEOF(err)
		}
		tmdbURL, err := askTMDBURL(out, s.prompt)
		if err != nil {
			return ignoreEOF(err)
		}

		if err := processTitle(out, s, source, tmdbURL); err != nil {
			if s.ctx.Err() != nil {
				return err
			}
			s.logger.Errorf("An error occurred: %v", err)
		}

		answer, err := s.prompt.ask("Continue? (y/n): ")
		if err != nil {
			return ignoreEOF(err)
		}
		if strings.EqualFold(answer, "n") {
			return nil
		}
	}
}

// askTMDBURL repeats the question until the answer is blank or a TMDB URL.
func askTMDBURL(out io.Writer, p *prompter) (string, error) {
	for {
		answer, err := p.ask("TMDB URL (blank to skip upload): ")
		if err != nil {
			return "", err
		}
		if answer == "" || strings.Contains(answer, "themoviedb.org") {
			return answer, nil
		}
		fmt.Fprintln(out, "Only a themoviedb.org URL or an empty answer is accepted. Please try again.")
	}
}

func processTitle(out io.Writer, s *session, source, tmdbURL string) error {
	var target metadata.Target
	if tmdbURL != "" {
		t, err := metadata.ParseTarget(tmdbURL)
		if err != nil {
			return err
		}
		target = t
	}

	if err := s.retry(func() error { return s.wb.Init(s.ctx) }); err != nil {
		return err
	}

	if !strings.EqualFold(source, excelSource) {
		rs, err := s.extract(source)
		if err != nil {
			return err
		}
		if !rs.IsMovie() {
			report, err := s.reconcile(reconcile.Options{})
			if err != nil {
				return err
			}
			printReport(out, report)
		}
	}

	if tmdbURL == "" {
		return nil
	}
	return runUploadSession(out, s, target)
}

func runUploadSession(out io.Writer, s *session, target metadata.Target) error {
	added, skipped, err := s.enqueue(target)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Queued %d jobs (%d already queued).\n", added, skipped)
	sum, err := s.upload()
	fmt.Fprintf(out, "Uploaded %d, failed %d, skipped %d.\n", sum.Completed, sum.Failed, sum.Skipped)
	return err
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
