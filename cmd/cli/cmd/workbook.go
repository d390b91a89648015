package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workbook with empty sheets if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()

		if err := s.retry(func() error { return s.wb.Init(s.ctx) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Workbook ready: %s\n", s.wb.Path())
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every record from the workbook, keeping the headers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		defer s.Close()

		if err := s.retry(func() error { return s.wb.Clear(s.ctx) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Workbook cleared: %s\n", s.wb.Path())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(clearCmd)
}
