package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bookscan/pkg/export"
	"github.com/kilianp07/bookscan/pkg/instance"
)

var scoreCmd = &cobra.Command{
	Use:   "score <instance> <submission>",
	Short: "Validate a submission and print its score",
	Args:  cobra.ExactArgs(2),
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	p, err := instance.ParseFile(args[0])
	if err != nil {
		return err
	}
	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	s, err := export.ReadSubmission(f, p)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	if err := s.Validate(p); err != nil {
		return fmt.Errorf("%s is not a valid schedule: %w", args[1], err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", s.Score)
	return err
}
