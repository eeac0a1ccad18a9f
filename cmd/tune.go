package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bookscan/core/tuning"
	"github.com/kilianp07/bookscan/pkg/instance"
)

var tuneFlags struct {
	seed   uint64
	output string
}

var tuneCmd = &cobra.Command{
	Use:   "tune <instance>",
	Short: "Search genetic parameters for one instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runTune,
}

func init() {
	f := tuneCmd.Flags()
	f.Uint64Var(&tuneFlags.seed, "seed", 1, "random seed")
	f.StringVarP(&tuneFlags.output, "output", "o", "", "parameter file, stdout when empty")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := instance.ParseFile(args[0])
	if err != nil {
		return err
	}
	r, closeAll, err := newRunner(ctx)
	if err != nil {
		return err
	}
	defer closeAll()

	res, err := r.Tune(ctx, instance.Name(args[0]), p, tuneFlags.seed)
	if res == nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: best score %.0f after %d inner searches\n", res.Instance, res.Score, res.Evaluations)

	if tuneFlags.output == "" {
		if werr := tuning.WriteYAML(cmd.OutOrStdout(), res.Best); werr != nil {
			return werr
		}
		return err
	}
	f, ferr := os.Create(tuneFlags.output)
	if ferr != nil {
		return ferr
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if werr := tuning.WriteYAML(f, res.Best); werr != nil {
		return werr
	}
	return err
}
