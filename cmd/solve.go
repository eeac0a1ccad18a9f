package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bookscan/app"
	"github.com/kilianp07/bookscan/core/tuning"
	"github.com/kilianp07/bookscan/pkg/instance"
)

var solveFlags struct {
	timeLimit   float64
	generations int
	seed        uint64
	rcl         float64
	check       bool
	output      string
	params      string
}

var solveCmd = &cobra.Command{
	Use:   "solve <instance>",
	Short: "Build and evolve a schedule for one instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.Float64Var(&solveFlags.timeLimit, "time", 0, "genetic search budget in seconds, negative for unbounded")
	f.IntVar(&solveFlags.generations, "generations", 0, "generation cap, 0 for none")
	f.Uint64Var(&solveFlags.seed, "seed", 1, "random seed")
	f.Float64Var(&solveFlags.rcl, "rcl", 0, "restricted candidate list fraction")
	f.BoolVar(&solveFlags.check, "check", false, "validate the final schedule")
	f.StringVarP(&solveFlags.output, "output", "o", "", "submission file (.json for the structured plan)")
	f.StringVar(&solveFlags.params, "params", "", "tuned parameter file")
	rootCmd.AddCommand(solveCmd)
}

// applyOverrides copies the flags set on cmd into the loaded configuration.
func applyOverrides(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("time") {
		cfg.Genetic.TimeLimitSeconds = solveFlags.timeLimit
	}
	if f.Changed("generations") {
		cfg.Genetic.Generations = solveFlags.generations
	}
	if f.Changed("rcl") {
		cfg.GRASP.RCLFraction = solveFlags.rcl
	}
	return cfg.Validate()
}

func loadParams() (*tuning.Params, error) {
	if solveFlags.params == "" {
		return nil, nil
	}
	p, err := tuning.LoadParams(solveFlags.params)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := applyOverrides(cmd); err != nil {
		return err
	}
	params, err := loadParams()
	if err != nil {
		return err
	}
	p, err := instance.ParseFile(args[0])
	if err != nil {
		return err
	}

	var opts []app.Option
	if solveFlags.check {
		opts = append(opts, app.WithCheck())
	}
	r, closeAll, err := newRunner(ctx, opts...)
	if err != nil {
		return err
	}
	defer closeAll()

	res, err := r.Solve(ctx, instance.Name(args[0]), p, solveFlags.seed, params)
	if err != nil {
		return err
	}
	if solveFlags.output != "" {
		if err := app.WriteOutput(solveFlags.output, res.Schedule); err != nil {
			return fmt.Errorf("write %s: %w", solveFlags.output, err)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: score %d (seed %d), %d generations, %d/%d libraries signed\n",
		res.Instance, res.Schedule.Score, res.SeedScore, res.Generations, len(res.Schedule.Signed), p.NumLibraries())
	return err
}
