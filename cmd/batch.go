package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bookscan/app"
)

var batchFlags struct {
	out      string
	parallel int
}

var batchCmd = &cobra.Command{
	Use:   "batch <glob>...",
	Short: "Solve several instances concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.out, "out", "out", "directory receiving one submission per instance")
	f.IntVar(&batchFlags.parallel, "parallel", 0, "concurrent instances, 0 for GOMAXPROCS")
	f.Float64Var(&solveFlags.timeLimit, "time", 0, "genetic search budget per instance in seconds")
	f.IntVar(&solveFlags.generations, "generations", 0, "generation cap, 0 for none")
	f.Uint64Var(&solveFlags.seed, "seed", 1, "base random seed")
	f.Float64Var(&solveFlags.rcl, "rcl", 0, "restricted candidate list fraction")
	f.BoolVar(&solveFlags.check, "check", false, "validate every final schedule")
	f.StringVar(&solveFlags.params, "params", "", "tuned parameter file")
	rootCmd.AddCommand(batchCmd)
}

func expand(patterns []string) ([]string, error) {
	var paths []string
	for _, pat := range patterns {
		m, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pat, err)
		}
		sort.Strings(m)
		paths = append(paths, m...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no instance matches %v", patterns)
	}
	return paths, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := applyOverrides(cmd); err != nil {
		return err
	}
	params, err := loadParams()
	if err != nil {
		return err
	}
	paths, err := expand(args)
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

	results, batchErr := r.Batch(ctx, paths, app.BatchOptions{
		OutputDir: batchFlags.out,
		Parallel:  batchFlags.parallel,
		Seed:      solveFlags.seed,
		Params:    params,
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tSCORE\tSEED SCORE\tGENERATIONS\tOUTPUT")
	total := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s\tfailed\t\t\t%v\n", res.Name, res.Err)
			continue
		}
		total += res.Result.Schedule.Score
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", res.Name, res.Result.Schedule.Score, res.Result.SeedScore, res.Result.Generations, res.Output)
	}
	fmt.Fprintf(w, "total\t%d\t\t\t\n", total)
	if err := w.Flush(); err != nil {
		return err
	}
	return batchErr
}
