package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bookscan/core/runlog"
)

var runsFlags struct {
	instance string
	since    time.Duration
	limit    int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Run history commands",
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded runs",
	RunE:  runRunsLs,
}

func init() {
	f := runsLsCmd.Flags()
	f.StringVar(&runsFlags.instance, "instance", "", "only runs of this instance")
	f.DurationVar(&runsFlags.since, "since", 0, "only runs started within this duration")
	f.IntVar(&runsFlags.limit, "limit", 20, "most recent runs to show, 0 for all")
	runsCmd.AddCommand(runsLsCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsLs(cmd *cobra.Command, args []string) error {
	store, err := runlog.Open(cfg.Runs)
	if err != nil {
		return fmt.Errorf("run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	q := runlog.Query{Instance: runsFlags.instance, Limit: runsFlags.limit}
	if runsFlags.since > 0 {
		q.Start = time.Now().Add(-runsFlags.since)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tINSTANCE\tSCORE\tSEED SCORE\tGENERATIONS\tDURATION\tPARAMS")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Kind, r.Instance, r.Score, r.SeedScore,
			r.Generations, r.Duration.Round(time.Millisecond), formatParams(r.Params))
	}
	return w.Flush()
}

func formatParams(p map[string]float64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.3g", k, p[k])
	}
	return strings.Join(parts, " ")
}
