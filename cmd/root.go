package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bookscan/app"
	"github.com/kilianp07/bookscan/config"
	"github.com/kilianp07/bookscan/core/runlog"
	"github.com/kilianp07/bookscan/infra/logger"
	"github.com/kilianp07/bookscan/infra/metrics"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "bookscan",
	Short:         "Book scanning schedule optimizer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logger.Setup(c.Log); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// newRunner wires the configured sinks, the run history and the metrics
// endpoint around a Runner. The returned func releases them.
func newRunner(ctx context.Context, opts ...app.Option) (*app.Runner, func(), error) {
	log := logger.New("cli")
	sink, err := app.NewSink(*cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := runlog.Open(cfg.Runs)
	if err != nil {
		_ = app.CloseSink(sink)
		return nil, nil, fmt.Errorf("run history: %w", err)
	}
	if cfg.Metrics.Wants("prometheus") {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.ListenAddr); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}
	r, err := app.NewRunner(cfg, append([]app.Option{app.WithSink(sink), app.WithStore(store)}, opts...)...)
	if err != nil {
		_ = app.CloseSink(sink)
		_ = store.Close()
		return nil, nil, err
	}
	return r, func() {
		if err := app.CloseSink(sink); err != nil {
			log.Errorf("close sinks: %v", err)
		}
		if err := store.Close(); err != nil {
			log.Errorf("close run history: %v", err)
		}
	}, nil
}
