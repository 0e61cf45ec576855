package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/san-kum/ionmd/internal/dynamo"
	"github.com/san-kum/ionmd/internal/logging"
	"github.com/san-kum/ionmd/internal/metrics"
	"github.com/san-kum/ionmd/internal/optim"
	"github.com/san-kum/ionmd/internal/sim"
	"github.com/spf13/cobra"
)

var (
	sweepAxes   []string
	sweepMetric string
)

func runSweep(cmd *cobra.Command, args []string) error {
	if len(sweepAxes) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	names := make([]string, len(sweepAxes))
	ranges := make([][]float64, len(sweepAxes))
	for i, s := range sweepAxes {
		var err error
		if names[i], ranges[i], err = optim.ParseAxis(s); err != nil {
			return err
		}
	}
	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	// Validate the base configuration and the setting names up front.
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := base.Set(n, 0); err != nil {
			return err
		}
	}

	logger := logging.New(os.Stderr, base.Sim.Verbosity)
	trial := func(ctx context.Context, params map[string]float64) (map[string]float64, error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		cfg.Sim.Filename = ""
		for k, v := range params {
			if err := cfg.Set(k, v); err != nil {
				return nil, err
			}
		}
		ions, err := cfg.BuildIons()
		if err != nil {
			return nil, err
		}

		ms := []metrics.Metric{
			metrics.NewBounds(cfg.Trap.R0),
			metrics.NewMaxExcursion(),
			metrics.NewEnergyDrift(ions),
		}
		opts := []sim.Option{sim.WithLogger(logger.With("point", params))}
		for _, m := range ms {
			opts = append(opts, sim.WithObserver(m))
		}
		eng, err := sim.New(cfg.Sim, cfg.Trap, ions, opts...)
		if err != nil {
			return nil, err
		}
		_, runErr := eng.Run(ctx)
		report := metrics.Report(ms...)
		if errors.Is(runErr, dynamo.ErrUnstable) {
			// An unstable point is a result, not a failure of the sweep.
			report["unstable"] = 1
			return report, nil
		}
		return report, runErr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("sweeping %d points\n", grid.Size())
	points, err := grid.Run(ctx, trial)

	cols := optim.MetricNames(points)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, n := range grid.Names() {
		fmt.Fprintf(w, "%s\t", n)
	}
	for _, c := range cols {
		fmt.Fprintf(w, "%s\t", c)
	}
	fmt.Fprintln(w)
	for _, p := range points {
		for _, n := range grid.Names() {
			fmt.Fprintf(w, "%.4g\t", p.Params[n])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "error: %v\n", p.Err)
			continue
		}
		for _, c := range cols {
			fmt.Fprintf(w, "%.4g\t", p.Metrics[c])
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	if best, v, ok := optim.Best(points, sweepMetric); ok {
		fmt.Printf("\nbest %s = %.6g at %v\n", sweepMetric, v, best.Params)
	}
	return err
}
