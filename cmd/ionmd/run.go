package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/ionmd/internal/analysis"
	"github.com/san-kum/ionmd/internal/config"
	"github.com/san-kum/ionmd/internal/dynamo"
	"github.com/san-kum/ionmd/internal/logging"
	"github.com/san-kum/ionmd/internal/metrics"
	"github.com/san-kum/ionmd/internal/sim"
	"github.com/san-kum/ionmd/internal/storage"
	"github.com/san-kum/ionmd/internal/tui"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	name := preset
	if name == "" && configFile != "" {
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}
	if name == "" {
		name = "demo"
	}

	var (
		st     *storage.Store
		runID  string
		runDir string
	)
	if !noStore {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if runID, runDir, err = st.Create(name); err != nil {
			return err
		}
		if !cmd.Flags().Changed("out") && os.Getenv(config.EnvFilename) == "" {
			cfg.Sim.Filename = filepath.Join(runDir, storage.TrajectoryFile)
		}
	}

	ions, err := cfg.BuildIons()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Sim.Verbosity)

	ms := []metrics.Metric{
		metrics.NewBounds(cfg.Trap.R0),
		metrics.NewMaxExcursion(),
		metrics.NewEnergyDrift(ions),
	}
	opts := []sim.Option{sim.WithLogger(logger)}
	for _, m := range ms {
		opts = append(opts, sim.WithObserver(m))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var program *tea.Program
	if useTUI {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		program = tea.NewProgram(tui.NewModel("ionmd "+name, cancel))
		opts = append(opts, sim.WithObserver(tui.NewObserver(program.Send, frameRate)))
		// Log lines would tear the view.
		opts[0] = sim.WithLogger(logging.Discard())

		eng, err := sim.New(cfg.Sim, cfg.Trap, ions, opts...)
		if err != nil {
			return err
		}
		res, runErr := runBehindView(ctx, cancel, program, program.Send, eng.Run)
		return finishRun(st, runID, name, cfg, eng, res, runErr, ms)
	}

	eng, err := sim.New(cfg.Sim, cfg.Trap, ions, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("running %s: %d ions, %d steps\n", name, len(ions), cfg.Sim.Steps())
	res, runErr := eng.Run(ctx)
	return finishRun(st, runID, name, cfg, eng, res, runErr, ms)
}

type view interface {
	Run() (tea.Model, error)
}

// runBehindView runs the engine on its own goroutine while v owns the
// terminal. The result is read only after that goroutine exits. A view
// that fails or quits early cancels the run first.
func runBehindView(ctx context.Context, cancel context.CancelFunc, v view, send func(tea.Msg), run func(context.Context) (*sim.Result, error)) (*sim.Result, error) {
	var (
		res    *sim.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, runErr = run(ctx)
		send(tui.DoneMsg{Result: res, Err: runErr})
	}()

	_, viewErr := v.Run()
	if viewErr != nil {
		cancel()
	}
	<-done
	if viewErr != nil {
		return nil, fmt.Errorf("tui: %w", viewErr)
	}
	return res, runErr
}

// finishRun prints a summary and records the run when a store is in use.
// The run error is returned after the record is written.
func finishRun(st *storage.Store, runID, name string, cfg *config.Config, eng *sim.Engine, res *sim.Result, runErr error, ms []metrics.Metric) error {
	if res == nil {
		return runErr
	}

	report := metrics.Report(ms...)
	printSummary(cfg, eng, res, report, runErr)

	if st != nil {
		meta := storage.RunMetadata{
			ID:      runID,
			Name:    name,
			Seed:    cfg.Sim.Seed,
			Dt:      cfg.Sim.Dt,
			TMax:    cfg.Sim.TMax,
			Ions:    len(cfg.Ions),
			Steps:   res.Steps,
			Frames:  res.Frames,
			Status:  eng.Status().String(),
			Elapsed: res.Elapsed.Seconds(),
			Metrics: report,
		}
		if cfg.Sim.Filename != "" {
			meta.Trajectory = cfg.Sim.Filename
		}
		if err := st.Save(meta, res.FinalPositions); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return runErr
}

func printSummary(cfg *config.Config, eng *sim.Engine, res *sim.Result, report map[string]float64, runErr error) {
	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
	}

	fmt.Println(headerStyle.Render("run summary"))
	row("status", eng.Status().String())
	row("steps", fmt.Sprintf("%d / %d", res.Steps, cfg.Sim.Steps()))
	row("frames", fmt.Sprintf("%d", res.Frames))
	row("elapsed", res.Elapsed.String())
	row("kinetic", fmt.Sprintf("%.4e J", analysis.KineticEnergy(eng.Ions())))
	if cfg.Sim.Filename != "" {
		row("trajectory", cfg.Sim.Filename)
	}

	if len(cfg.Ions) > 0 {
		wr, wz := cfg.Trap.SecularFrequencies(cfg.Ions[0].Mass, cfg.Ions[0].Charge)
		row("ω_r / 2π", fmt.Sprintf("%.3f kHz", wr/(2e3*math.Pi)))
		row("ω_z / 2π", fmt.Sprintf("%.3f kHz", wz/(2e3*math.Pi)))
	}

	names := make([]string, 0, len(report))
	for k := range report {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Println()
	fmt.Println(headerStyle.Render("metrics"))
	for _, k := range names {
		row(k, fmt.Sprintf("%.6g", report[k]))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("final positions (µm)"))
	for i, x := range res.FinalPositions {
		row(fmt.Sprintf("ion %d", i), fmt.Sprintf("%+9.3f %+9.3f %+9.3f", x.X*1e6, x.Y*1e6, x.Z*1e6))
	}

	if runErr != nil {
		var serr *dynamo.SimulationError
		if errors.As(runErr, &serr) {
			fmt.Println(errStyle.Render(fmt.Sprintf("stopped at step %d (t=%.3e s)", serr.Step, serr.Time)))
		}
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("runs must be positive, got %d", numRuns)
	}

	logger := logging.New(os.Stderr, cfg.Sim.Verbosity)
	base := cfg.Sim.Filename
	if !cmd.Flags().Changed("out") {
		base = ""
	}

	build := func(s uint64) (*sim.Engine, error) {
		ions, err := cfg.BuildIons()
		if err != nil {
			return nil, err
		}
		p := cfg.Sim
		p.Seed = s
		p.Filename = ""
		if base != "" {
			ext := filepath.Ext(base)
			p.Filename = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, ext), s, ext)
		}
		return sim.New(p, cfg.Trap, ions, sim.WithLogger(logger.With("seed", s)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d members from seed %d\n", numRuns, cfg.Sim.Seed)
	results, err := sim.NewEnsemble(build, numRuns, cfg.Sim.Seed).Run(ctx)

	fmt.Println(headerStyle.Render("ensemble"))
	var sumR2 float64
	done := 0
	for i, res := range results {
		if res == nil {
			fmt.Println(labelStyle.Render(fmt.Sprintf("seed %d", cfg.Sim.Seed+uint64(i))) + errStyle.Render("failed"))
			continue
		}
		r2 := 0.0
		for _, x := range res.FinalPositions {
			r2 += r3.Norm2(x)
		}
		if n := len(res.FinalPositions); n > 0 {
			r2 /= float64(n)
		}
		sumR2 += r2
		done++
		fmt.Println(labelStyle.Render(fmt.Sprintf("seed %d", cfg.Sim.Seed+uint64(i))) +
			valueStyle.Render(fmt.Sprintf("rms %.3f µm  %s", math.Sqrt(r2)*1e6, res.Elapsed)))
	}
	if done > 0 {
		fmt.Println(labelStyle.Render("mean rms") + valueStyle.Render(fmt.Sprintf("%.3f µm", math.Sqrt(sumR2/float64(done))*1e6)))
	}
	return err
}
