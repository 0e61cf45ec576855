package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/ionmd/internal/config"
	"github.com/san-kum/ionmd/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dataDir string

	configFile string
	preset     string
	envFiles   []string
	dt         float64
	duration   float64
	buffer     int
	outFile    string
	seed       uint64
	verbosity  int
	workers    int
	method     string
	coulombOn  bool
	useTUI     bool
	noStore    bool
	frameRate  int

	numRuns int

	ionIndex int
	axisName string
	csvOut   string
	phaseOut string

	stride int
)

// main registers the ionmd commands and executes the root command,
// exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "ionmd",
		Short:        "molecular dynamics of ions in a linear Paul trap",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ionmd", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "show live progress")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --tui")
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run in the data directory")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run independently seeded copies of a configuration",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addSimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 4, "number of members")

	inspectCmd := &cobra.Command{
		Use:   "inspect [trajectory]",
		Short: "print a trajectory file's header and last frame",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectTrajectory,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [trajectory]",
		Short: "secular frequency analysis of one ion",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeTrajectory,
	}
	analyzeCmd.Flags().IntVar(&ionIndex, "ion", 0, "ion index")
	analyzeCmd.Flags().StringVar(&axisName, "axis", "z", "axis (x, y or z)")
	analyzeCmd.Flags().StringVar(&configFile, "config", "", "config the trajectory was produced with")
	analyzeCmd.Flags().StringVar(&preset, "preset", "", "preset the trajectory was produced with")

	phaseCmd := &cobra.Command{
		Use:   "phase [trajectory]",
		Short: "phase space summary of one ion",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseSummary,
	}
	phaseCmd.Flags().IntVar(&ionIndex, "ion", 0, "ion index")
	phaseCmd.Flags().StringVar(&axisName, "axis", "z", "axis (x, y or z)")
	phaseCmd.Flags().StringVarP(&phaseOut, "out", "o", "", "write the portrait as CSV")

	seriesCmd := &cobra.Command{
		Use:   "series [trajectory]",
		Short: "write one ion's coordinate against time as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  seriesCSV,
	}
	seriesCmd.Flags().IntVar(&ionIndex, "ion", 0, "ion index")
	seriesCmd.Flags().StringVar(&axisName, "axis", "z", "axis (x, y or z)")
	seriesCmd.Flags().StringVarP(&csvOut, "out", "o", "-", "output file (- for stdout)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a configuration over a grid of trap or sim settings",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "param", nil, "setting to sweep, as name=v1,v2,...")
	sweepCmd.Flags().StringVar(&sweepMetric, "minimize", "max_excursion", "metric to rank points by")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recorded trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportCmd.Flags().IntVar(&stride, "stride", 1, "keep every n-th record")
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tIONS\tDT\tT_MAX\tCOULOMB")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%.1e\t%.1e\t%v\n", name, len(cfg.Ions), cfg.Sim.Dt, cfg.Sim.TMax, cfg.Sim.Coulomb)
			}
			w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print a configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	configCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or ini)")
	configCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(runCmd, ensembleCmd, sweepCmd, inspectCmd, analyzeCmd, phaseCmd, seriesCmd, listCmd, exportCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or ini)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringSliceVar(&envFiles, "env", nil, "dotenv files with IONMD_* overrides")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep in seconds")
	cmd.Flags().Float64Var(&duration, "time", 0, "simulated time in seconds")
	cmd.Flags().IntVar(&buffer, "buffer", 0, "frames buffered between writes")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "trajectory file")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity (0-2)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&coulombOn, "coulomb", false, "enable ion-ion Coulomb repulsion")
	cmd.Flags().StringVar(&method, "coulomb-method", "", "coulomb method (direct or barneshut)")
}

// loadConfig resolves the configuration: preset or file, then the
// environment, then any flag the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	if cmd.Flags().Lookup("env") != nil {
		if err := config.ApplyEnv(cfg, envFiles...); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Sim.TMax = duration
	}
	if flags.Changed("buffer") {
		cfg.Sim.BufferSize = buffer
	}
	if flags.Changed("out") {
		cfg.Sim.Filename = outFile
	}
	if flags.Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if flags.Changed("verbosity") {
		cfg.Sim.Verbosity = verbosity
	}
	if flags.Changed("workers") {
		cfg.Sim.Workers = workers
	}
	if flags.Changed("coulomb") {
		cfg.Sim.Coulomb = coulombOn
	}
	if flags.Changed("coulomb-method") {
		cfg.Sim.CoulombMethod = method
	}
	return cfg, cfg.Validate()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tIONS\tSTEPS\tFRAMES\tSTATUS\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%.2fs\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ions,
			run.Steps,
			run.Frames,
			run.Status,
			run.Elapsed,
		)
	}
	return w.Flush()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if meta.Trajectory == "" {
		return fmt.Errorf("run %s has no trajectory", meta.ID)
	}

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, meta.Trajectory, stride)
	}
	if err := storage.ExportJSONFile(outFile, meta.Trajectory, stride); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", meta.ID, outFile)
	return nil
}
