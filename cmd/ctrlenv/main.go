package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/ctrlenv/internal/analysis"
	"github.com/san-kum/ctrlenv/internal/automation"
	"github.com/san-kum/ctrlenv/internal/config"
	"github.com/san-kum/ctrlenv/internal/env"
	"github.com/san-kum/ctrlenv/internal/experiment"
	"github.com/san-kum/ctrlenv/internal/optim"
	"github.com/san-kum/ctrlenv/internal/param"
	"github.com/san-kum/ctrlenv/internal/storage"
)

var (
	dataDir string
	verbose bool

	taskName   string
	timeLimit  float64
	dtCtr      float64
	episodes   int
	workers    int
	discount   float64
	controller string
	action     []float64
	bias       []float64
	kp         float64
	ki         float64
	kd         float64
	physicsSet []string
	taskSet    []string
	debug      bool
	configFile string
	preset     string
	jsonOut    bool
	noSave     bool
	outDir     string

	coordinate int
	band       float64
	grid       []string
	metric     string
	maximize   bool
	trials     int
	perturb    float64
	seed       int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ctrlenv",
		Short:         "control environments for coils and tanks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ctrlenv", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")

	runCmd := &cobra.Command{
		Use:   "run [environment]",
		Short: "run episodes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEpisodes,
	}
	runCmd.Flags().StringVar(&taskName, "task", config.DefaultTask, "task (step, hold_target)")
	runCmd.Flags().Float64Var(&timeLimit, "time", config.DefaultTimeLimit, "episode time limit [s]")
	runCmd.Flags().Float64Var(&dtCtr, "dt-ctr", 0, "control timestep [s], a multiple of dt_sim (default dt_sim)")
	runCmd.Flags().IntVar(&episodes, "episodes", config.DefaultEpisodes, "number of episodes")
	runCmd.Flags().IntVar(&workers, "workers", 0, "episodes run concurrently (0 = all)")
	runCmd.Flags().Float64Var(&discount, "discount", config.DefaultDiscount, "discount per step")
	runCmd.Flags().StringVar(&controller, "controller", "zero", "controller (zero, constant, pid, lqr)")
	runCmd.Flags().Float64SliceVar(&action, "action", nil, "action for the constant controller")
	runCmd.Flags().Float64SliceVar(&bias, "bias", nil, "pid output bias")
	runCmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	runCmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	runCmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	runCmd.Flags().StringArrayVar(&physicsSet, "set", nil, "physics parameter override, name=value (TOML value)")
	runCmd.Flags().StringArrayVar(&taskSet, "task-set", nil, "task parameter override, name=value (TOML value)")
	runCmd.Flags().BoolVar(&debug, "debug", false, "record every step in the task")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the first episode as JSON")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	paramsCmd := &cobra.Command{
		Use:   "params [environment]",
		Short: "print default physics and task parameter files",
		Args:  cobra.ExactArgs(1),
		RunE:  printParams,
	}
	paramsCmd.Flags().StringVar(&taskName, "task", config.DefaultTask, "task (step, hold_target)")
	paramsCmd.Flags().StringVar(&outDir, "out", "", "write physics.toml and task.toml into this directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print the episode trace as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	envsCmd := &cobra.Command{
		Use:   "environments",
		Short: "list environments, tasks and controllers",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := experiment.NewRegistry()
			fmt.Printf("environments: %s\n", strings.Join(r.ListPhysics(), ", "))
			fmt.Printf("tasks:        %s\n", strings.Join(r.ListTasks(), ", "))
			fmt.Printf("controllers:  %s\n", strings.Join(r.ListControllers(), ", "))
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [environment]",
		Short: "list available presets for an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for environment: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				cfg := config.GetPreset(args[0], p)
				fmt.Printf("  %-10s %s, %s controller\n", p, cfg.Task, cfg.Controller.Type)
			}
			return nil
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&coordinate, "coord", 0, "position coordinate to analyse")
	analyzeCmd.Flags().Float64Var(&band, "band", 0.02, "settling band as a fraction of the step")

	tuneCmd := &cobra.Command{
		Use:   "tune [environment]",
		Short: "grid search over gains and parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tune,
	}
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [environment]",
		Short: "episodes from perturbed initial states",
		Args:  cobra.MaximumNArgs(1),
		RunE:  monteCarlo,
	}
	for _, c := range []*cobra.Command{tuneCmd, monteCarloCmd} {
		c.Flags().AddFlagSet(runCmd.Flags())
	}
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "searched axis, target=v1,v2,... (controller.kp, physics.<name>, task.<name>)")
	tuneCmd.Flags().StringVar(&metric, "metric", optim.ReturnMetric, "metric to optimise (return or any episode metric)")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", true, "maximise the metric instead of minimising")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturbation", 0.05, "uniform perturbation of every initial state component")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = clock)")

	rootCmd.AddCommand(runCmd, paramsCmd, listCmd, showCmd, exportCSVCmd, envsCmd, presetsCmd,
		analyzeCmd, tuneCmd, scenarioCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildConfig layers preset, config file and explicitly set flags, in that
// order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Environment = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Environment, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Environment))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Environment = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("task") || (preset == "" && configFile == "") {
		cfg.Task = taskName
	}
	if flags.Changed("time") {
		cfg.TimeLimit = timeLimit
	}
	if flags.Changed("dt-ctr") {
		cfg.DtCtr = dtCtr
	}
	if flags.Changed("episodes") {
		cfg.Episodes = episodes
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("discount") {
		cfg.Discount = discount
	}
	if flags.Changed("controller") {
		cfg.Controller.Type = controller
	}
	if flags.Changed("action") {
		cfg.Controller.Action = action
	}
	if flags.Changed("bias") {
		cfg.Controller.Bias = bias
	}
	if flags.Changed("kp") {
		cfg.Controller.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Controller.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Controller.Kd = kd
	}

	var err error
	if cfg.Physics, err = applySets(cfg.Physics, physicsSet); err != nil {
		return nil, err
	}
	if cfg.TaskParams, err = applySets(cfg.TaskParams, taskSet); err != nil {
		return nil, err
	}
	if debug {
		if cfg.TaskParams == nil {
			cfg.TaskParams = make(map[string]any)
		}
		cfg.TaskParams["debug"] = true
	}
	return cfg, cfg.Validate()
}

// applySets parses name=value overrides. Values use the parameter file
// syntax, so vectors are written as [0.1, 0].
func applySets(into map[string]any, sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return into, nil
	}
	if into == nil {
		into = make(map[string]any)
	}
	for _, s := range sets {
		if !strings.Contains(s, "=") {
			return nil, fmt.Errorf("override %q is not name=value", s)
		}
		values, err := param.Decode(strings.NewReader(s))
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", s, err)
		}
		for k, v := range values {
			into[k] = v
		}
	}
	return into, nil
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "running %d %s/%s episode(s)...\n", cfg.Episodes, cfg.Environment, cfg.Task)
	start := time.Now()

	results, runs, err := experiment.New(cfg, logger).Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if jsonOut {
		meta := storage.Metadata(cfg, runs[0], results[0])
		return storage.ExportJSON(os.Stdout, meta, runs[0], results[0])
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	for i, result := range results {
		if st != nil {
			runID, err := st.Save(cfg, runs[i], result)
			if err != nil {
				return err
			}
			fmt.Printf("\nrun id: %s\n", runID)
		} else {
			fmt.Printf("\nepisode %d\n", i)
		}
		fmt.Printf("steps: %d\n", result.Steps)
		if result.Divergence != nil {
			fmt.Printf("diverged: %v\n", result.Divergence)
		}
		fmt.Println("metrics:")
		names := make([]string, 0, len(result.Metrics))
		for name := range result.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
		}
	}
	return nil
}

func printParams(cmd *cobra.Command, args []string) error {
	r := experiment.NewRegistry()
	m, err := r.GetPhysics(args[0], nil)
	if err != nil {
		return err
	}
	t, err := r.GetTask(taskName, m, nil)
	if err != nil {
		return err
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return err
		}
		if err := m.WriteConfig(filepath.Join(outDir, "physics.toml")); err != nil {
			return err
		}
		return t.WriteConfig(filepath.Join(outDir, "task.toml"))
	}

	fmt.Println("# physics")
	if err := m.Params().Write(os.Stdout); err != nil {
		return err
	}
	fmt.Println("\n# task")
	return t.Params().Write(os.Stdout)
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
	fmt.Fprintln(w, "ID\tENV\tTASK\tTIME\tSTEPS\tDT_CTR\tCTRL\tRETURN\tDIVERGED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4fs\t%s\t%.4f\t%t\n",
			run.ID,
			run.Environment,
			run.Task,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.DtCtr,
			run.Controller,
			float64(run.Return),
			run.Diverged,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, rows, err := st.LoadEpisode(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for j, val := range row {
			record[j] = strconv.FormatFloat(val, 'f', 6, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, rows, err := st.LoadEpisode(args[0])
	if err != nil {
		return err
	}
	tr, err := analysis.FromTable(header, rows, coordinate)
	if err != nil {
		return err
	}
	info, err := analysis.Response(tr, band)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "step at\t%.4fs\n", info.StepTime)
	fmt.Fprintf(w, "from -> to\t%.4f -> %.4f\n", info.From, info.To)
	fmt.Fprintf(w, "rise time\t%.4fs\n", info.RiseTime)
	fmt.Fprintf(w, "overshoot\t%.2f%%\n", 100*info.Overshoot)
	fmt.Fprintf(w, "settling time\t%.4fs\n", info.SettlingTime)
	fmt.Fprintf(w, "steady error\t%.6f\n", info.SteadyError)
	return w.Flush()
}

// parseAxis reads target=v1,v2,...
func parseAxis(s string) (optim.Axis, error) {
	target, list, ok := strings.Cut(s, "=")
	if !ok {
		return optim.Axis{}, fmt.Errorf("grid %q is not target=v1,v2", s)
	}
	axis := optim.Axis{Target: target}
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return optim.Axis{}, fmt.Errorf("grid %q: %w", s, err)
		}
		axis.Values = append(axis.Values, v)
	}
	return axis, nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("at least one --grid axis is required")
	}
	axes := make([]optim.Axis, 0, len(grid))
	for _, g := range grid {
		axis, err := parseAxis(g)
		if err != nil {
			return err
		}
		axes = append(axes, axis)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run := func(ctx context.Context, c *config.Config) ([]*env.Result, error) {
		results, _, err := experiment.New(c, logger).Run(ctx)
		return results, err
	}
	best, points, err := optim.NewGridSearch(axes, metric, maximize).Search(ctx, cfg, run)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, a := range axes {
		fmt.Fprintf(w, "%s\t", a.Target)
	}
	fmt.Fprintln(w, metric)
	for _, p := range points {
		for _, a := range axes {
			fmt.Fprintf(w, "%g\t", p.Values[a.Target])
		}
		fmt.Fprintf(w, "%.6f\n", p.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest %s: %.6f at", metric, best.Score)
	for _, a := range axes {
		fmt.Printf(" %s=%g", a.Target, best.Values[a.Target])
	}
	fmt.Println()
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d step(s)\n", sc.Name, len(sc.Steps))
	steps, err := automation.RunScenario(ctx, sc, logger)

	st := storage.New(dataDir)
	if initErr := st.Init(); initErr != nil {
		return initErr
	}
	for i, step := range steps {
		for j, result := range step.Results {
			runID, saveErr := st.Save(step.Config, step.Runs[j], result)
			if saveErr != nil {
				return saveErr
			}
			fmt.Printf("  %d. %s: run %s, %d steps, return %.4f\n", i+1, step.Name, runID, result.Steps, result.Return)
		}
	}
	return err
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tINIT\tRETURN\tDIVERGED")
	for _, tr := range summary.Trials {
		fmt.Fprintf(w, "%d\t%v\t%.4f\t%t\n", tr.TrialID, tr.InitState, tr.Return, tr.Diverged)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nreturn: %.4f +/- %.4f, diverged: %.0f%%, skipped: %d\n",
		summary.MeanReturn, summary.StdReturn, 100*summary.DivergedRate, summary.Skipped)
	return nil
}
