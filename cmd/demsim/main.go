package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/demsim/internal/config"
	"github.com/san-kum/demsim/internal/experiment"
	"github.com/san-kum/demsim/internal/export"
	"github.com/san-kum/demsim/internal/optim"
	"github.com/san-kum/demsim/internal/particle"
	"github.com/san-kum/demsim/internal/sim"
	"github.com/san-kum/demsim/internal/storage"
	"github.com/san-kum/demsim/internal/tui"
	"github.com/san-kum/demsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	configFile string
	preset     string

	dt          float64
	duration    float64
	integrator  string
	stiffness   string
	damping     string
	pairMode    string
	searchEvery int
	outputEvery int
	rotation    bool

	checkpoint  bool
	metric      string
	outFile     string
	svgFile     string
	snapshotOut string
	benchSteps  int
	width       int
	height      int
	sweepParams []string
	sweepMetric string
	maximize    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "demsim",
		Short:        "discrete element contact simulation",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".demsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine messages to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene and store the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, false)
		},
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&checkpoint, "checkpoint", true, "store a checkpoint for resume")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with a live terminal view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, true)
		},
	}
	sceneFlags(liveCmd)
	liveCmd.Flags().BoolVar(&checkpoint, "checkpoint", true, "store a checkpoint for resume")

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a stored run from its checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().Float64Var(&duration, "time", 0, "additional simulated time (default: the original duration)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot metric series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&metric, "metric", "", "plot only this metric")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the first plotted metric to an svg file")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "render the checkpointed state of a run as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshot.svg", "output file")
	snapshotCmd.Flags().IntVar(&width, "width", 800, "image width")
	snapshotCmd.Flags().IntVar(&height, "height", 600, "image height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list preset scenes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	criticalCmd := &cobra.Command{
		Use:   "critical-dt",
		Short: "estimate the largest stable time step of a scene",
		Args:  cobra.NoArgs,
		RunE:  criticalDt,
	}
	sceneFlags(criticalCmd)

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time the step loop of a scene",
		Args:  cobra.NoArgs,
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchSteps, "steps", 1000, "number of steps")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene over a parameter grid and rank by a metric",
		Args:  cobra.NoArgs,
		RunE:  sweepScene,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "kinetic_energy", "metric to rank by")
	sweepCmd.Flags().BoolVar(&maximize, "maximize", false, "rank the largest value first")

	rootCmd.AddCommand(runCmd, liveCmd, resumeCmd, listCmd, plotCmd, snapshotCmd, exportCmd, presetsCmd, criticalCmd, benchCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset scene, e.g. collision/head_on")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration")
	cmd.Flags().StringVar(&integrator, "integrator", "euler", "integrator (euler, taylor)")
	cmd.Flags().StringVar(&stiffness, "stiffness", "linear", "stiffness model (linear, hertz)")
	cmd.Flags().StringVar(&damping, "damping", "normal_tangential", "damping (none, normal, normal_tangential)")
	cmd.Flags().StringVar(&pairMode, "pair-mode", "one_sided", "pair mode (one_sided, both_sides)")
	cmd.Flags().IntVar(&searchEvery, "search-every", config.DefaultSearchFrequency, "steps between neighbor searches")
	cmd.Flags().IntVar(&outputEvery, "output-every", config.DefaultOutputEvery, "steps between metric samples")
	cmd.Flags().BoolVar(&rotation, "rotation", true, "integrate particle rotation")
}

func logger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "demsim: ", log.LstdFlags)
}

// loadConfig starts from the preset or the defaults, applies the config file
// and lets explicitly set flags override both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		scene, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be scene/name, got %q", preset)
		}
		cfg = config.GetPreset(scene, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scene))
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("stiffness") {
		cfg.Contact.Stiffness = stiffness
	}
	if flags.Changed("damping") {
		cfg.Contact.Damping = damping
	}
	if flags.Changed("pair-mode") {
		cfg.Contact.PairMode = pairMode
	}
	if flags.Changed("search-every") {
		cfg.SearchFrequency = searchEvery
	}
	if flags.Changed("output-every") {
		cfg.OutputEvery = outputEvery
	}
	if flags.Changed("rotation") {
		cfg.Contact.Rotation = rotation
		if !rotation {
			cfg.Contact.RollingFriction = false
		}
	}
	return cfg, nil
}

func execute(cmd *cobra.Command, live bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return simulate(cfg, nil, "", live)
}

func resumeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	cp, err := st.LoadCheckpoint(runID)
	if err != nil {
		return fmt.Errorf("run %s has no checkpoint: %w", runID, err)
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}

	checkpoint = true
	return simulate(cfg, cp, runID, false)
}

func simulate(cfg *config.Config, cp *storage.Checkpoint, resumedFrom string, live bool) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, logger())
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}
	if cp != nil {
		if err := exp.Restore(cp.Particles, cp.Vertices, cp.Step, cp.Time); err != nil {
			return err
		}
	}

	scene := exp.Scene()
	if crit := scene.CriticalTimeStep(cfg.Contact.Rotation); cfg.Dt > crit {
		fmt.Println(viz.StatusPaused.Render(fmt.Sprintf("warning: dt %.3g exceeds the critical time step %.3g", cfg.Dt, crit)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	var result *sim.Result
	var runErr error
	if live {
		result, runErr = tui.Run(ctx, exp)
	} else {
		fmt.Printf("running %s: %d particles, %d faces...\n", cfg.Scene, len(scene.Particles), len(scene.Mesh.Faces))
		result, runErr = exp.Run(ctx)
	}
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	runID, err := st.Save(cfg, len(scene.Particles), len(scene.Mesh.Faces), resumedFrom, result)
	if err != nil {
		return err
	}
	if checkpoint {
		snap, verts, step, t := exp.Checkpoint()
		if err := st.SaveCheckpoint(runID, &storage.Checkpoint{Step: step, Time: t, Particles: snap, Vertices: verts}); err != nil {
			return err
		}
	}

	fields := []viz.Field{
		{Label: "run id", Value: runID},
		{Label: "steps", Value: fmt.Sprintf("%d", result.StepsTaken)},
		{Label: "simulated", Value: fmt.Sprintf("%.6gs", result.FinalTime)},
		{Label: "wall clock", Value: elapsed.Round(time.Millisecond).String()},
		{Label: "errors", Value: fmt.Sprintf("%d", len(result.Errors))},
	}
	if resumedFrom != "" {
		fields = append(fields, viz.Field{Label: "resumed from", Value: resumedFrom})
	}
	fmt.Println(viz.RenderSummary(cfg.Scene, fields, result.Metrics))
	fmt.Println(viz.RenderDiagnostics(result.Diagnostics, 5))
	for _, e := range result.Errors {
		fmt.Println(viz.StatusError.Render(e.Error()))
	}

	return runErr
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
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tPARTICLES\tSTEPS\tDT\tINTEG\tSTIFFNESS\tERRORS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.3gs\t%s\t%s\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Stiffness,
			len(run.Errors),
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	if len(series.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d (t = %.4g .. %.4g)\n\n", len(series.Times), series.Times[0], series.Times[len(series.Times)-1])

	names := series.Names
	if metric != "" {
		if _, ok := series.Values[metric]; !ok {
			return fmt.Errorf("unknown metric %q (available: %v)", metric, series.Names)
		}
		names = []string{metric}
	}

	for _, name := range names {
		graph := asciigraph.Plot(series.Values[name],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile != "" {
		svg := export.SeriesToSVG(series.Times, series.Values[names[0]], 800, 300, "#00ffff")
		if svg == "" {
			return fmt.Errorf("not enough samples for svg")
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}

	return nil
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	cp, err := st.LoadCheckpoint(runID)
	if err != nil {
		return fmt.Errorf("run %s has no checkpoint: %w", runID, err)
	}
	scene, err := experiment.BuildScene(cfg)
	if err != nil {
		return err
	}
	if err := particle.Restore(scene.Particles, cp.Particles); err != nil {
		return err
	}
	if err := scene.Mesh.Restore(cp.Vertices); err != nil {
		return err
	}

	cam := viz.NewCamera()
	cam.RotX = -0.3
	cam.Fit(scene.Particles, width, height)
	svg := export.SceneToSVG(scene.Particles, viz.FacePolygons(scene.Mesh), cam, width, height)
	if err := os.WriteFile(snapshotOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (step %d, t=%.6gs)\n", snapshotOut, cp.Step, cp.Time)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.ExportJSONTo(os.Stdout, data)
	}
	if err := storage.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := config.Scenes()
	if len(args) == 1 {
		scenes = []string{args[0]}
	}
	for _, scene := range scenes {
		presets := config.ListPresets(scene)
		if len(presets) == 0 {
			fmt.Printf("no presets for scene: %s\n", scene)
			continue
		}
		fmt.Printf("%s:\n", viz.Title.Render(scene))
		for _, p := range presets {
			fmt.Printf("  %s/%s\n", scene, p)
		}
	}
	return nil
}

func criticalDt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	scene, err := experiment.BuildScene(cfg)
	if err != nil {
		return err
	}

	crit := scene.CriticalTimeStep(cfg.Contact.Rotation)
	fmt.Printf("critical time step: %.4g s (rotation=%t)\n", crit, cfg.Contact.Rotation)
	fmt.Printf("configured dt:      %.4g s (%.0f%% of critical)\n", cfg.Dt, 100*cfg.Dt/crit)
	if cfg.Dt > crit {
		fmt.Println(viz.StatusError.Render("dt is above the estimate; expect the run to blow up"))
	}
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Duration = float64(benchSteps) * cfg.Dt
	cfg.OutputEvery = benchSteps

	exp := experiment.New(cfg, logger())
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	start := time.Now()
	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	n := len(exp.Scene().Particles)
	perStep := elapsed / time.Duration(max(result.StepsTaken, 1))
	fmt.Printf("%d steps, %d particles in %v\n", result.StepsTaken, n, elapsed)
	fmt.Printf("%v per step, %.0f particle-steps/s\n", perStep, float64(n*result.StepsTaken)/elapsed.Seconds())
	return nil
}

func parseSweep(specs []string) ([]string, [][]float64, error) {
	var names []string
	var ranges [][]float64
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, nil, fmt.Errorf("parameter %q: expected name=v1,v2", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func sweepScene(cmd *cobra.Command, args []string) error {
	if len(sweepParams) == 0 {
		return fmt.Errorf("no --param given (available: %v)", optim.Parameters())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseSweep(sweepParams)
	if err != nil {
		return err
	}
	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	grid.Maximize = maximize

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("sweeping %d combinations of %s...\n", grid.Size(), strings.Join(names, ", "))
	points, err := grid.Search(ctx, cfg, func(c *config.Config) (*experiment.Experiment, error) {
		exp := experiment.New(c, logger())
		if err := exp.Setup(experiment.NewRegistry()); err != nil {
			return nil, err
		}
		return exp, nil
	}, sweepMetric)

	keys := append([]string(nil), names...)
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(keys, "\t")), strings.ToUpper(sweepMetric))
	for _, p := range points {
		for _, k := range keys {
			fmt.Fprintf(w, "%.4g\t", p.Params[k])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "%s\n", viz.StatusError.Render(p.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "%.6g\n", p.Value)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}
