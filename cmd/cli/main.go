package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/limaJavier/coursescheduler/internal/config"
	"github.com/limaJavier/coursescheduler/internal/csvio"
	"github.com/limaJavier/coursescheduler/internal/logger"
	"github.com/limaJavier/coursescheduler/internal/metrics"
	"github.com/limaJavier/coursescheduler/pkg/model"
	"github.com/limaJavier/coursescheduler/pkg/solver"
)

const (
	exitSuccess      = 10
	exitVerifyFailed = 15
	exitNoSolution   = 20
	constraintEngine = "cp"
	branchAndBound   = "branchbound"
)

// exitError carries a process exit code out of the command
type exitError struct {
	code int
}

func (err *exitError) Error() string {
	return fmt.Sprintf("exit status %v", err.code)
}

func main() {
	cmd := newRootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitSuccess)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coursescheduler",
		Short: "Builds a weekly course timetable from room, course and teacher records",
		Long: `Builds a weekly course timetable by maximizing the weighted number of scheduled sessions.

Modes:
- "compact" (sessions only inside the 09:00-16:00 core window)
- "flexible" (sessions anywhere in the day, leaving the core window costs one objective unit)

Exit codes: 10 on success, 15 when the timetable fails verification, 20 when no solution was found.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.String("mode", "compact", `Scheduling mode: "compact" or "flexible"`)
	flags.Duration("time-limit", 120*time.Second, "Time budget for the optimization engine")
	flags.String("engine", constraintEngine, `Optimization engine: "cp" (finite-domain search), "branchbound" (pseudo-boolean search) or the name of an external PB solver in the solver config`)
	flags.Int("workers", 1, `Parallel search workers of the "cp" engine`)
	flags.String("solver-config", "", "Path to the JSON file mapping external solvers to executables; defaults to config.json next to the executable")
	flags.String("input", "data", "Directory holding the CSV sources")
	flags.String("json", "", "Path to a JSON input bundle; takes precedence over --input")
	flags.String("delimiter", ",", "CSV delimiter of the input files")
	flags.String("output", "output", "Directory where the timetable is written")
	flags.String("name", "schedule", "Base name of the output files")
	flags.Bool("pdf", false, "Also render the timetable as PDF")
	flags.String("metrics", "", "Write run metrics in Prometheus text format to this file")
	flags.String("log-level", "info", "Log level")
	flags.String("log-format", "console", `Log format: "console" or "json"`)

	return cmd
}

func run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	options, err := cfg.Options()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("cannot build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck
	log = log.With(zap.String("run_id", uuid.NewString()))

	engine, err := newEngine(cfg.Engine)
	if err != nil {
		return err
	}

	// Extract input
	input, err := loadInput(cfg.Input)
	if err != nil {
		return fmt.Errorf("cannot load input: %w", err)
	}
	log.Info("input loaded",
		zap.Int("rooms", len(input.Rooms)),
		zap.Int("courses", len(input.Courses)),
		zap.Int("teachers", len(input.Teachers)),
		zap.Int("fixed", len(input.Fixed)),
	)

	// Build timetable
	timetabler := model.NewWeightedTimetabler(engine, options, log)
	started := time.Now()
	timetable, buildErr := timetabler.Build(ctx, input)
	elapsed := time.Since(started)

	recordMetrics(cfg.MetricsFile, options.Mode, timetable, elapsed, log)

	var scheduleErr *model.ScheduleError
	if errors.As(buildErr, &scheduleErr) {
		color.New(color.FgRed, color.Bold).Printf("NO SOLUTION: %v\n", scheduleErr)
		printStats(timetable.Stats)
		return &exitError{code: exitNoSolution}
	} else if buildErr != nil {
		return fmt.Errorf("an error occurred during timetable construction: %w", buildErr)
	}

	// Verify timetable correctness
	if !timetabler.Verify(timetable, input) {
		color.New(color.FgRed, color.Bold).Println("VERIFICATION FAILED")
		printStats(timetable.Stats)
		return &exitError{code: exitVerifyFailed}
	}

	paths, err := csvio.WriteTimetable(timetable, cfg.Output.Dir, cfg.Output.Name, cfg.Input.Delimiter)
	if err != nil {
		return err
	}
	if cfg.Output.PDF {
		pdfPath := filepath.Join(cfg.Output.Dir, cfg.Output.Name+".pdf")
		if err := csvio.WritePDF(timetable, pdfPath, fmt.Sprintf("Timetable (%v)", options.Mode)); err != nil {
			return err
		}
		paths = append(paths, pdfPath)
	}
	log.Info("timetable written", zap.Strings("paths", paths))

	status := color.New(color.FgGreen, color.Bold)
	if len(timetable.Unscheduled) > 0 {
		status = color.New(color.FgYellow, color.Bold)
	}
	status.Printf("%v: %v scheduled, %v unscheduled (bound %v)\n",
		timetable.Status, len(timetable.Scheduled), len(timetable.Unscheduled), timetable.Bound)
	if options.Mode == model.Flexible {
		fmt.Printf("Outside core window: %v\n", model.OutsidePenalties(timetable, options))
	}
	printStats(timetable.Stats)
	return nil
}

func newEngine(cfg config.EngineConfig) (solver.Solver, error) {
	switch cfg.Name {
	case constraintEngine:
		return solver.NewCPSolver(cfg.Workers), nil
	case branchAndBound:
		return solver.NewBranchAndBoundSolver(), nil
	}
	if err := setConfigPath(cfg.ConfigPath); err != nil {
		return nil, err
	}
	return solver.NewOPBSolver(cfg.Name), nil
}

func loadInput(cfg config.InputConfig) (model.Input, error) {
	if cfg.Json != "" {
		return model.InputFromJson(cfg.Json)
	}
	raw, err := csvio.Load(csvio.DefaultSources(cfg.Dir), cfg.Delimiter)
	if err != nil {
		return model.Input{}, err
	}
	return model.ProcessRawInput(raw), nil
}

func recordMetrics(file string, mode model.Mode, timetable model.Timetable, elapsed time.Duration, log *zap.Logger) {
	if file == "" {
		return
	}
	recorder := metrics.NewRecorder()
	recorder.ObserveRun(mode, timetable, elapsed)
	if err := recorder.WriteToTextfile(file); err != nil {
		log.Warn("metrics not written", zap.Error(err))
	}
}

func printStats(stats model.ModelStats) {
	fmt.Printf("Variables: %v\n", stats.Variables)
	fmt.Printf("Constraints: %v\n", stats.Constraints)
}

// Points the solver config to the given file or, when empty, to config.json next to the executable
func setConfigPath(configPath string) error {
	if configPath != "" {
		solver.ConfigPath = configPath
		return nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot determine executable path: %w", err)
	}
	execPath = path.Dir(execPath)

	// Verify config.json exists
	files, err := os.ReadDir(execPath)
	if err != nil {
		return fmt.Errorf("cannot read executable's directory: %w", err)
	}
	fileNames := lo.Map(files, func(file os.DirEntry, _ int) string { return file.Name() })

	if !slices.Contains(fileNames, "config.json") {
		return fmt.Errorf("config.json file was not found: %v", fileNames)
	}

	solver.ConfigPath = execPath + "/config.json"
	return nil
}
