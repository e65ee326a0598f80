package model

import (
	"context"
	"fmt"

	"github.com/limaJavier/coursescheduler/pkg/solver"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type weightedTimetabler struct {
	engine  solver.Solver
	options Options
	logger  *zap.Logger
}

// NewWeightedTimetabler schedules as many tasks as possible, weighting fixed sessions over core courses
// over electives. A nil logger disables logging.
func NewWeightedTimetabler(engine solver.Solver, options Options, logger *zap.Logger) Timetabler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &weightedTimetabler{
		engine:  engine,
		options: options,
		logger:  logger,
	}
}

func (timetabler *weightedTimetabler) Build(ctx context.Context, input Input) (Timetable, error) {
	for _, warning := range multierr.Errors(input.Warnings) {
		timetabler.logger.Warn("input record skipped", zap.Error(warning))
	}

	//** Initialize dependencies
	grid := timetabler.options.Grid()
	unavailability := TeacherUnavailability(input, grid, timetabler.options)
	tasks := BuildTasks(input, timetabler.options)

	//** Build model
	builder := NewModelBuilder(tasks, input.Rooms, grid, unavailability, timetabler.options)
	model := builder.Build()
	stats := builder.Stats()
	timetabler.logger.Info("model built",
		zap.Stringer("mode", timetabler.options.Mode),
		zap.Int("tasks", stats.Tasks),
		zap.Int("candidates", stats.Candidates),
		zap.Int("penalties", stats.Penalties),
		zap.Int("unplaceable", stats.Unplaceable),
		zap.Int("variables", stats.Variables),
		zap.Int("constraints", stats.Constraints),
	)

	bound, err := builder.PlacementBound()
	if err != nil {
		timetabler.logger.Warn("placement bound unavailable", zap.Error(err))
		bound = stats.Tasks - stats.Unplaceable
	} else {
		timetabler.logger.Debug("placement bound computed", zap.Int("bound", bound))
	}

	//** Solve model
	response, err := timetabler.engine.Solve(ctx, model, timetabler.options.TimeLimit)
	if err != nil {
		return Timetable{Stats: stats, Bound: bound}, fmt.Errorf("engine failed: %w", err)
	}
	timetabler.logger.Info("engine finished",
		zap.Stringer("status", response.Status),
		zap.Int64("objective", response.ObjectiveValue),
		zap.Duration("wall_time", response.WallTime),
	)

	switch response.Status {
	case solver.Infeasible:
		return Timetable{Status: response.Status, Stats: stats, Bound: bound}, &ScheduleError{Kind: ErrInfeasible}
	case solver.TimedOut, solver.Unknown:
		return Timetable{Status: response.Status, Stats: stats, Bound: bound}, &ScheduleError{
			Kind: ErrTimedOut,
			Msg:  fmt.Sprintf("budget %v", timetabler.options.TimeLimit),
		}
	}

	//** Extract timetable
	timetable := ExtractSolution(builder, response)
	timetable.Stats = stats
	timetable.Bound = bound
	timetabler.logger.Info("timetable extracted",
		zap.Int("scheduled", len(timetable.Scheduled)),
		zap.Int("unscheduled", len(timetable.Unscheduled)),
	)
	return timetable, nil
}

func (timetabler *weightedTimetabler) Verify(timetable Timetable, input Input) bool {
	return verify(timetable, input, timetabler.options)
}
