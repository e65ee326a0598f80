package model

import (
	"fmt"
	"slices"

	"github.com/limaJavier/coursescheduler/pkg/solver"
	"github.com/samber/lo"
)

// CandidateKey identifies a feasible placement of a task before solving
type CandidateKey struct {
	Task string
	Room string
	Day  int
	Slot int
}

type taskVariables struct {
	scheduled solver.BoolVar
	day       solver.IntVar
	start     solver.IntVar
	end       solver.IntVar
}

type ModelStats struct {
	Tasks       int
	Candidates  int
	Penalties   int
	Unplaceable int // Tasks without any candidate
	Variables   int
	Constraints int
}

// ModelBuilder assembles the constraint model of a set of tasks. Variables are kept in maps keyed by
// task id and CandidateKey, so the model can be inspected before and after solving.
type ModelBuilder struct {
	options   Options
	grid      *TimeGrid
	rooms     []Room
	tasks     []Task
	evaluator predicateEvaluator

	model      *solver.Model
	variables  map[string]taskVariables
	candidates map[CandidateKey]solver.BoolVar
	keys       map[string][]CandidateKey // Candidate keys per task in creation order
	penalties  []solver.BoolVar
	objective  *solver.LinearExpr
}

func NewModelBuilder(tasks []Task, rooms []Room, grid *TimeGrid, unavailability map[string]Unavailability, options Options) *ModelBuilder {
	return &ModelBuilder{
		options:    options,
		grid:       grid,
		rooms:      rooms,
		tasks:      tasks,
		evaluator:  newPredicateEvaluator(options, grid, unavailability),
		variables:  make(map[string]taskVariables, len(tasks)),
		candidates: make(map[CandidateKey]solver.BoolVar),
		keys:       make(map[string][]CandidateKey, len(tasks)),
	}
}

// Build creates the model on the first call and returns the same model afterwards
func (builder *ModelBuilder) Build() *solver.Model {
	if builder.model != nil {
		return builder.model
	}
	builder.model = solver.NewModel()
	builder.objective = solver.NewLinearExpr()

	for _, task := range builder.tasks {
		builder.addTask(task)
	}

	state := constraintState{
		model:      builder.model,
		tasks:      builder.tasks,
		rooms:      builder.rooms,
		keys:       builder.keys,
		candidates: builder.candidates,
		indexer:    newIndexer(len(builder.options.Days), builder.grid.Len()),
	}
	constraints := []func(state constraintState) int{
		roomExclusivityConstraints,
		teacherExclusivityConstraints,
	}
	for _, constraint := range constraints {
		constraint(state)
	}

	for _, penalty := range builder.penalties {
		builder.objective.AddBool(penalty, -1)
	}
	builder.model.Maximize(builder.objective)
	return builder.model
}

func (builder *ModelBuilder) addTask(task Task) {
	id := task.Id
	slots := int64(builder.grid.Len())
	variables := taskVariables{
		scheduled: builder.model.NewBoolVar("sched_" + id),
		day:       builder.model.NewIntVar(0, int64(len(builder.options.Days)-1), "d_"+id),
		start:     builder.model.NewIntVar(0, slots-1, "s_"+id),
		end:       builder.model.NewIntVar(0, slots-1+int64(task.Duration), "e_"+id),
	}
	builder.variables[id] = variables

	// end = start + duration
	builder.model.AddLinearConstraint(
		solver.NewLinearExpr().AddInt(variables.end, 1).AddInt(variables.start, -1),
		solver.Equal,
		int64(task.Duration),
	)

	candidates := make([]solver.BoolVar, 0)
	for _, room := range builder.rooms {
		if !builder.evaluator.Suitable(task, room) {
			continue
		}
		for day, dayName := range builder.options.Days {
			for slot := range builder.grid.Len() {
				if !builder.evaluator.Locked(task, room, day, slot) ||
					!builder.evaluator.Placeable(task, slot) ||
					!builder.evaluator.TeachersAvailable(task, day, slot) {
					continue
				}
				outside := !builder.evaluator.InCoreWindow(task, slot)
				if outside && builder.options.Mode == Compact {
					continue
				}

				key := CandidateKey{Task: id, Room: room.Name, Day: day, Slot: slot}
				candidate := builder.model.NewBoolVar(fmt.Sprintf("%v_%v_%v_%d", id, room.Name, dayName, slot))
				builder.candidates[key] = candidate
				builder.keys[id] = append(builder.keys[id], key)
				candidates = append(candidates, candidate)

				// A chosen candidate pins the task's day and start
				builder.model.AddImplication(candidate, solver.NewLinearExpr().AddInt(variables.day, 1), solver.Equal, int64(day))
				builder.model.AddImplication(candidate, solver.NewLinearExpr().AddInt(variables.start, 1), solver.Equal, int64(slot))

				if outside {
					builder.penalties = append(builder.penalties, candidate)
				}
			}
		}
	}

	//** Linkage: exactly one candidate if scheduled, none otherwise
	if len(candidates) == 0 {
		builder.model.AddLinearConstraint(solver.Sum(variables.scheduled), solver.Equal, 0)
	} else {
		builder.model.AddImplication(variables.scheduled, solver.Sum(candidates...), solver.Equal, 1)
		builder.model.AddImplication(variables.scheduled.Not(), solver.Sum(candidates...), solver.Equal, 0)
	}

	builder.objective.AddBool(variables.scheduled, task.Weight(builder.options.Weights))
}

func (builder *ModelBuilder) Tasks() []Task {
	return builder.tasks
}

// Candidates returns the candidate keys of a task in creation order
func (builder *ModelBuilder) Candidates(task string) []CandidateKey {
	return slices.Clone(builder.keys[task])
}

func (builder *ModelBuilder) Candidate(key CandidateKey) (solver.BoolVar, bool) {
	candidate, ok := builder.candidates[key]
	return candidate, ok
}

func (builder *ModelBuilder) Scheduled(task string) solver.BoolVar {
	return builder.variables[task].scheduled
}

func (builder *ModelBuilder) Penalties() []solver.BoolVar {
	return slices.Clone(builder.penalties)
}

func (builder *ModelBuilder) Stats() ModelStats {
	model := builder.Build()
	return ModelStats{
		Tasks:       len(builder.tasks),
		Candidates:  len(builder.candidates),
		Penalties:   len(builder.penalties),
		Unplaceable: lo.CountBy(builder.tasks, func(task Task) bool { return len(builder.keys[task.Id]) == 0 }),
		Variables:   model.NumVariables(),
		Constraints: model.NumConstraints(),
	}
}
