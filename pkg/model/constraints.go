package model

import (
	"slices"

	"github.com/limaJavier/coursescheduler/pkg/solver"
	"github.com/samber/lo"
)

type constraintState struct {
	model      *solver.Model
	tasks      []Task
	rooms      []Room
	keys       map[string][]CandidateKey
	candidates map[CandidateKey]solver.BoolVar
	indexer    indexer
}

// For every (room, day, slot) except the virtual room, at most one candidate occupying it is true.
// Returns the number of constraints added.
func roomExclusivityConstraints(state constraintState) int {
	roomIndex := make(map[string]int, len(state.rooms))
	for i, room := range state.rooms {
		if !room.Virtual() {
			roomIndex[room.Name] = i
		}
	}

	return occupancyConstraints(state, func(_ Task, key CandidateKey) []int {
		if index, ok := roomIndex[key.Room]; ok {
			return []int{index}
		}
		return nil
	})
}

// For every (teacher, day, slot) except sentinel teachers, at most one candidate occupying it is true.
// Returns the number of constraints added.
func teacherExclusivityConstraints(state constraintState) int {
	teachers := lo.Uniq(lo.FlatMap(state.tasks, func(task Task, _ int) []string {
		return lo.Reject(task.Teachers, func(teacher string, _ int) bool { return IsSentinelTeacher(teacher) })
	}))
	slices.Sort(teachers)

	// Teachers are numbered after rooms so both share the indexer
	teacherIndex := make(map[string]int, len(teachers))
	for i, teacher := range teachers {
		teacherIndex[teacher] = len(state.rooms) + i
	}

	return occupancyConstraints(state, func(task Task, _ CandidateKey) []int {
		indices := make([]int, 0, len(task.Teachers))
		for _, teacher := range task.Teachers {
			if index, ok := teacherIndex[teacher]; ok {
				indices = append(indices, index)
			}
		}
		return indices
	})
}

// Adds an at-most-one constraint per occupied cell. A candidate starting at slot s occupies
// [s, s+duration) of each resource returned for it.
func occupancyConstraints(state constraintState, resources func(task Task, key CandidateKey) []int) int {
	occupancy := make(map[uint64][]solver.BoolVar)
	for _, task := range state.tasks {
		for _, key := range state.keys[task.Id] {
			candidate := state.candidates[key]
			for _, resource := range resources(task, key) {
				for offset := range task.Duration {
					cell := state.indexer.Index(resource, key.Day, key.Slot+offset)
					occupancy[cell] = append(occupancy[cell], candidate)
				}
			}
		}
	}

	cells := lo.Keys(occupancy)
	slices.Sort(cells)

	added := 0
	for _, cell := range cells {
		if len(occupancy[cell]) < 2 {
			continue
		}
		state.model.AddLinearConstraint(solver.Sum(occupancy[cell]...), solver.LessOrEqual, 1)
		added++
	}
	return added
}
