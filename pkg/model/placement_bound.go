package model

import (
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Largest tasks × placements product for which the matching is computed
const placementBoundLimit = 2_000_000

type placementKey struct {
	room string
	day  int
	slot int
}

// PlacementBound returns an upper bound on the number of tasks that can be scheduled together. Two
// sessions never start in the same physical room at the same day and slot, so a largest matching
// between tasks and their start placements bounds every solution. Tasks that can go online are always
// counted. When the graph is too large the number of tasks with candidates is returned instead.
func (builder *ModelBuilder) PlacementBound() (int, error) {
	builder.Build()

	online := 0
	tasks := make([]any, 0)
	adjacency := make(map[string]map[placementKey]bool)
	placements := make([]any, 0)
	seen := make(map[placementKey]bool)
	for _, task := range builder.tasks {
		keys := builder.keys[task.Id]
		if len(keys) == 0 {
			continue
		}
		if lo.SomeBy(keys, func(key CandidateKey) bool { return key.Room == OnlineRoom }) {
			online++
			continue
		}

		tasks = append(tasks, task.Id)
		adjacency[task.Id] = make(map[placementKey]bool, len(keys))
		for _, key := range keys {
			placement := placementKey{room: key.Room, day: key.Day, slot: key.Slot}
			adjacency[task.Id][placement] = true
			if !seen[placement] {
				seen[placement] = true
				placements = append(placements, placement)
			}
		}
	}

	if len(tasks) == 0 || len(tasks)*len(placements) > placementBoundLimit {
		return online + len(tasks), nil
	}

	neighbors := func(taskAny any, placementAny any) (bool, error) {
		return adjacency[taskAny.(string)][placementAny.(placementKey)], nil
	}

	graph, err := bipartitegraph.NewBipartiteGraph(tasks, placements, neighbors)
	if err != nil {
		return 0, err
	}
	return online + len(graph.LargestMatching()), nil
}
