package solver

import (
	"context"
	"slices"
	"time"
)

const checkInterval = 1024 // Nodes explored between two deadline checks

type branchAndBoundSolver struct{}

// NewBranchAndBoundSolver returns an in-process engine: depth-first search over the pseudo-boolean
// form of the model with slack-based propagation and objective bounding
func NewBranchAndBoundSolver() Solver {
	return &branchAndBoundSolver{}
}

func (solver *branchAndBoundSolver) Solve(ctx context.Context, model *Model, timeLimit time.Duration) (*Response, error) {
	started := time.Now()
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}

	pb := Compile(model)
	search := newSearch(pb)
	complete := search.run(ctx)

	var status Status
	switch {
	case complete && search.found:
		status = Optimal
	case complete:
		status = Infeasible
	case search.found:
		status = Feasible
	default:
		status = TimedOut
	}

	var values []int64
	if search.found {
		values = pb.decode(func(x int64) bool { return search.best[x] == 1 })
	}
	return newResponse(model, status, values, time.Since(started)), nil
}

type occurrence struct {
	constraint int
	coeff      int64
	positive   bool
}

type decision struct {
	variable int64
	trailLen int
	next     int
	flipped  bool
}

type search struct {
	pb          *PB
	terms       [][]PBTerm // Per constraint, sorted by decreasing coefficient
	occurrences [][]occurrence
	cost        []int64
	value       []int8 // 0 unassigned, 1 true, -1 false
	slack       []int64
	bound       int64 // Lower bound on the objective under the current partial assignment
	trail       []int64
	queue       []int
	queued      []bool

	best     []int8
	bestCost int64
	found    bool
	nodes    uint64
}

func newSearch(pb *PB) *search {
	n := pb.Variables + 1
	s := &search{
		pb:          pb,
		terms:       make([][]PBTerm, len(pb.Constraints)),
		occurrences: make([][]occurrence, n),
		cost:        make([]int64, n),
		value:       make([]int8, n),
		slack:       make([]int64, len(pb.Constraints)),
		queued:      make([]bool, len(pb.Constraints)),
	}

	for c, constraint := range pb.Constraints {
		terms := slices.Clone(constraint.Terms)
		slices.SortStableFunc(terms, func(a, b PBTerm) int {
			switch {
			case a.Coeff > b.Coeff:
				return -1
			case a.Coeff < b.Coeff:
				return 1
			}
			return 0
		})
		s.terms[c] = terms

		total := int64(0)
		for _, term := range terms {
			total += term.Coeff
			x := abs(term.Literal)
			s.occurrences[x] = append(s.occurrences[x], occurrence{constraint: c, coeff: term.Coeff, positive: term.Literal > 0})
		}
		s.slack[c] = total - constraint.Degree
	}

	for _, term := range pb.Objective {
		s.cost[term.Literal] += term.Coeff
	}
	for x := range s.cost {
		if s.cost[x] < 0 {
			s.bound += s.cost[x]
		}
	}
	return s
}

// run explores the search tree and reports whether it was exhausted
func (s *search) run(ctx context.Context) bool {
	for c := range s.pb.Constraints {
		s.enqueue(c)
	}
	if !s.propagate() {
		return true
	}

	stack := make([]decision, 0, len(s.pb.branching))
	next := 0
	for {
		s.nodes++
		if s.nodes%checkInterval == 0 && ctx.Err() != nil {
			return false
		}

		backtrack := s.found && s.bound >= s.bestCost
		if !backtrack {
			for next < len(s.pb.branching) && s.value[s.pb.branching[next]] != 0 {
				next++
			}
			if next == len(s.pb.branching) {
				s.record()
				backtrack = true
			} else {
				x := s.pb.branching[next]
				stack = append(stack, decision{variable: x, trailLen: len(s.trail), next: next})
				if s.decide(x, s.preferred(x)) {
					continue
				}
				backtrack = true
			}
		}

		// Undo decisions until one can be flipped consistently
		for {
			if len(stack) == 0 {
				return true
			}
			top := &stack[len(stack)-1]
			s.undo(top.trailLen)
			if top.flipped {
				stack = stack[:len(stack)-1]
				continue
			}
			top.flipped = true
			next = top.next
			if s.decide(top.variable, -s.preferred(top.variable)) {
				break
			}
		}
	}
}

func (s *search) preferred(x int64) int8 {
	if s.pb.phases[x] {
		return 1
	}
	return -1
}

func (s *search) record() {
	s.best = slices.Clone(s.value)
	s.bestCost = s.bound
	s.found = true
}

func (s *search) decide(x int64, value int8) bool {
	if !s.assign(x, value) {
		s.clearQueue()
		return false
	}
	return s.propagate()
}

// assign sets x and updates slacks; it reports false when some constraint can no longer be satisfied
func (s *search) assign(x int64, value int8) bool {
	s.value[x] = value
	s.trail = append(s.trail, x)

	if c := s.cost[x]; c > 0 && value == 1 {
		s.bound += c
	} else if c < 0 && value == -1 {
		s.bound -= c
	}

	consistent := true
	for _, occ := range s.occurrences[x] {
		if occ.positive == (value == -1) {
			s.slack[occ.constraint] -= occ.coeff
			if s.slack[occ.constraint] < 0 {
				consistent = false
			}
			s.enqueue(occ.constraint)
		}
	}
	return consistent
}

func (s *search) undo(trailLen int) {
	for len(s.trail) > trailLen {
		x := s.trail[len(s.trail)-1]
		s.trail = s.trail[:len(s.trail)-1]
		value := s.value[x]

		if c := s.cost[x]; c > 0 && value == 1 {
			s.bound -= c
		} else if c < 0 && value == -1 {
			s.bound += c
		}

		for _, occ := range s.occurrences[x] {
			if occ.positive == (value == -1) {
				s.slack[occ.constraint] += occ.coeff
			}
		}
		s.value[x] = 0
	}
}

// propagate forces every unassigned literal whose coefficient exceeds its constraint's slack
func (s *search) propagate() bool {
	for len(s.queue) > 0 {
		c := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		s.queued[c] = false

		if s.slack[c] < 0 {
			s.clearQueue()
			return false
		}
		for _, term := range s.terms[c] {
			if term.Coeff <= s.slack[c] {
				break
			}
			x := abs(term.Literal)
			if s.value[x] != 0 {
				continue
			}
			value := int8(1)
			if term.Literal < 0 {
				value = -1
			}
			if !s.assign(x, value) {
				s.clearQueue()
				return false
			}
		}
	}
	return true
}

func (s *search) enqueue(c int) {
	if !s.queued[c] {
		s.queued[c] = true
		s.queue = append(s.queue, c)
	}
}

func (s *search) clearQueue() {
	for _, c := range s.queue {
		s.queued[c] = false
	}
	s.queue = s.queue[:0]
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
