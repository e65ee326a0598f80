package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitrdm/gokando/pkg/minikanren"
)

type cpSolver struct {
	workers int
}

// NewCPSolver returns the in-process finite-domain engine. Variables become gokando FD variables,
// linear constraints become LinearSum totals with restricted domains and enforcement literals are
// linked to reified relations. workers > 1 runs the branch-and-bound in parallel.
func NewCPSolver(workers int) Solver {
	return &cpSolver{workers: workers}
}

func (solver *cpSolver) Solve(ctx context.Context, model *Model, timeLimit time.Duration) (*Response, error) {
	started := time.Now()

	lowered, err := lower(model)
	if err != nil {
		return nil, err
	}
	if lowered.infeasible {
		return newResponse(model, Infeasible, nil, time.Since(started)), nil
	}

	options := []minikanren.OptimizeOption{
		minikanren.WithHeuristics(minikanren.HeuristicDomDeg, minikanren.ValueOrderDesc, 42),
	}
	if timeLimit > 0 {
		options = append(options, minikanren.WithTimeLimit(timeLimit))
	}
	if solver.workers > 1 {
		options = append(options, minikanren.WithParallelWorkers(solver.workers))
	}

	engine := minikanren.NewSolver(lowered.fd)
	var solution []int
	if lowered.objective != nil {
		solution, _, err = engine.SolveOptimalWithOptions(ctx, lowered.objective, false, options...)
	} else {
		solution, err = solveFirst(ctx, engine, timeLimit)
	}

	var status Status
	switch {
	case err == nil && solution != nil:
		status = Optimal
	case err == nil:
		status = Infeasible
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, minikanren.ErrSearchLimitReached):
		status = TimedOut
		if solution != nil {
			status = Feasible
		}
	default:
		return nil, fmt.Errorf("finite-domain search failed: %w", err)
	}

	var values []int64
	if solution != nil {
		values = lowered.decode(solution)
	}
	return newResponse(model, status, values, time.Since(started)), nil
}

// Models without objective only need one assignment
func solveFirst(ctx context.Context, engine *minikanren.Solver, timeLimit time.Duration) ([]int, error) {
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}
	solutions, err := engine.Solve(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(solutions) == 0 {
		return nil, nil
	}
	return solutions[0], nil
}

// FD domains start at 1, so a model value v of a variable with domain [lo, hi] is stored as v-lo+1.
// Booleans land on {1, 2}, the false/true encoding gokando reifies against.
type loweredModel struct {
	model      *Model
	fd         *minikanren.Model
	vars       []*minikanren.FDVariable
	objective  *minikanren.FDVariable
	infeasible bool

	constants map[int]*minikanren.FDVariable
	equals    map[[2]int]*minikanren.FDVariable
	aux       int
}

// fdSum is Σ coeffs[i]*vars[i] + constant over FD values
type fdSum struct {
	vars     []*minikanren.FDVariable
	coeffs   []int
	constant int
	min, max int
}

func lower(model *Model) (*loweredModel, error) {
	lowered := &loweredModel{
		model:     model,
		fd:        minikanren.NewModel(),
		vars:      make([]*minikanren.FDVariable, len(model.variables)),
		constants: make(map[int]*minikanren.FDVariable),
		equals:    make(map[[2]int]*minikanren.FDVariable),
	}
	for i, v := range model.variables {
		lowered.vars[i] = lowered.fd.IntVar(1, int(v.hi-v.lo+1), v.name)
	}

	for _, constraint := range model.constraints {
		var err error
		if len(constraint.Enforcement) == 0 {
			err = lowered.post(constraint)
		} else {
			err = lowered.postEnforced(constraint)
		}
		if err != nil {
			return nil, err
		}
		if lowered.infeasible {
			return lowered, nil
		}
	}

	if len(model.objective.Terms) > 0 {
		sum := lowered.sum(model.objective)
		if len(sum.vars) > 0 {
			objective, err := lowered.total(sum, sum.min, sum.max, "objective")
			if err != nil {
				return nil, err
			}
			lowered.objective = objective
		}
	}
	return lowered, nil
}

func (lowered *loweredModel) decode(solution []int) []int64 {
	values := make([]int64, len(lowered.vars))
	for i, v := range lowered.vars {
		values[i] = int64(solution[v.ID()]) - 1 + lowered.model.variables[i].lo
	}
	return values
}

// sum rewrites a model expression over FD values, merging repeated variables
func (lowered *loweredModel) sum(expr LinearExpr) fdSum {
	coeffs := make(map[int]int64)
	order := make([]int, 0, len(expr.Terms))
	constant := expr.Offset
	for _, term := range expr.Terms {
		if _, ok := coeffs[term.Variable]; !ok {
			order = append(order, term.Variable)
		}
		coeffs[term.Variable] += term.Coeff
		constant += term.Coeff * (lowered.model.variables[term.Variable].lo - 1)
	}

	sum := fdSum{constant: int(constant)}
	for _, index := range order {
		coeff := int(coeffs[index])
		if coeff == 0 {
			continue
		}
		size := int(lowered.model.variables[index].hi - lowered.model.variables[index].lo + 1)
		sum.vars = append(sum.vars, lowered.vars[index])
		sum.coeffs = append(sum.coeffs, coeff)
		if coeff > 0 {
			sum.min += coeff
			sum.max += coeff * size
		} else {
			sum.min += coeff * size
			sum.max += coeff
		}
	}
	return sum
}

// total posts T = Σ coeffs*vars + shift with T restricted to [lo, hi] in sum space. The shift keeps
// T positive; returns nil when the range is empty.
func (lowered *loweredModel) total(sum fdSum, lo, hi int, name string) (*minikanren.FDVariable, error) {
	lo, hi = max(lo, sum.min), min(hi, sum.max)
	if lo > hi {
		return nil, nil
	}
	shift := max(0, 1-sum.min)

	vars, coeffs := sum.vars, sum.coeffs
	if shift > 0 {
		vars = append(append([]*minikanren.FDVariable(nil), vars...), lowered.constant(shift))
		coeffs = append(append([]int(nil), coeffs...), 1)
	}
	total := lowered.fd.IntVar(lo+shift, hi+shift, name)
	constraint, err := minikanren.NewLinearSum(vars, coeffs, total)
	if err != nil {
		return nil, fmt.Errorf("cannot lower %v: %w", name, err)
	}
	lowered.fd.AddConstraint(constraint)
	return total, nil
}

// accepted returns the range of Σ coeffs*vars allowed by "sum + constant relation bound"
func accepted(sum fdSum, relation Relation, bound int64) (lo, hi int) {
	target := int(bound) - sum.constant
	switch relation {
	case LessOrEqual:
		return sum.min, target
	case GreaterOrEqual:
		return target, sum.max
	default:
		return target, target
	}
}

func (lowered *loweredModel) post(constraint Constraint) error {
	sum := lowered.sum(constraint.Expr)
	lo, hi := accepted(sum, constraint.Relation, constraint.Bound)
	if len(sum.vars) == 0 {
		lowered.infeasible = lo > 0 || hi < 0
		return nil
	}
	if lo <= sum.min && hi >= sum.max {
		return nil
	}
	total, err := lowered.total(sum, lo, hi, lowered.auxName("sum"))
	if total == nil && err == nil {
		lowered.infeasible = true
	}
	return err
}

// postEnforced links each enforcement literal to a boolean reifying the relation
func (lowered *loweredModel) postEnforced(constraint Constraint) error {
	sum := lowered.sum(constraint.Expr)
	lo, hi := accepted(sum, constraint.Relation, constraint.Bound)

	var holds *minikanren.FDVariable
	var err error
	switch {
	case lo <= sum.min && hi >= sum.max:
		return nil
	case len(sum.vars) == 0 || lo > hi || hi < sum.min || lo > sum.max:
		for _, literal := range constraint.Enforcement {
			if err := lowered.forbid(literal); err != nil {
				return err
			}
		}
		return nil
	case len(sum.vars) == 1 && lo == hi:
		holds, err = lowered.valueEquals(sum, lo)
	default:
		holds, err = lowered.reify(sum, lo, hi)
	}
	if err != nil {
		return err
	}
	if holds == nil {
		for _, literal := range constraint.Enforcement {
			if err := lowered.forbid(literal); err != nil {
				return err
			}
		}
		return nil
	}

	for _, literal := range constraint.Enforcement {
		if err := lowered.implies(literal, holds); err != nil {
			return err
		}
	}
	return nil
}

// valueEquals reifies coeff*x == target, sharing the boolean between constraints that pin the same value
func (lowered *loweredModel) valueEquals(sum fdSum, target int) (*minikanren.FDVariable, error) {
	x, coeff := sum.vars[0], sum.coeffs[0]
	if target%coeff != 0 {
		return nil, nil
	}
	value := target / coeff
	if value < 1 || value > x.Domain().MaxValue() {
		return nil, nil
	}

	key := [2]int{x.ID(), value}
	if holds, ok := lowered.equals[key]; ok {
		return holds, nil
	}
	holds := lowered.boolean(fmt.Sprintf("%v==%d", x.Name(), value))
	constraint, err := minikanren.NewValueEqualsReified(x, value, holds)
	if err != nil {
		return nil, fmt.Errorf("cannot reify %v: %w", x.Name(), err)
	}
	lowered.fd.AddConstraint(constraint)
	lowered.equals[key] = holds
	return holds, nil
}

// reify defines T over the full range of the sum and reifies T against the accepted range
func (lowered *loweredModel) reify(sum fdSum, lo, hi int) (*minikanren.FDVariable, error) {
	total, err := lowered.total(sum, sum.min, sum.max, lowered.auxName("sum"))
	if err != nil {
		return nil, err
	}
	shift := max(0, 1-sum.min)
	lo, hi = max(lo, sum.min), min(hi, sum.max)

	var relation minikanren.PropagationConstraint
	switch {
	case lo == hi:
		relation, err = minikanren.NewArithmetic(total, lowered.constant(lo+shift), 0)
	case lo == sum.min:
		relation, err = minikanren.NewInequality(total, lowered.constant(hi+shift), minikanren.LessEqual)
	default:
		relation, err = minikanren.NewInequality(total, lowered.constant(lo+shift), minikanren.GreaterEqual)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot build relation: %w", err)
	}

	holds := lowered.boolean(lowered.auxName("holds"))
	reified, err := minikanren.NewReifiedConstraint(relation, holds)
	if err != nil {
		return nil, fmt.Errorf("cannot reify relation: %w", err)
	}
	lowered.fd.AddConstraint(reified)
	return holds, nil
}

// implies posts literal => holds
func (lowered *loweredModel) implies(literal BoolVar, holds *minikanren.FDVariable) error {
	b := lowered.vars[literal.index]
	if !literal.negated {
		constraint, err := minikanren.NewInequality(b, holds, minikanren.LessEqual)
		if err != nil {
			return fmt.Errorf("cannot link %v: %w", b.Name(), err)
		}
		lowered.fd.AddConstraint(constraint)
		return nil
	}

	// b false (1) forces holds true (2): b + holds >= 3
	either := lowered.fd.IntVar(3, 4, lowered.auxName("either"))
	constraint, err := minikanren.NewLinearSum([]*minikanren.FDVariable{b, holds}, []int{1, 1}, either)
	if err != nil {
		return fmt.Errorf("cannot link %v: %w", b.Name(), err)
	}
	lowered.fd.AddConstraint(constraint)
	return nil
}

// forbid fixes a literal to false
func (lowered *loweredModel) forbid(literal BoolVar) error {
	value := 1
	if literal.negated {
		value = 2
	}
	b := lowered.vars[literal.index]
	constraint, err := minikanren.NewLinearSum([]*minikanren.FDVariable{b}, []int{1}, lowered.constant(value))
	if err != nil {
		return fmt.Errorf("cannot fix %v: %w", b.Name(), err)
	}
	lowered.fd.AddConstraint(constraint)
	return nil
}

func (lowered *loweredModel) boolean(name string) *minikanren.FDVariable {
	return lowered.fd.IntVar(1, 2, name)
}

// constant returns a singleton variable; value must be positive
func (lowered *loweredModel) constant(value int) *minikanren.FDVariable {
	if v, ok := lowered.constants[value]; ok {
		return v
	}
	v := lowered.fd.IntVar(value, value, fmt.Sprintf("const_%d", value))
	lowered.constants[value] = v
	return v
}

func (lowered *loweredModel) auxName(prefix string) string {
	lowered.aux++
	return fmt.Sprintf("%v_%d", prefix, lowered.aux)
}
