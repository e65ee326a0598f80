package solver

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEngines(t *testing.T) {
	engines := map[string]Solver{
		"cp":          NewCPSolver(1),
		"branchbound": NewBranchAndBoundSolver(),
	}
	for name, solver := range engines {
		t.Run(name, func(t *testing.T) {
			testEngine(t, solver)
		})
	}
}

// Behavior every in-process engine shares
func testEngine(t *testing.T, solver Solver) {
	t.Run("Optimal selection under capacity", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		a, b, c := model.NewBoolVar("a"), model.NewBoolVar("b"), model.NewBoolVar("c")
		model.AddLinearConstraint(Sum(a, b, c), LessOrEqual, 2)
		model.Maximize(NewLinearExpr().AddBool(a, 3).AddBool(b, 2).AddBool(c, 2))

		//** Act
		response, err := solver.Solve(context.Background(), model, time.Second)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Optimal, response.Status)
		assert.Equal(t, int64(5), response.ObjectiveValue)
		assert.True(t, response.BoolValue(a))
		assert.NotEqual(t, response.BoolValue(b), response.BoolValue(c))
	})

	t.Run("Implication pins integer variables", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		x := model.NewBoolVar("x")
		day := model.NewIntVar(0, 4, "day")
		start := model.NewIntVar(0, 20, "start")
		end := model.NewIntVar(0, 26, "end")
		model.AddLinearConstraint(NewLinearExpr().AddInt(end, 1).AddInt(start, -1), Equal, 6)
		model.AddImplication(x, NewLinearExpr().AddInt(day, 1), Equal, 3)
		model.AddImplication(x, NewLinearExpr().AddInt(start, 1), Equal, 17)
		model.Maximize(Sum(x))

		//** Act
		response, err := solver.Solve(context.Background(), model, time.Second)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Optimal, response.Status)
		assert.True(t, response.BoolValue(x))
		assert.Equal(t, int64(3), response.Value(day))
		assert.Equal(t, int64(17), response.Value(start))
		assert.Equal(t, int64(23), response.Value(end))
	})

	t.Run("Negated enforcement literal", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		scheduled := model.NewBoolVar("scheduled")
		c1, c2 := model.NewBoolVar("c1"), model.NewBoolVar("c2")
		model.AddImplication(scheduled, Sum(c1, c2), Equal, 1)
		model.AddImplication(scheduled.Not(), Sum(c1, c2), Equal, 0)
		model.Maximize(NewLinearExpr().AddBool(scheduled, 10).AddBool(c1, -1))

		//** Act
		response, err := solver.Solve(context.Background(), model, time.Second)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Optimal, response.Status)
		assert.Equal(t, int64(10), response.ObjectiveValue)
		assert.True(t, response.BoolValue(scheduled))
		assert.False(t, response.BoolValue(c1))
		assert.True(t, response.BoolValue(c2))
		assert.False(t, response.BoolValue(c2.Not()))
	})

	t.Run("Forced false literal empties the sum", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		scheduled := model.NewBoolVar("scheduled")
		c := model.NewBoolVar("c")
		model.AddLinearConstraint(Sum(scheduled), Equal, 0)
		model.AddImplication(scheduled.Not(), Sum(c), Equal, 0)
		model.Maximize(NewLinearExpr().AddBool(scheduled, 5).AddBool(c, 1))

		//** Act
		response, err := solver.Solve(context.Background(), model, time.Second)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Optimal, response.Status)
		assert.Equal(t, int64(0), response.ObjectiveValue)
		assert.False(t, response.BoolValue(c))
	})

	t.Run("Infeasible model", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		a, b := model.NewBoolVar("a"), model.NewBoolVar("b")
		model.AddLinearConstraint(Sum(a, b), GreaterOrEqual, 3)

		//** Act
		response, err := solver.Solve(context.Background(), model, time.Second)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Infeasible, response.Status)
		assert.False(t, response.Status.HasSolution())
	})

	t.Run("Interrupted search without incumbent", func(t *testing.T) {
		//** Arrange
		model := pigeonholes(9, 8, false)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		//** Act
		response, err := solver.Solve(ctx, model, time.Minute)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, TimedOut, response.Status)
	})

	t.Run("Integer offsets and negative coefficients", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		x := model.NewIntVar(-3, 3, "x")
		y := model.NewIntVar(2, 6, "y")
		model.AddLinearConstraint(NewLinearExpr().AddInt(x, 1).AddInt(y, -1), GreaterOrEqual, -4)
		model.AddLinearConstraint(NewLinearExpr().AddInt(x, 1).AddInt(y, 1), LessOrEqual, 5)
		model.Maximize(NewLinearExpr().AddInt(x, 2).AddInt(y, -1))

		//** Act
		response, err := solver.Solve(context.Background(), model, time.Second)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Optimal, response.Status)
		assert.Equal(t, int64(3), response.Value(x))
		assert.Equal(t, int64(2), response.Value(y))
		assert.Equal(t, int64(4), response.ObjectiveValue)
	})
}

func TestBranchAndBound(t *testing.T) {
	solver := NewBranchAndBoundSolver()

	t.Run("Interrupted search keeps incumbent", func(t *testing.T) {
		//** Arrange
		model := pigeonholes(9, 8, true)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		//** Act
		response, err := solver.Solve(ctx, model, time.Minute)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, Feasible, response.Status)
		assert.Equal(t, int64(8), response.ObjectiveValue)
	})
}

// Builds the pigeonhole problem; optional pigeons may stay out of every hole
func pigeonholes(pigeons, holes int, optional bool) *Model {
	model := NewModel()
	objective := NewLinearExpr()
	placements := make([][]BoolVar, pigeons)
	for p := range pigeons {
		placed := model.NewBoolVar(fmt.Sprintf("placed_%d", p))
		objective.AddBool(placed, 1)
		placements[p] = make([]BoolVar, holes)
		for h := range holes {
			placements[p][h] = model.NewBoolVar(fmt.Sprintf("x_%d_%d", p, h))
		}
		if optional {
			model.AddImplication(placed, Sum(placements[p]...), Equal, 1)
			model.AddImplication(placed.Not(), Sum(placements[p]...), Equal, 0)
		} else {
			model.AddLinearConstraint(Sum(placements[p]...), Equal, 1)
		}
	}
	for h := range holes {
		column := make([]BoolVar, pigeons)
		for p := range pigeons {
			column[p] = placements[p][h]
		}
		model.AddLinearConstraint(Sum(column...), LessOrEqual, 1)
	}
	model.Maximize(objective)
	return model
}

func TestCompile(t *testing.T) {
	t.Run("OPB rendering", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		a, b := model.NewBoolVar("a"), model.NewBoolVar("b")
		model.AddLinearConstraint(Sum(a, b), LessOrEqual, 1)
		model.Maximize(NewLinearExpr().AddBool(a, 2).AddBool(b, 1))

		//** Act
		opb := Compile(model).ToOPB()

		//** Assert
		assert.Equal(t, "* #variable= 2 #constraint= 1\nmin: -2 x1 -1 x2 ;\n-1 x1 -1 x2 >= -1 ;\n", opb)
	})

	t.Run("Integer domains are trimmed", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		model.NewIntVar(0, 4, "day")
		model.NewIntVar(0, 7, "slot")
		model.NewIntVar(3, 3, "constant")

		//** Act
		pb := Compile(model)

		//** Assert
		assert.Equal(t, uint64(6), pb.Variables)
		assert.Len(t, pb.Constraints, 1)
	})

	t.Run("Trivial constraints are dropped", func(t *testing.T) {
		//** Arrange
		model := NewModel()
		a := model.NewBoolVar("a")
		model.AddLinearConstraint(Sum(a), GreaterOrEqual, 0)

		//** Act
		pb := Compile(model)

		//** Assert
		assert.Empty(t, pb.Constraints)
	})
}

func TestParseSolution(t *testing.T) {
	//** Arrange
	output := "c some comment\no -5\ns OPTIMUM FOUND\nv x1 -x2\nv ~x4 x3\n"

	//** Act
	status, assignment := parseSolution(output)

	//** Assert
	assert.Equal(t, Optimal, status)
	assert.Equal(t, map[int64]bool{1: true, 2: false, 3: true, 4: false}, assignment)
}

func TestOPBSolverWithoutConfig(t *testing.T) {
	//** Arrange
	previous := ConfigPath
	ConfigPath = filepath.Join(t.TempDir(), "missing.json")
	defer func() { ConfigPath = previous }()
	model := NewModel()
	model.NewBoolVar("a")

	//** Act
	_, err := NewOPBSolver("roundingsat").Solve(context.Background(), model, time.Second)

	//** Assert
	assert.Error(t, err)
}
