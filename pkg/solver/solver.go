package solver

import (
	"context"
	"time"
)

type Status int

const (
	Unknown Status = iota
	Optimal
	Feasible
	Infeasible
	TimedOut
)

var statusNames = map[Status]string{
	Unknown:    "UNKNOWN",
	Optimal:    "OPTIMAL",
	Feasible:   "FEASIBLE",
	Infeasible: "INFEASIBLE",
	TimedOut:   "TIMED_OUT",
}

func (status Status) String() string {
	return statusNames[status]
}

// HasSolution reports whether the response carries variable values
func (status Status) HasSolution() bool {
	return status == Optimal || status == Feasible
}

type Solver interface {
	// Solve runs until an optimal solution is proven, the model is shown infeasible, the
	// time limit expires or ctx is done. Infeasible and timed-out outcomes are statuses, not errors;
	// an error means the engine itself failed.
	Solve(ctx context.Context, model *Model, timeLimit time.Duration) (*Response, error)
}

type Response struct {
	Status         Status
	ObjectiveValue int64
	WallTime       time.Duration
	values         []int64
}

func (response *Response) Value(v IntVar) int64 {
	return response.values[v.index]
}

func (response *Response) BoolValue(b BoolVar) bool {
	value := response.values[b.index] == 1
	if b.negated {
		return !value
	}
	return value
}

// Evaluate computes expr under the response's values
func (response *Response) Evaluate(expr LinearExpr) int64 {
	total := expr.Offset
	for _, term := range expr.Terms {
		total += term.Coeff * response.values[term.Variable]
	}
	return total
}

func newResponse(model *Model, status Status, values []int64, wallTime time.Duration) *Response {
	response := &Response{Status: status, WallTime: wallTime, values: values}
	if values != nil {
		response.ObjectiveValue = response.Evaluate(model.objective)
	}
	return response
}
