package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

type opbSolver struct {
	name string
}

// NewOPBSolver returns an engine that runs an external pseudo-boolean solver. The executable is
// looked up by name in the file at ConfigPath.
func NewOPBSolver(name string) Solver {
	return &opbSolver{name: name}
}

func (solver *opbSolver) Solve(ctx context.Context, model *Model, timeLimit time.Duration) (*Response, error) {
	started := time.Now()
	executablePath, err := getExecutablePath(solver.name)
	if err != nil {
		return nil, err
	}

	pb := Compile(model)
	opb := pb.ToOPB() // Transform the model into OPB string format

	// Create a temporary file to hold the OPB content
	tmpFile, err := os.CreateTemp("", "model-*.opb")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(opb); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write OPB to temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, executablePath, tmpFile.Name())

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Exit-code of 10 stands for satisfiable, 20 for unsatisfiable and 30 for optimum found
	err = cmd.Run()
	interrupted := ctx.Err() != nil
	if err != nil && !interrupted {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("an error occurred during %v execution: %w", solver.name, err)
		}
		switch exitErr.ExitCode() {
		case 10, 20, 30:
		default:
			return nil, fmt.Errorf("an error occurred during %v execution: %v : %v", solver.name, err.Error(), stderr.String())
		}
	}

	status, assignment := parseSolution(stdOut.String())
	switch {
	case status == Unknown && len(assignment) > 0:
		status = Feasible
	case status == Unknown && interrupted:
		status = TimedOut
	case status == Feasible && !interrupted && len(pb.Objective) == 0:
		status = Optimal
	}

	var values []int64
	if status.HasSolution() {
		values = pb.decode(func(x int64) bool { return assignment[x] })
	}
	return newResponse(model, status, values, time.Since(started)), nil
}
