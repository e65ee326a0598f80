package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// ConfigPath points to a JSON object mapping solver names to executable paths
var ConfigPath = "config.json"

// Parses the competition output format: "s <status>" lines and "v <literals>" lines
func parseSolution(solverOutput string) (Status, map[int64]bool) {
	lines := strings.Split(solverOutput, "\n")

	status := Unknown
	if statusLine, ok := lo.Find(lines, func(line string) bool { return strings.HasPrefix(line, "s ") }); ok {
		switch strings.TrimSpace(statusLine[2:]) {
		case "OPTIMUM FOUND":
			status = Optimal
		case "SATISFIABLE":
			status = Feasible
		case "UNSATISFIABLE":
			status = Infeasible
		}
	}

	literals := lo.FlatMap(
		lo.Filter(lines, func(line string, _ int) bool {
			return strings.HasPrefix(line, "v ")
		}),
		func(line string, _ int) []string {
			return strings.Fields(line[2:])
		},
	)

	assignment := make(map[int64]bool, len(literals))
	for _, literal := range literals {
		negated := strings.HasPrefix(literal, "-") || strings.HasPrefix(literal, "~")
		literal = strings.TrimLeft(literal, "-~")
		literal = strings.TrimPrefix(literal, "x")
		variable, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			continue
		}
		assignment[variable] = !negated
	}
	return status, assignment
}

func getExecutablePath(solver string) (string, error) {
	bytes, err := os.ReadFile(ConfigPath)
	if err != nil {
		return "", fmt.Errorf("cannot read solver config %v: %w", ConfigPath, err)
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return "", fmt.Errorf("cannot parse solver config %v: %w", ConfigPath, err)
	}

	var config map[string]string
	if err := mapstructure.Decode(inputJson, &config); err != nil {
		return "", fmt.Errorf("cannot decode solver config %v: %w", ConfigPath, err)
	}

	path, ok := config[solver]
	if !ok {
		return "", fmt.Errorf("solver \"%v\" is not present in config", solver)
	}
	return path, nil
}
