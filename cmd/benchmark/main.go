package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/limaJavier/coursescheduler/internal/csvio"
	"github.com/limaJavier/coursescheduler/pkg/model"
)

const KB = 1024

type ResultType int

const (
	solved ResultType = iota
	noSolution
	invalid
)

var resultTypes = map[ResultType]string{
	solved:     "solved",
	noSolution: "no-solution",
	invalid:    "invalid",
}

func (result ResultType) MarshalCSV() (string, error) {
	return resultTypes[result], nil
}

type Instance struct {
	Name    string
	Path    string
	Json    bool
	Rooms   int
	Courses int
	Fixed   int
	Tasks   int
}

type BenchmarkResult struct {
	Instance  string     `csv:"Instance"`
	Mode      string     `csv:"Mode"`
	Engine    string     `csv:"Engine"`
	Rooms     int        `csv:"Rooms"`
	Courses   int        `csv:"Courses"`
	Fixed     int        `csv:"Fixed"`
	Tasks     int        `csv:"Tasks"`
	Scheduled int        `csv:"Scheduled"`
	Duration  int64      `csv:"Duration(ms)"`
	Memory    float32    `csv:"Memory(MB)"`
	Cpu       int64      `csv:"CPU(%)"`
	Result    ResultType `csv:"Result"`
}

var (
	executablePath    = "../../bin/coursescheduler"
	instanceDirectory = "../../test/instances/"
	outputFile        = "benchmark_results.csv"
	engines           = []string{"cp"}
	modes             = []string{model.Compact.String(), model.Flexible.String()}
	timeLimit         = 120 * time.Second
)

func main() {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Runs every mode and engine combination over the instance directory and reports wall time, memory and outcome",
		Run: func(cmd *cobra.Command, args []string) {
			benchmark()
		},
	}
	cmd.Flags().StringVar(&executablePath, "bin", executablePath, "Path to the scheduler executable")
	cmd.Flags().StringVar(&instanceDirectory, "instances", instanceDirectory, "Directory holding one sub-directory (CSV sources) or JSON bundle per instance")
	cmd.Flags().StringVar(&outputFile, "out", outputFile, "Path of the CSV report")
	cmd.Flags().StringSliceVar(&engines, "engines", engines, "Engines to benchmark")
	cmd.Flags().DurationVar(&timeLimit, "time-limit", timeLimit, "Time budget per run")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func benchmark() {
	instances := getInstances()
	results := make([]BenchmarkResult, 0, len(instances)*len(modes)*len(engines))

	for _, instance := range instances {
		for _, mode := range modes {
			for _, engine := range engines {
				fmt.Printf("Benchmarking instance \"%v\" with mode \"%v\" and engine \"%v\"\n", instance.Name, mode, engine)

				duration, maxMemory, cpuPercentage, scheduled, result := measure(instance, mode, engine)

				results = append(results, BenchmarkResult{
					Instance:  instance.Name,
					Mode:      mode,
					Engine:    engine,
					Rooms:     instance.Rooms,
					Courses:   instance.Courses,
					Fixed:     instance.Fixed,
					Tasks:     instance.Tasks,
					Scheduled: scheduled,
					Duration:  duration,
					Memory:    maxMemory,
					Cpu:       cpuPercentage,
					Result:    result,
				})
			}
		}
	}

	toCsv(results)
}

func getInstances() []Instance {
	entries, err := os.ReadDir(instanceDirectory)
	if err != nil {
		log.Fatalf("cannot read directory: %v", err)
	}

	instances := make([]Instance, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(instanceDirectory, entry.Name())
		isJson := !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json")
		if !entry.IsDir() && !isJson {
			continue
		}

		var input model.Input
		if isJson {
			input, err = model.InputFromJson(path)
		} else {
			var raw model.RawInput
			raw, err = csvio.Load(csvio.DefaultSources(path), ',')
			input = model.ProcessRawInput(raw)
		}
		if err != nil {
			log.Fatalf("cannot parse instance %v: %v", path, err)
		}

		instances = append(instances, Instance{
			Name:    entry.Name(),
			Path:    path,
			Json:    isJson,
			Rooms:   len(input.Rooms),
			Courses: len(input.Courses),
			Fixed:   len(input.Fixed),
			Tasks:   len(model.BuildTasks(input, model.DefaultOptions(model.Compact))),
		})
	}
	return instances
}

func measure(instance Instance, mode, engine string) (duration int64, maxMemory float32, cpuPercentage int64, scheduled int, result ResultType) {
	outDir, err := os.MkdirTemp("", "benchmark-*")
	if err != nil {
		log.Fatalf("cannot create output directory: %v", err)
	}
	defer os.RemoveAll(outDir)

	source := "--input"
	if instance.Json {
		source = "--json"
	}
	cmd := exec.Command("/usr/bin/time", "-v", executablePath,
		source, instance.Path,
		"--mode", mode,
		"--engine", engine,
		"--time-limit", timeLimit.String(),
		"--output", outDir,
		"--log-level", "error",
	)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	switch cmd.ProcessState.ExitCode() {
	case 10:
		result = solved
		scheduled = countScheduled(filepath.Join(outDir, "schedule.csv"))
	case 15:
		result = invalid
	case 20:
		result = noSolution
	default:
		log.Fatalf("an error occurred during the execution of the scheduler at instance \"%v\" using mode \"%v\", engine \"%v\": %v\n", instance.Name, mode, engine, stdErr.String())
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, scheduled, result
}

func countScheduled(path string) int {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("cannot read schedule: %v", err)
	}
	lines := lo.Filter(strings.Split(string(content), "\n"), func(line string, _ int) bool { return line != "" })
	return max(len(lines)-1, 0) // Header
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create(outputFile)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		log.Panicf("cannot write CSV report: %v", err)
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.TrimSpace(strings.Split(line, ":")[1])
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / KB
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.TrimSpace(strings.Split(line, ":")[1])
	percentageStr = strings.TrimSuffix(percentageStr, "%")
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
