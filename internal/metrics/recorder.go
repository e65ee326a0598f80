package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/limaJavier/coursescheduler/pkg/model"
)

// Recorder keeps the instrumentation of scheduling runs in its own registry so it can be dumped
// to a node-exporter textfile after a batch run.
type Recorder struct {
	registry *prometheus.Registry

	tasks        prometheus.Gauge
	scheduled    prometheus.Gauge
	unscheduled  prometheus.Gauge
	candidates   prometheus.Gauge
	bound        prometheus.Gauge
	objective    prometheus.Gauge
	solveSeconds *prometheus.HistogramVec
	runs         *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	recorder := &Recorder{
		registry: registry,
		tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_tasks",
			Help: "Number of schedulable tasks in the last run",
		}),
		scheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_scheduled_tasks",
			Help: "Number of tasks placed in the last run",
		}),
		unscheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_unscheduled_tasks",
			Help: "Number of tasks left unscheduled in the last run",
		}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_candidates",
			Help: "Number of (task, room, day, slot) candidates in the last run",
		}),
		bound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_placement_bound",
			Help: "Upper bound on the tasks the last run could place",
		}),
		objective: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_objective",
			Help: "Objective value of the last run",
		}),
		solveSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_solve_duration_seconds",
			Help:    "Wall time spent building and solving a timetable",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"mode"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Scheduling runs by engine status",
		}, []string{"mode", "status"}),
	}

	registry.MustRegister(
		recorder.tasks,
		recorder.scheduled,
		recorder.unscheduled,
		recorder.candidates,
		recorder.bound,
		recorder.objective,
		recorder.solveSeconds,
		recorder.runs,
	)
	return recorder
}

func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// ObserveRun records one run. The timetable may come from a failed run, in which case only its
// status and statistics are meaningful.
func (recorder *Recorder) ObserveRun(mode model.Mode, timetable model.Timetable, elapsed time.Duration) {
	recorder.tasks.Set(float64(timetable.Stats.Tasks))
	recorder.scheduled.Set(float64(len(timetable.Scheduled)))
	recorder.unscheduled.Set(float64(len(timetable.Unscheduled)))
	recorder.candidates.Set(float64(timetable.Stats.Candidates))
	recorder.bound.Set(float64(timetable.Bound))
	recorder.objective.Set(float64(timetable.Objective))
	recorder.solveSeconds.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
	recorder.runs.WithLabelValues(mode.String(), timetable.Status.String()).Inc()
}

func (recorder *Recorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, recorder.registry); err != nil {
		return fmt.Errorf("cannot write metrics to %v: %w", path, err)
	}
	return nil
}
