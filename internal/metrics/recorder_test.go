package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/coursescheduler/pkg/model"
	"github.com/limaJavier/coursescheduler/pkg/solver"
)

func TestRecorder(t *testing.T) {
	timetable := model.Timetable{
		Scheduled:   make([]model.ScheduledSession, 3),
		Unscheduled: make([]model.UnscheduledTask, 1),
		Status:      solver.Optimal,
		Objective:   3000,
		Stats:       model.ModelStats{Tasks: 4, Candidates: 120},
		Bound:       4,
	}

	t.Run("Run gauges and counters", func(t *testing.T) {
		//** Arrange
		recorder := NewRecorder()

		//** Act
		recorder.ObserveRun(model.Compact, timetable, 2*time.Second)
		recorder.ObserveRun(model.Compact, timetable, time.Second)

		//** Assert
		assert.Equal(t, 4.0, testutil.ToFloat64(recorder.tasks))
		assert.Equal(t, 3.0, testutil.ToFloat64(recorder.scheduled))
		assert.Equal(t, 1.0, testutil.ToFloat64(recorder.unscheduled))
		assert.Equal(t, 120.0, testutil.ToFloat64(recorder.candidates))
		assert.Equal(t, 4.0, testutil.ToFloat64(recorder.bound))
		assert.Equal(t, 2.0, testutil.ToFloat64(recorder.runs.WithLabelValues("compact", "OPTIMAL")))
		assert.Equal(t, 1, testutil.CollectAndCount(recorder.solveSeconds))
	})

	t.Run("Textfile export", func(t *testing.T) {
		//** Arrange
		recorder := NewRecorder()
		recorder.ObserveRun(model.Flexible, timetable, time.Second)
		path := filepath.Join(t.TempDir(), "scheduler.prom")

		//** Act
		err := recorder.WriteToTextfile(path)

		//** Assert
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `scheduler_runs_total{mode="flexible",status="OPTIMAL"} 1`)
	})
}
