package model

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/limaJavier/coursescheduler/pkg/solver"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campusTestFile = "testdata/campus.json"

func testOptions(mode Mode) Options {
	options := DefaultOptions(mode)
	options.TimeLimit = 10 * time.Second
	return options
}

func TestWeightedTimetablerCampus(t *testing.T) {
	engines := map[string]solver.Solver{
		"cp":          solver.NewCPSolver(1),
		"branchbound": solver.NewBranchAndBoundSolver(),
	}
	for name, engine := range engines {
		for _, mode := range []Mode{Compact, Flexible} {
			t.Run(name+"/"+mode.String(), func(t *testing.T) {
				testCampus(t, engine, mode)
			})
		}
	}
}

func testCampus(t *testing.T, engine solver.Solver, mode Mode) {
	//** Arrange
	input, err := InputFromJson(campusTestFile)
	require.NoError(t, err)
	require.NoError(t, input.Warnings)
	options := testOptions(mode)
	timetabler := NewWeightedTimetabler(engine, options, nil)

	//** Act
	timetable, err := timetabler.Build(context.Background(), input)

	//** Assert
	require.NoError(t, err)
	assert.True(t, timetable.Status.HasSolution())
	assert.True(t, timetabler.Verify(timetable, input))
	assert.Len(t, timetable.Scheduled, 12)
	assert.Empty(t, timetable.Unscheduled)
	assert.GreaterOrEqual(t, timetable.Bound, len(timetable.Scheduled))
	assertProperties(t, timetable, input, options)
}

// Checks lunch, room and teacher exclusivity, fixed placement and the window policy
func assertProperties(t *testing.T, timetable Timetable, input Input, options Options) {
	t.Helper()
	grid := options.Grid()
	tasks := lo.KeyBy(BuildTasks(input, options), func(task Task) string { return task.Id })

	rooms := make(map[[3]any]string)
	teachers := make(map[[3]any]string)
	weights := int64(0)
	for _, session := range timetable.Scheduled {
		task := tasks[session.TaskId]
		weights += task.Weight(options.Weights)

		assert.False(t, grid.OverlapsLunch(session.StartSlot, session.Duration), session.TaskId)
		assert.Equal(t, session.Start.Add(session.Duration), session.End)
		if options.Mode == Compact {
			assert.GreaterOrEqual(t, session.Start, options.CoreStart, session.TaskId)
			assert.LessOrEqual(t, session.End, options.CoreEnd, session.TaskId)
		}
		if task.Fixed {
			assert.Equal(t, task.LockedRoom, session.Room)
			assert.Equal(t, task.LockedDay, session.Day)
			assert.Equal(t, task.LockedStart, session.Start)
		}

		for slot := session.StartSlot; slot < session.StartSlot+session.Duration; slot++ {
			if session.Room != OnlineRoom {
				key := [3]any{session.Room, session.DayIndex, slot}
				assert.Empty(t, rooms[key], "room %v double-booked", key)
				rooms[key] = session.TaskId
			}
			for _, teacher := range task.Teachers {
				if IsSentinelTeacher(teacher) {
					continue
				}
				key := [3]any{teacher, session.DayIndex, slot}
				assert.Empty(t, teachers[key], "teacher %v double-booked", key)
				teachers[key] = session.TaskId
			}
		}
	}

	// Each session outside the core window costs one unit
	assert.Equal(t, weights-int64(OutsidePenalties(timetable, options)), timetable.Objective)
}

func TestScenarios(t *testing.T) {
	timetabler := func(mode Mode) Timetabler {
		return NewWeightedTimetabler(solver.NewBranchAndBoundSolver(), testOptions(mode), nil)
	}

	t.Run("Single lecture fits the core window", func(t *testing.T) {
		//** Arrange
		input := ProcessRawInput(RawInput{
			Rooms:          []RawRoom{{Name: "R1", Capacity: "40", Type: "lecture"}},
			TeacherCourses: []RawTeacherCourse{{Course: "CS101", Teacher: "T1"}},
			Courses: []RawCourseSection{{
				Course: "CS101", Section: "1", Enrollment: "30", LectureHours: "3", LabHours: "0", Optional: "0",
			}},
		})

		//** Act
		timetable, err := timetabler(Compact).Build(context.Background(), input)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, solver.Optimal, timetable.Status)
		require.Len(t, timetable.Scheduled, 1)
		session := timetable.Scheduled[0]
		assert.Equal(t, "R1", session.Room)
		assert.Equal(t, Lecture, session.Type)
		assert.Equal(t, 6, session.Duration)
		assert.Equal(t, "T1", session.Teacher)
		assert.GreaterOrEqual(t, session.Start, NewClock(9, 0))
		assert.LessOrEqual(t, session.End, NewClock(16, 0))
		assert.Equal(t, int64(1000), timetable.Objective)
	})

	t.Run("Unavailable teacher leaves the task unscheduled", func(t *testing.T) {
		//** Arrange
		input := ProcessRawInput(RawInput{
			Rooms:          []RawRoom{{Name: "R1", Capacity: "40", Type: "lecture"}},
			TeacherCourses: []RawTeacherCourse{{Course: "CS101", Teacher: "T1"}},
			Courses: []RawCourseSection{{
				Course: "CS101", Section: "1", Enrollment: "30", LectureHours: "1", LabHours: "0", Optional: "0",
			}},
			Teachers: []RawTeacher{{
				Id:               "T1",
				UnavailableTimes: "['Mon 08:30-19:00', 'Tue 08:30-19:00', 'Wed 08:30-19:00', 'Thu 08:30-19:00', 'Fri 08:30-19:00']",
			}},
		})

		//** Act
		timetable, err := timetabler(Flexible).Build(context.Background(), input)

		//** Assert
		require.NoError(t, err)
		assert.Empty(t, timetable.Scheduled)
		assert.Equal(t, []UnscheduledTask{{
			Course: "CS101", Section: 1, Type: Lecture, Reason: UnscheduledReason, TaskId: "CS101_S1_Lec_P1",
		}}, timetable.Unscheduled)
		assert.Equal(t, 1, timetable.Stats.Unplaceable)
	})

	t.Run("Two sections compete for the only lab slot", func(t *testing.T) {
		//** Arrange
		onlyMondayNine := "['Mon 08:30-09:00', 'Mon 10:00-19:00', 'Tue 08:30-19:00', 'Wed 08:30-19:00', 'Thu 08:30-19:00', 'Fri 08:30-19:00']"
		input := ProcessRawInput(RawInput{
			Rooms: []RawRoom{
				{Name: "R1", Capacity: "100", Type: "lecture"},
				{Name: "lab_ai", Capacity: "40", Type: "lab"},
			},
			TeacherCourses: []RawTeacherCourse{
				{Course: "AI301", Teacher: "TA"},
				{Course: "AI302", Teacher: "TB"},
			},
			Courses: []RawCourseSection{
				{Course: "AI301", Section: "1", Enrollment: "30", LectureHours: "0", LabHours: "1", Optional: "0", RequireAILab: "1"},
				{Course: "AI302", Section: "1", Enrollment: "30", LectureHours: "0", LabHours: "1", Optional: "0", RequireAILab: "1"},
			},
			Teachers: []RawTeacher{
				{Id: "TA", UnavailableTimes: onlyMondayNine},
				{Id: "TB", UnavailableTimes: onlyMondayNine},
			},
		})

		//** Act
		timetable, err := timetabler(Compact).Build(context.Background(), input)

		//** Assert
		require.NoError(t, err)
		require.Len(t, timetable.Scheduled, 1)
		require.Len(t, timetable.Unscheduled, 1)
		assert.Equal(t, "lab_ai", timetable.Scheduled[0].Room)
		assert.Equal(t, "Mon", timetable.Scheduled[0].Day)
		assert.Equal(t, "09:00", timetable.Scheduled[0].Start.String())
		assert.NotEqual(t, timetable.Scheduled[0].Course, timetable.Unscheduled[0].Course)
		assert.Equal(t, int64(1000), timetable.Objective)
	})

	t.Run("Evening-only teacher depends on the mode", func(t *testing.T) {
		//** Arrange
		input := ProcessRawInput(RawInput{
			Rooms:          []RawRoom{{Name: "R1", Capacity: "40", Type: "lecture"}},
			TeacherCourses: []RawTeacherCourse{{Course: "EV100", Teacher: "T1"}},
			Courses: []RawCourseSection{{
				Course: "EV100", Section: "1", Enrollment: "30", LectureHours: "2", LabHours: "0", Optional: "0",
			}},
			Unavailability: lo.Map(DefaultOptions(Flexible).Days, func(day string, _ int) RawUnavailability {
				return RawUnavailability{Teacher: "T1", Day: day, Start: "08:30", End: "17:00"}
			}),
		})

		//** Act
		compact, compactErr := timetabler(Compact).Build(context.Background(), input)
		flexible, flexibleErr := timetabler(Flexible).Build(context.Background(), input)

		//** Assert
		require.NoError(t, compactErr)
		require.NoError(t, flexibleErr)
		assert.Empty(t, compact.Scheduled)
		require.Len(t, flexible.Scheduled, 1)
		assert.Equal(t, "17:00", flexible.Scheduled[0].Start.String())
		assert.Equal(t, "19:00", flexible.Scheduled[0].End.String())
		assert.Equal(t, int64(999), flexible.Objective)
	})
}

func TestTimetablerDeterminism(t *testing.T) {
	//** Arrange
	input, err := InputFromJson(campusTestFile)
	require.NoError(t, err)
	timetabler := NewWeightedTimetabler(solver.NewBranchAndBoundSolver(), testOptions(Flexible), nil)

	//** Act
	first, err1 := timetabler.Build(context.Background(), input)
	second, err2 := timetabler.Build(context.Background(), input)

	//** Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	if diff := cmp.Diff(first.Scheduled, second.Scheduled); diff != "" {
		t.Errorf("scheduled rows differ (-first +second):\n%s", diff)
	}
	for i := 1; i < len(first.Scheduled); i++ {
		previous, current := first.Scheduled[i-1], first.Scheduled[i]
		assert.LessOrEqual(t, previous.DayIndex, current.DayIndex)
		if previous.DayIndex == current.DayIndex {
			assert.LessOrEqual(t, previous.StartSlot, current.StartSlot)
		}
	}
}

func TestVerifyRejectsBrokenTimetables(t *testing.T) {
	//** Arrange
	input, err := InputFromJson(campusTestFile)
	require.NoError(t, err)
	options := testOptions(Compact)
	timetabler := NewWeightedTimetabler(solver.NewBranchAndBoundSolver(), options, nil)
	timetable, err := timetabler.Build(context.Background(), input)
	require.NoError(t, err)
	require.True(t, timetabler.Verify(timetable, input))

	tamper := func(change func(sessions []ScheduledSession) []ScheduledSession) Timetable {
		broken := timetable
		broken.Scheduled = change(append([]ScheduledSession(nil), timetable.Scheduled...))
		return broken
	}

	t.Run("Session over lunch", func(t *testing.T) {
		broken := tamper(func(sessions []ScheduledSession) []ScheduledSession {
			sessions[0].StartSlot = 7
			return sessions
		})
		assert.False(t, timetabler.Verify(broken, input))
	})

	t.Run("Duplicated session", func(t *testing.T) {
		broken := tamper(func(sessions []ScheduledSession) []ScheduledSession {
			return append(sessions, sessions[0])
		})
		assert.False(t, timetabler.Verify(broken, input))
	})

	t.Run("Missing session", func(t *testing.T) {
		broken := tamper(func(sessions []ScheduledSession) []ScheduledSession {
			return sessions[1:]
		})
		assert.False(t, timetabler.Verify(broken, input))
	})

	t.Run("Moved fixed session", func(t *testing.T) {
		broken := tamper(func(sessions []ScheduledSession) []ScheduledSession {
			for i := range sessions {
				if strings.Contains(sessions[i].TaskId, "_F") {
					sessions[i].DayIndex = (sessions[i].DayIndex + 1) % len(options.Days)
				}
			}
			return sessions
		})
		assert.False(t, timetabler.Verify(broken, input))
	})
}

type stubSolver struct {
	status solver.Status
}

func (stub stubSolver) Solve(context.Context, *solver.Model, time.Duration) (*solver.Response, error) {
	return &solver.Response{Status: stub.status}, nil
}

func TestEngineFailures(t *testing.T) {
	input := ProcessRawInput(RawInput{
		Rooms:   []RawRoom{{Name: "R1", Capacity: "40"}},
		Courses: []RawCourseSection{{Course: "C", Section: "1", Enrollment: "10", LectureHours: "1", LabHours: "0"}},
	})

	t.Run("Infeasible", func(t *testing.T) {
		//** Act
		_, err := NewWeightedTimetabler(stubSolver{solver.Infeasible}, testOptions(Compact), nil).Build(context.Background(), input)

		//** Assert
		assert.True(t, errors.Is(err, ErrInfeasible))
		var scheduleErr *ScheduleError
		assert.True(t, errors.As(err, &scheduleErr))
	})

	t.Run("Timed out", func(t *testing.T) {
		//** Act
		timetable, err := NewWeightedTimetabler(stubSolver{solver.TimedOut}, testOptions(Compact), nil).Build(context.Background(), input)

		//** Assert
		assert.ErrorIs(t, err, ErrTimedOut)
		assert.Equal(t, solver.TimedOut, timetable.Status)
		assert.Equal(t, 1, timetable.Stats.Tasks)
	})

	t.Run("Missing input file", func(t *testing.T) {
		//** Act
		_, err := InputFromJson("testdata/missing.json")

		//** Assert
		assert.ErrorIs(t, err, ErrMissingSource)
	})
}
