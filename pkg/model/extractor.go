package model

import (
	"cmp"
	"slices"
	"strings"

	"github.com/limaJavier/coursescheduler/pkg/solver"
)

const (
	UnknownRoom       = "Unknown"
	UnscheduledReason = "Constraints"
)

type ScheduledSession struct {
	Day     string      `csv:"Day"`
	Start   Clock       `csv:"Start"`
	End     Clock       `csv:"End"`
	Room    string      `csv:"Room"`
	Course  string      `csv:"Course"`
	Section int         `csv:"Section"`
	Type    SessionType `csv:"Type"`
	Teacher string      `csv:"Teacher"`

	TaskId    string `csv:"-"`
	DayIndex  int    `csv:"-"`
	StartSlot int    `csv:"-"`
	Duration  int    `csv:"-"`
}

type UnscheduledTask struct {
	Course  string      `csv:"Course"`
	Section int         `csv:"Section"`
	Type    SessionType `csv:"Type"`
	Reason  string      `csv:"Reason"`

	TaskId string `csv:"-"`
}

type Timetable struct {
	Scheduled   []ScheduledSession
	Unscheduled []UnscheduledTask
	Status      solver.Status
	Objective   int64
	Stats       ModelStats
	Bound       int // Upper bound on schedulable tasks, see PlacementBound
}

// ExtractSolution reads a solved response back into timetable rows. The room of a scheduled task is
// the true candidate matching its solved day and start; ties are broken by room name.
func ExtractSolution(builder *ModelBuilder, response *solver.Response) Timetable {
	timetable := Timetable{
		Scheduled:   make([]ScheduledSession, 0),
		Unscheduled: make([]UnscheduledTask, 0),
		Status:      response.Status,
		Objective:   response.ObjectiveValue,
	}

	for _, task := range builder.tasks {
		variables := builder.variables[task.Id]
		if !response.BoolValue(variables.scheduled) {
			timetable.Unscheduled = append(timetable.Unscheduled, UnscheduledTask{
				Course:  task.Course,
				Section: task.Section,
				Type:    task.Type,
				Reason:  UnscheduledReason,
				TaskId:  task.Id,
			})
			continue
		}

		day := int(response.Value(variables.day))
		start := int(response.Value(variables.start))

		keys := builder.Candidates(task.Id)
		slices.SortStableFunc(keys, func(a, b CandidateKey) int { return cmp.Compare(a.Room, b.Room) })
		room := UnknownRoom
		for _, key := range keys {
			if key.Day == day && key.Slot == start && response.BoolValue(builder.candidates[key]) {
				room = key.Room
				break
			}
		}

		timetable.Scheduled = append(timetable.Scheduled, ScheduledSession{
			Day:       builder.options.Days[day],
			Start:     builder.grid.ClockAt(start),
			End:       builder.grid.ClockAt(start + task.Duration),
			Room:      room,
			Course:    task.Course,
			Section:   task.Section,
			Type:      task.Type,
			Teacher:   strings.Join(task.Teachers, ","),
			TaskId:    task.Id,
			DayIndex:  day,
			StartSlot: start,
			Duration:  task.Duration,
		})
	}

	SortSessions(timetable.Scheduled)
	return timetable
}

// SortSessions orders rows by day, then start, then room
func SortSessions(sessions []ScheduledSession) {
	slices.SortStableFunc(sessions, func(a, b ScheduledSession) int {
		return cmp.Or(
			cmp.Compare(a.DayIndex, b.DayIndex),
			cmp.Compare(a.StartSlot, b.StartSlot),
			cmp.Compare(a.Room, b.Room),
		)
	})
}
