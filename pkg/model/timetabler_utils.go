package model

import (
	"github.com/samber/lo"
)

// Re-checks a timetable against the input: every row belongs to a known task scheduled once, fits the
// grid away from lunch, respects the mode's window, sits in a suitable room at the locked place of
// fixed tasks, meets teacher availability, and no room or real teacher is double-booked.
func verify(timetable Timetable, input Input, options Options) bool {
	//** Initialize dependencies
	grid := options.Grid()
	unavailability := TeacherUnavailability(input, grid, options)
	evaluator := newPredicateEvaluator(options, grid, unavailability)
	tasks := lo.KeyBy(BuildTasks(input, options), func(task Task) string { return task.Id })

	roomAssistance := make(map[string][][]bool)
	teacherAssistance := make(map[string][][]bool)
	occupied := func(assistance map[string][][]bool, resource string, day, start, duration int) bool {
		if _, ok := assistance[resource]; !ok {
			assistance[resource] = make([][]bool, len(options.Days))
			for i := range assistance[resource] {
				assistance[resource][i] = make([]bool, grid.Len())
			}
		}
		for slot := start; slot < start+duration; slot++ {
			if assistance[resource][day][slot] {
				return true
			}
			assistance[resource][day][slot] = true
		}
		return false
	}

	scheduled := make(map[string]bool)
	for _, session := range timetable.Scheduled {
		task, ok := tasks[session.TaskId]
		if !ok || scheduled[task.Id] {
			return false
		}
		scheduled[task.Id] = true

		day, start := session.DayIndex, session.StartSlot
		room, ok := input.Room(session.Room)
		// Check that:
		// - Day and room are known
		// - Session fits in the grid without touching lunch
		// - Compact sessions lie inside the core window
		// - Room suits the task and fixed tasks keep their place
		// - Teachers are available
		if !ok || day < 0 || day >= len(options.Days) ||
			!evaluator.Placeable(task, start) ||
			(options.Mode == Compact && !evaluator.InCoreWindow(task, start)) ||
			!evaluator.Suitable(task, room) ||
			!evaluator.Locked(task, room, day, start) ||
			!evaluator.TeachersAvailable(task, day, start) {
			return false
		}

		if !room.Virtual() && occupied(roomAssistance, room.Name, day, start, task.Duration) {
			return false
		}
		for _, teacher := range task.Teachers {
			if !IsSentinelTeacher(teacher) && occupied(teacherAssistance, teacher, day, start, task.Duration) {
				return false
			}
		}
	}

	// Every task is either scheduled or reported unscheduled, never both
	for _, unscheduled := range timetable.Unscheduled {
		if _, ok := tasks[unscheduled.TaskId]; !ok || scheduled[unscheduled.TaskId] {
			return false
		}
		scheduled[unscheduled.TaskId] = true
	}
	return len(scheduled) == len(tasks)
}

// OutsidePenalties counts the sessions that leave the core window
func OutsidePenalties(timetable Timetable, options Options) int {
	return lo.CountBy(timetable.Scheduled, func(session ScheduledSession) bool {
		return session.Start < options.CoreStart || session.End > options.CoreEnd
	})
}
