package model

import (
	"github.com/samber/lo"
)

type predicateEvaluatorStandard struct {
	options        Options
	grid           *TimeGrid
	unavailability map[string]Unavailability // Blocked slots per teacher
}

func newPredicateEvaluator(options Options, grid *TimeGrid, unavailability map[string]Unavailability) predicateEvaluator {
	return &predicateEvaluatorStandard{
		options:        options,
		grid:           grid,
		unavailability: unavailability,
	}
}

func (evaluator *predicateEvaluatorStandard) Suitable(task Task, room Room) bool {
	// Fixed tasks keep the room they were booked in
	if task.Fixed {
		return room.Name == task.LockedRoom
	}
	if task.Online || room.Virtual() {
		return task.Online && room.Virtual()
	}
	if room.Capacity < task.Students {
		return false
	}
	if task.Type == Lab && !room.IsLab() {
		return false
	}
	if task.RequireAILab && room.Name != evaluator.options.AILabRoom {
		return false
	}
	if task.RequireNetworkLab && room.Name != evaluator.options.NetworkLabRoom {
		return false
	}
	return true
}

func (evaluator *predicateEvaluatorStandard) Placeable(task Task, slot int) bool {
	return evaluator.grid.Contains(slot, task.Duration) && !evaluator.grid.OverlapsLunch(slot, task.Duration)
}

func (evaluator *predicateEvaluatorStandard) InCoreWindow(task Task, slot int) bool {
	start := evaluator.grid.ClockAt(slot)
	end := start.Add(task.Duration)
	return start >= evaluator.options.CoreStart && end <= evaluator.options.CoreEnd
}

func (evaluator *predicateEvaluatorStandard) TeachersAvailable(task Task, day, slot int) bool {
	return !lo.SomeBy(task.Teachers, func(teacher string) bool {
		if IsSentinelTeacher(teacher) {
			return false
		}
		return evaluator.unavailability[teacher].BlockedAny(day, slot, task.Duration)
	})
}

func (evaluator *predicateEvaluatorStandard) Locked(task Task, room Room, day, slot int) bool {
	if !task.Fixed {
		return true
	}
	lockedDay, ok := evaluator.options.DayIndex(task.LockedDay)
	if !ok {
		return false
	}
	lockedSlot, ok := evaluator.grid.SlotIndex(task.LockedStart.String())
	return ok && room.Name == task.LockedRoom && day == lockedDay && slot == lockedSlot
}
