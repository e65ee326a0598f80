package model

type predicateEvaluator interface {
	// Checks whether the room can host the task regardless of time (online match, capacity, lab type, special labs)
	Suitable(task Task, room Room) bool

	// Checks whether a session of the task starting at slot fits in the grid without touching lunch
	Placeable(task Task, slot int) bool

	// Checks whether a session of the task starting at slot lies entirely inside the core window
	InCoreWindow(task Task, slot int) bool

	// Checks whether every non-sentinel teacher of the task is available during the whole session
	TeachersAvailable(task Task, day, slot int) bool

	// Checks whether the (room, day, slot) placement respects the lock of a fixed task (always true for other tasks)
	Locked(task Task, room Room, day, slot int) bool
}
