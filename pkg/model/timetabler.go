package model

import "context"

type Timetabler interface {
	Build(
		ctx context.Context,
		input Input,
	) (timetable Timetable, err error)

	Verify(
		timetable Timetable,
		input Input,
	) bool
}
