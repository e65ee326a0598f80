package model

import (
	"errors"
	"fmt"
)

var (
	ErrInfeasible    = errors.New("no feasible schedule exists")
	ErrTimedOut      = errors.New("no schedule found within the time limit")
	ErrMissingSource = errors.New("missing input source")
)

// ScheduleError reports a run that produced no timetable. Kind is one of the sentinel errors above.
type ScheduleError struct {
	Kind error
	Msg  string
}

func (e *ScheduleError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Msg)
}

func (e *ScheduleError) Unwrap() error { return e.Kind }

// SkippedRecordError describes an input record that was ignored while processing
type SkippedRecordError struct {
	Source string
	Row    int
	Reason string
}

func (e *SkippedRecordError) Error() string {
	return fmt.Sprintf("%v row %d skipped: %v", e.Source, e.Row, e.Reason)
}
