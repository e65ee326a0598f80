package model

import (
	"fmt"
	"strings"
	"time"
)

type Mode int

const (
	// Compact admits only sessions inside the core window
	Compact Mode = iota + 1
	// Flexible admits the whole grid and penalizes sessions leaving the core window
	Flexible
)

func (mode Mode) String() string {
	switch mode {
	case Compact:
		return "compact"
	case Flexible:
		return "flexible"
	}
	return fmt.Sprintf("Mode(%d)", int(mode))
}

func ParseMode(text string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "compact", "1":
		return Compact, nil
	case "flexible", "2":
		return Flexible, nil
	}
	return 0, fmt.Errorf("%q is not a valid mode", text)
}

type Weights struct {
	Fixed    int64
	Core     int64
	Elective int64
}

type Options struct {
	Mode       Mode
	Days       []string
	GridStart  Clock
	GridEnd    Clock
	LunchStart Clock
	LunchEnd   Clock
	CoreStart  Clock
	CoreEnd    Clock

	MaxLectureSlots        int
	DefaultFixedEnrollment int
	AILabRoom              string
	NetworkLabRoom         string
	Weights                Weights
	TimeLimit              time.Duration
}

func DefaultOptions(mode Mode) Options {
	return Options{
		Mode:       mode,
		Days:       []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		GridStart:  NewClock(8, 30),
		GridEnd:    NewClock(19, 0),
		LunchStart: NewClock(12, 30),
		LunchEnd:   NewClock(13, 0),
		CoreStart:  NewClock(9, 0),
		CoreEnd:    NewClock(16, 0),

		MaxLectureSlots:        6,
		DefaultFixedEnrollment: 50,
		AILabRoom:              "lab_ai",
		NetworkLabRoom:         "lab_network",
		Weights: Weights{
			Fixed:    1_000_000,
			Core:     1_000,
			Elective: 100,
		},
		TimeLimit: 120 * time.Second,
	}
}

func (options Options) Grid() *TimeGrid {
	return NewTimeGrid(options.GridStart, options.GridEnd, options.LunchStart, options.LunchEnd)
}

// DayIndex resolves a day name by its three-letter abbreviation
func (options Options) DayIndex(day string) (int, bool) {
	day = strings.TrimSpace(day)
	if len(day) < 3 {
		return -1, false
	}
	for i, name := range options.Days {
		if strings.EqualFold(name, day[:3]) {
			return i, true
		}
	}
	return -1, false
}
