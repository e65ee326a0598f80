package model

import (
	"fmt"
	"regexp"
	"strconv"
)

const SlotMinutes = 30

// Clock is a time of day in minutes after midnight
type Clock int

var clockPattern = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock reads the first "H:MM" or "H.MM" occurrence in text
func ParseClock(text string) (Clock, error) {
	match := clockPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("no time found in %q", text)
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour > 24 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", text)
	}
	return NewClock(hour, minute), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalCSV() (string, error) {
	return c.String(), nil
}

// Add moves the clock forward by whole slots
func (c Clock) Add(slots int) Clock {
	return c + Clock(slots*SlotMinutes)
}

type Slot struct {
	Index   int
	Time    Clock
	IsLunch bool
}

// TimeGrid is the ordered sequence of half-hour slots of a working day
type TimeGrid struct {
	Slots []Slot
	Start Clock
	End   Clock
	index map[string]int
}

func NewTimeGrid(start, end, lunchStart, lunchEnd Clock) *TimeGrid {
	grid := &TimeGrid{Start: start, End: end, index: make(map[string]int)}
	for t := start; t < end; t += SlotMinutes {
		slot := Slot{
			Index:   len(grid.Slots),
			Time:    t,
			IsLunch: t >= lunchStart && t < lunchEnd,
		}
		grid.Slots = append(grid.Slots, slot)
		grid.index[t.String()] = slot.Index
	}
	return grid
}

func (grid *TimeGrid) Len() int {
	return len(grid.Slots)
}

// SlotIndex resolves a slot start time, accepting either ':' or '.' as minute separator
func (grid *TimeGrid) SlotIndex(text string) (int, bool) {
	clock, err := ParseClock(text)
	if err != nil {
		return -1, false
	}
	index, ok := grid.index[clock.String()]
	return index, ok
}

// BoundaryIndex is SlotIndex extended with the end of the grid, which resolves to Len()
func (grid *TimeGrid) BoundaryIndex(text string) (int, bool) {
	if index, ok := grid.SlotIndex(text); ok {
		return index, true
	}
	if clock, err := ParseClock(text); err == nil && clock == grid.Start.Add(grid.Len()) {
		return grid.Len(), true
	}
	return -1, false
}

// ClockAt returns the clock time of a slot boundary, which may lie past the last slot
func (grid *TimeGrid) ClockAt(index int) Clock {
	return grid.Start.Add(index)
}

// Contains checks whether [start, start+duration) lies inside the grid
func (grid *TimeGrid) Contains(start, duration int) bool {
	return start >= 0 && duration > 0 && start+duration <= grid.Len()
}

func (grid *TimeGrid) OverlapsLunch(start, duration int) bool {
	for i := start; i < start+duration && i < grid.Len(); i++ {
		if grid.Slots[i].IsLunch {
			return true
		}
	}
	return false
}
