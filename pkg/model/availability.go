package model

import (
	"regexp"
	"strings"
)

// Unavailability maps a day index to its blocked slot indices
type Unavailability map[int]map[int]bool

func (u Unavailability) Blocked(day, slot int) bool {
	return u[day][slot]
}

// BlockedAny checks whether any slot of [start, start+duration) is blocked on day
func (u Unavailability) BlockedAny(day, start, duration int) bool {
	for slot := start; slot < start+duration; slot++ {
		if u[day][slot] {
			return true
		}
	}
	return false
}

func (u Unavailability) block(day, start, end int) {
	if _, ok := u[day]; !ok {
		u[day] = make(map[int]bool)
	}
	for slot := start; slot < end; slot++ {
		u[day][slot] = true
	}
}

var (
	unavailablePattern = regexp.MustCompile(`(\p{L}{3})\p{L}*\s+(\d{1,2}[:.]\d{2})\s*-\s*(\d{1,2}[:.]\d{2})`)
	// Residue of list-valued cells such as "['Mon 10:00-11:00', 'Tue 14:00-15:00']"
	listNoise = strings.NewReplacer("[", " ", "]", " ", "'", " ", `"`, " ")
)

type availabilityParser struct {
	grid    *TimeGrid
	options Options
}

func newAvailabilityParser(grid *TimeGrid, options Options) *availabilityParser {
	return &availabilityParser{grid: grid, options: options}
}

// Parse reads free-text entries like "Mon 10:00-12:00". Entries with an unknown day, times that do
// not resolve to the grid, or an empty range are ignored.
func (p *availabilityParser) Parse(entries ...string) Unavailability {
	unavailability := make(Unavailability)
	for _, entry := range entries {
		text := listNoise.Replace(entry)
		for _, match := range unavailablePattern.FindAllStringSubmatch(text, -1) {
			day, ok := p.options.DayIndex(match[1])
			if !ok {
				continue
			}
			start, ok := p.grid.SlotIndex(match[2])
			if !ok {
				continue
			}
			end, ok := p.grid.BoundaryIndex(match[3])
			if !ok || start >= end {
				continue
			}
			unavailability.block(day, start, end)
		}
	}
	return unavailability
}

// Apply adds structured records to the unavailability, with the same rejection rules as Parse
func (p *availabilityParser) Apply(unavailability Unavailability, ranges ...BlockedRange) {
	for _, blocked := range ranges {
		day, ok := p.options.DayIndex(blocked.Day)
		if !ok {
			continue
		}
		start, ok := p.grid.SlotIndex(blocked.Start.String())
		if !ok {
			continue
		}
		end, ok := p.grid.BoundaryIndex(blocked.End.String())
		if !ok || start >= end {
			continue
		}
		unavailability.block(day, start, end)
	}
}

func (p *availabilityParser) ForTeacher(teacher Teacher) Unavailability {
	unavailability := p.Parse(teacher.Unavailable...)
	p.Apply(unavailability, teacher.Blocked...)
	return unavailability
}

// TeacherUnavailability resolves the unavailability of every known teacher against the grid
func TeacherUnavailability(input Input, grid *TimeGrid, options Options) map[string]Unavailability {
	parser := newAvailabilityParser(grid, options)
	result := make(map[string]Unavailability, len(input.Teachers))
	for id, teacher := range input.Teachers {
		result[id] = parser.ForTeacher(teacher)
	}
	return result
}
