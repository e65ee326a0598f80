package model

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func TestTimeGrid(t *testing.T) {
	grid := DefaultOptions(Flexible).Grid()

	t.Run("Slots cover the working day", func(t *testing.T) {
		assert.Equal(t, 21, grid.Len())
		assert.Equal(t, "08:30", grid.Slots[0].Time.String())
		assert.Equal(t, "18:30", grid.Slots[20].Time.String())
	})

	t.Run("Only 12:30 is lunch", func(t *testing.T) {
		lunch := 0
		for _, slot := range grid.Slots {
			if slot.IsLunch {
				lunch++
				assert.Equal(t, "12:30", slot.Time.String())
			}
		}
		assert.Equal(t, 1, lunch)
	})

	t.Run("Both minute separators resolve", func(t *testing.T) {
		//** Act
		colon, ok1 := grid.SlotIndex("10:00")
		dot, ok2 := grid.SlotIndex("10.00")
		short, ok3 := grid.SlotIndex("9:00")

		//** Assert
		assert.True(t, ok1 && ok2 && ok3)
		assert.Equal(t, 3, colon)
		assert.Equal(t, 3, dot)
		assert.Equal(t, 1, short)
	})

	t.Run("Unknown times do not resolve", func(t *testing.T) {
		for _, text := range []string{"10:15", "07:00", "19:00", "noon", ""} {
			_, ok := grid.SlotIndex(text)
			assert.False(t, ok, text)
		}
	})

	t.Run("Grid end is a boundary", func(t *testing.T) {
		index, ok := grid.BoundaryIndex("19:00")
		assert.True(t, ok)
		assert.Equal(t, grid.Len(), index)
	})

	t.Run("Containment and lunch overlap", func(t *testing.T) {
		assert.True(t, grid.Contains(15, 6))
		assert.False(t, grid.Contains(16, 6))
		assert.True(t, grid.OverlapsLunch(3, 6))
		assert.False(t, grid.OverlapsLunch(2, 6))
		assert.Equal(t, "16:00", grid.ClockAt(15).String())
	})
}

func TestParseUnavailability(t *testing.T) {
	options := DefaultOptions(Flexible)
	parser := newAvailabilityParser(options.Grid(), options)

	t.Run("Range blocks its slots but not the end", func(t *testing.T) {
		g := NewWithT(t)

		//** Act
		unavailability := parser.Parse("Mon 10:00-11:30")

		//** Assert
		g.Expect(unavailability).To(HaveLen(1))
		g.Expect(unavailability[0]).To(Equal(map[int]bool{3: true, 4: true, 5: true}))
		g.Expect(unavailability.Blocked(0, 6)).To(BeFalse())
	})

	t.Run("List noise and dot separators", func(t *testing.T) {
		g := NewWithT(t)

		//** Act
		unavailability := parser.Parse(`['Tue 9.00-10.00', "Wed 14:00-15:00"]`, "Friday 18:00-19:00")

		//** Assert
		g.Expect(unavailability[1]).To(Equal(map[int]bool{1: true, 2: true}))
		g.Expect(unavailability[2]).To(Equal(map[int]bool{11: true, 12: true}))
		g.Expect(unavailability[4]).To(Equal(map[int]bool{19: true, 20: true}))
	})

	t.Run("Malformed entries are ignored", func(t *testing.T) {
		//** Act
		unavailability := parser.Parse(
			"Xyz 10:00-11:00",  // Unknown day
			"Mon 11:00-10:00",  // Start after end
			"Mon 10:00-10:00",  // Empty
			"Tue 07:00-09:00",  // Outside the grid
			"Wed 10:15-11:00",  // Not a slot start
			"whenever possible", // No pattern at all
			"",
		)

		//** Assert
		assert.Empty(t, unavailability)
	})

	t.Run("Structured records", func(t *testing.T) {
		//** Arrange
		unavailability := make(Unavailability)

		//** Act
		parser.Apply(unavailability,
			BlockedRange{Day: "Thu", Start: NewClock(13, 0), End: NewClock(14, 0)},
			BlockedRange{Day: "Sun", Start: NewClock(13, 0), End: NewClock(14, 0)},
		)

		//** Assert
		assert.Equal(t, Unavailability{3: {9: true, 10: true}}, unavailability)
		assert.True(t, unavailability.BlockedAny(3, 8, 2))
		assert.False(t, unavailability.BlockedAny(3, 11, 4))
	})
}
