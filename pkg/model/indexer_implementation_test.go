package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexUniqueness(t *testing.T) {
	scenarios := [][3]int{
		{1, 5, 21},
		{12, 5, 21},
		{30, 6, 15},
	}

	for _, scenario := range scenarios {
		//** Arrange
		resources, days, slots := scenario[0], scenario[1], scenario[2]
		indexer := newIndexer(days, slots)
		seen := make(map[uint64]bool, resources*days*slots)

		//** Act
		for resource := range resources {
			for day := range days {
				for slot := range slots {
					seen[indexer.Index(resource, day, slot)] = true
				}
			}
		}

		//** Assert
		assert.Len(t, seen, resources*days*slots)
		assert.False(t, seen[0])
		assert.True(t, seen[uint64(resources*days*slots)])
	}
}
