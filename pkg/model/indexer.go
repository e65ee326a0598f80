package model

// indexer gives a unique index to an occupied (resource, day, slot) cell. Resources are rooms and
// teachers numbered consecutively.
type indexer interface {
	// Returns a unique index for the cell
	Index(resource, day, slot int) uint64
}

func newIndexer(days, slots int) indexer {
	return &indexerImplementation{
		days:  uint64(days),
		slots: uint64(slots),
	}
}
