package model

type indexerImplementation struct {
	days  uint64
	slots uint64
}

func (indexer *indexerImplementation) Index(resource, day, slot int) uint64 {
	return uint64(slot) + indexer.slots*uint64(day) + indexer.slots*indexer.days*uint64(resource) + 1
}
