package routes

import "sync/atomic"

// Store publishes the current Table. Readers never block: they get whichever
// complete table was published last.
type Store struct {
	current atomic.Pointer[Table]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty())

	return s
}

func (s *Store) Load() *Table {
	return s.current.Load()
}

// Publish swaps in a new table and returns the previous one.
func (s *Store) Publish(table *Table) *Table {
	if table == nil {
		table = Empty()
	}

	return s.current.Swap(table)
}
