package sqlite

import "fridgesight/internal/repository"

// Store bundles the SQLite repositories behind repository.Store.
type Store struct {
	*EventRepository
	*InventoryRepository
	db *DB
}

var _ repository.Store = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

func NewStore(db *DB) *Store {
	return &Store{
		EventRepository:     NewEventRepository(db),
		InventoryRepository: NewInventoryRepository(db),
		db:                  db,
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
