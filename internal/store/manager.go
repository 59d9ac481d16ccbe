package store

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Manager provides shared database access to prevent locking conflicts —
// bbolt holds an exclusive file lock, so two independent *DB handles onto
// the same wyrd directory within one process would deadlock.
type Manager struct {
	mu     sync.RWMutex
	db     *DB
	dbPath string
	refs   int
}

var globalManager *Manager
var managerMu sync.Mutex

// GetSharedDB returns a shared database connection for the given wyrd
// directory. Multiple calls with the same wyrdDir return the same
// connection, reference counted and closed when the last reference is
// released.
func GetSharedDB(wyrdDir string) (*SharedDB, error) {
	managerMu.Lock()
	defer managerMu.Unlock()

	dbPath := filepath.Join(wyrdDir, "session.db")

	if globalManager == nil || globalManager.dbPath != dbPath {
		if globalManager != nil {
			_ = globalManager.close()
		}

		db, err := Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}

		globalManager = &Manager{
			db:     db,
			dbPath: dbPath,
			refs:   0,
		}
	}

	globalManager.refs++

	return &SharedDB{
		manager: globalManager,
		DB:      globalManager.db,
	}, nil
}

// SharedDB wraps a database connection with reference counting.
type SharedDB struct {
	manager *Manager
	*DB
}

// Close decrements the reference count and closes the underlying database
// when no more references exist.
func (sdb *SharedDB) Close() error {
	if sdb.manager == nil {
		return nil
	}

	managerMu.Lock()
	defer managerMu.Unlock()

	sdb.manager.refs--

	if sdb.manager.refs <= 0 {
		err := sdb.manager.close()
		globalManager = nil
		return err
	}

	return nil
}

func (m *Manager) close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
