package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	repo TEXT NOT NULL,
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (repo, kind, id)
);
CREATE INDEX IF NOT EXISTS idx_entities_repo_kind ON entities(repo, kind);
`

// SQLiteStore implements Store on an embedded SQLite database. It is the
// swap-in backend for deployments that outgrow one-file-per-entity storage;
// records keep the same JSON shape as the file backend.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OpenSQLite opens (creating if needed) a SQLite-backed store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}

	if err := s.Init(); err != nil {
		_ = db.Close() //nolint:errcheck // cleanup in error path
		return nil, err
	}
	return s, nil
}

// Init creates the schema if it does not exist.
func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// keyLock returns the writer lock for one (repo, kind, id) key.
func (s *SQLiteStore) keyLock(repo string, kind Kind, id string) *sync.Mutex {
	key := repo + "\x00" + string(kind) + "\x00" + id

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Get loads a record. Missing and malformed records both return ErrNotFound.
func (s *SQLiteStore) Get(repo string, kind Kind, id string, out any) error {
	if err := validateID(id); err != nil {
		return err
	}

	var data string
	err := s.db.QueryRow(
		`SELECT data FROM entities WHERE repo = ? AND kind = ? AND id = ?`,
		repo, string(kind), id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}

	if err := json.Unmarshal([]byte(data), out); err != nil {
		return ErrNotFound
	}
	return nil
}

// Put writes a record, replacing any existing one.
func (s *SQLiteStore) Put(repo string, kind Kind, id string, v any) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO entities (repo, kind, id, data, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(repo, kind, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		repo, string(kind), id, string(data),
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Update performs a read-modify-write under the per-key writer lock.
func (s *SQLiteStore) Update(repo string, kind Kind, id string, out any, mutate func(exists bool) error) error {
	if err := validateID(id); err != nil {
		return err
	}

	l := s.keyLock(repo, kind, id)
	l.Lock()
	defer l.Unlock()

	exists := true
	if err := s.Get(repo, kind, id, out); err != nil {
		if err != ErrNotFound {
			return err
		}
		exists = false
	}

	if err := mutate(exists); err != nil {
		return err
	}

	return s.Put(repo, kind, id, out)
}

// List returns the sorted IDs of all records of a kind.
func (s *SQLiteStore) List(repo string, kind Kind) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM entities WHERE repo = ? AND kind = ? ORDER BY id`,
		repo, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a record. Missing records are a no-op.
func (s *SQLiteStore) Delete(repo string, kind Kind, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if _, err := s.db.Exec(
		`DELETE FROM entities WHERE repo = ? AND kind = ? AND id = ?`,
		repo, string(kind), id,
	); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
