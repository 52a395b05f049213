// Package cache persists compiled chunks in a SQLite database so unchanged
// sources can skip compilation.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chazu/minilang/vm"
	"github.com/chazu/minilang/vm/dist"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("minilang.cache")

// Store is a chunk cache backed by SQLite. Chunks are stored in the
// dist wire format and verified on every read.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		key   TEXT PRIMARY KEY,
		hash  BLOB NOT NULL,
		data  BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file the store was opened on.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the chunk stored under key. A missing key reports ok=false
// with a nil error. An entry that no longer decodes is evicted and
// reported as a miss.
func (s *Store) Get(key string) (*vm.Chunk, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT data FROM chunks WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: querying chunk: %w", err)
	}

	chunk, err := dist.Decode(data)
	if err != nil {
		log.Warningf("evicting corrupt entry %s: %s", key, err)
		if _, derr := s.db.Exec("DELETE FROM chunks WHERE key = ?", key); derr != nil {
			return nil, false, fmt.Errorf("cache: evicting chunk: %w", derr)
		}
		return nil, false, nil
	}
	return chunk, true, nil
}

// Put stores chunk under key, replacing any previous entry.
func (s *Store) Put(key string, chunk *vm.Chunk) error {
	data, err := dist.Encode(chunk)
	if err != nil {
		return fmt.Errorf("cache: encoding chunk: %w", err)
	}
	hash, err := dist.ContentHash(chunk)
	if err != nil {
		return fmt.Errorf("cache: hashing chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO chunks (key, hash, data) VALUES (?, ?, ?)",
		key, hash[:], data,
	)
	if err != nil {
		return fmt.Errorf("cache: saving chunk: %w", err)
	}
	log.Debugf("stored %s (%d bytes)", key, len(data))
	return nil
}

// Delete removes the entry for key, if any.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM chunks WHERE key = ?", key); err != nil {
		return fmt.Errorf("cache: deleting chunk: %w", err)
	}
	return nil
}

// Len returns the number of cached chunks.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: counting chunks: %w", err)
	}
	return n, nil
}
