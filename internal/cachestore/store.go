// Package cachestore persists translations keyed by (source text, target
// language) so repeated strings never hit the remote service twice.
package cachestore

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oukeidos/doctran/internal/logger"
)

// Store is a SQLite-backed translation cache. Reads that fail for any reason
// are reported as misses; writes that fail are logged and dropped. The cache
// never blocks a translation.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a snapshot of cumulative in-process counters plus the current
// entry count.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// DefaultPath returns the cache database location under the user's home.
func DefaultPath() string {
	return filepath.Join(userHome(), ".doctran", "cache.db")
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// Open creates (or opens) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS translations (
		source_text TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_accessed_at TEXT NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (source_text, target_lang)
	);`)
	return err
}

// Get returns the cached translation for (source, lang). A hit refreshes
// last_accessed_at and access_count. Any read error degrades to a miss.
func (s *Store) Get(source, lang string) (string, bool) {
	var translated string
	err := s.db.QueryRow(
		`SELECT translated_text FROM translations WHERE source_text = ? AND target_lang = ?`,
		source, lang,
	).Scan(&translated)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Warn("Cache read failed; treating as miss", "error", err)
		}
		s.misses.Add(1)
		return "", false
	}

	s.hits.Add(1)
	s.mu.Lock()
	_, err = s.db.Exec(
		`UPDATE translations SET last_accessed_at = ?, access_count = access_count + 1
		 WHERE source_text = ? AND target_lang = ?`,
		time.Now().UTC().Format(time.RFC3339), source, lang,
	)
	s.mu.Unlock()
	if err != nil {
		logger.Warn("Cache access bookkeeping failed", "error", err)
	}
	return translated, true
}

// Set upserts a translation, last-write-wins. Failure is logged, non-fatal.
func (s *Store) Set(source, lang, translated string) {
	now := time.Now().UTC().Format(time.RFC3339)
	s.mu.Lock()
	_, err := s.db.Exec(
		`INSERT INTO translations (source_text, target_lang, translated_text, created_at, last_accessed_at, access_count)
		 VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT (source_text, target_lang) DO UPDATE SET
		   translated_text = excluded.translated_text,
		   last_accessed_at = excluded.last_accessed_at`,
		source, lang, translated, now, now,
	)
	s.mu.Unlock()
	if err != nil {
		logger.Warn("Cache write failed", "error", err)
	}
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM translations`)
	return err
}

// SweepExpired removes entries not accessed within ttl. A ttl of 0 disables
// expiry. Returns the number of removed entries.
func (s *Store) SweepExpired(ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM translations WHERE last_accessed_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Stats returns cumulative hit/miss counters and the current entry count.
func (s *Store) Stats() Stats {
	st := Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM translations`).Scan(&st.Entries); err != nil {
		logger.Warn("Cache count failed", "error", err)
	}
	return st
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
