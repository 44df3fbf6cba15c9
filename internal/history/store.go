// Package history keeps an append-only ledger of applied text edits. Undo is
// a forward append, never a deletion, so the ledger is a complete audit trail.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Operations recorded in the ledger.
const (
	OpTranslate = "translate"
	OpUndo      = "undo"
)

// MaxUndoCandidates caps how many recent translate records undo considers.
const MaxUndoCandidates = 10

// Record is one applied text change. Records are immutable once appended;
// EntityID is an opaque external handle and is not unique across records.
type Record struct {
	ID             string
	Timestamp      time.Time
	EntityID       string
	EntityKind     string
	ContainerTag   string
	OriginalText   string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	Operation      string
}

// LanguagePairCount is one (source, target) pair with its record count.
type LanguagePairCount struct {
	SourceLang string
	TargetLang string
	Count      int
}

// Stats summarizes the ledger.
type Stats struct {
	Total       int64
	Today       int64
	TopPairs    []LanguagePairCount
	FirstRecord time.Time
}

// Store is a SQLite-backed append-only history log. Appends are serialized
// by a single mutex to preserve one total order.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the history database location under the user's home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".doctran", "history.db")
}

// Open creates (or opens) the history database at path.
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
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS edits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		ts TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		entity_kind TEXT,
		container_tag TEXT,
		original_text TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		source_lang TEXT,
		target_lang TEXT,
		operation TEXT NOT NULL
	);`)
	return err
}

// Append adds a record to the ledger. The record's ID and Timestamp are
// filled in when empty.
func (s *Store) Append(rec Record) (Record, error) {
	if rec.Operation != OpTranslate && rec.Operation != OpUndo {
		return rec, fmt.Errorf("invalid operation %q", rec.Operation)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO edits
		(id, ts, entity_id, entity_kind, container_tag, original_text, translated_text, source_lang, target_lang, operation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.EntityID,
		rec.EntityKind,
		rec.ContainerTag,
		rec.OriginalText,
		rec.TranslatedText,
		rec.SourceLang,
		rec.TargetLang,
		rec.Operation,
	)
	return rec, err
}

const recordColumns = `id, ts, entity_id, entity_kind, container_tag, original_text, translated_text, source_lang, target_lang, operation`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.EntityID, &rec.EntityKind, &rec.ContainerTag,
			&rec.OriginalText, &rec.TranslatedText, &rec.SourceLang, &rec.TargetLang, &rec.Operation); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Recent returns the last n records, most-recent-first. n <= 0 returns all.
func (s *Store) Recent(n int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM edits ORDER BY seq DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// UndoCandidates returns the most recent translate records, most-recent-first,
// capped at MaxUndoCandidates. The ranking spans all entities together.
func (s *Store) UndoCandidates(limit int) ([]Record, error) {
	if limit <= 0 || limit > MaxUndoCandidates {
		limit = MaxUndoCandidates
	}
	rows, err := s.db.Query(
		`SELECT `+recordColumns+` FROM edits WHERE operation = ? ORDER BY seq DESC LIMIT ?`,
		OpTranslate, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Stats returns ledger aggregates: total count, today's count, top language
// pairs and the first record's timestamp.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM edits`).Scan(&st.Total); err != nil {
		return st, err
	}
	if st.Total == 0 {
		return st, nil
	}

	todayStart := time.Now().UTC().Truncate(24 * time.Hour).Format(time.RFC3339Nano)
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM edits WHERE ts >= ?`, todayStart).Scan(&st.Today); err != nil {
		return st, err
	}

	var first string
	if err := s.db.QueryRow(`SELECT ts FROM edits ORDER BY seq ASC LIMIT 1`).Scan(&first); err != nil {
		return st, err
	}
	if t, err := time.Parse(time.RFC3339Nano, first); err == nil {
		st.FirstRecord = t
	}

	rows, err := s.db.Query(
		`SELECT source_lang, target_lang, COUNT(*) AS n FROM edits
		 GROUP BY source_lang, target_lang ORDER BY n DESC, source_lang, target_lang LIMIT 5`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var pair LanguagePairCount
		if err := rows.Scan(&pair.SourceLang, &pair.TargetLang, &pair.Count); err != nil {
			return st, err
		}
		st.TopPairs = append(st.TopPairs, pair)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	sort.SliceStable(st.TopPairs, func(i, j int) bool { return st.TopPairs[i].Count > st.TopPairs[j].Count })
	return st, nil
}

// Clear empties the ledger. This is the only destructive operation.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM edits`)
	return err
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
