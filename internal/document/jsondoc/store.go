// Package jsondoc adapts a JSON entity file to the document.Store interface.
// Write-back rewrites the whole file atomically, so a failing transaction
// leaves the document untouched.
package jsondoc

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oukeidos/doctran/internal/document"
	"github.com/oukeidos/doctran/internal/files"
)

type entityJSON struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`
	Tag  string `json:"tag,omitempty"`
	Text string `json:"text"`
}

type docJSON struct {
	Entities []entityJSON `json:"entities"`
}

type entity struct {
	raw entityJSON
}

func (e entity) ID() string   { return e.raw.ID }
func (e entity) Kind() string { return e.raw.Kind }
func (e entity) Tag() string  { return e.raw.Tag }
func (e entity) Text() string { return e.raw.Text }

// Store is a document.Store backed by one JSON file.
type Store struct {
	path string
}

var _ document.Store = (*Store)(nil)

// Open validates that path holds a readable document.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (docJSON, error) {
	var doc docJSON
	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, fmt.Errorf("failed to read document: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse document: %w", err)
	}
	seen := make(map[string]bool, len(doc.Entities))
	for _, e := range doc.Entities {
		if e.ID == "" {
			return doc, fmt.Errorf("document entity with empty id")
		}
		if seen[e.ID] {
			return doc, fmt.Errorf("duplicate entity id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return doc, nil
}

// Enumerate returns entities whose tag matches selector; empty selector
// matches all. Order is file order.
func (s *Store) Enumerate(selector string) ([]document.Entity, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []document.Entity
	for _, e := range doc.Entities {
		if selector == "" || e.Tag == selector {
			out = append(out, entity{raw: e})
		}
	}
	return out, nil
}

type tx struct {
	byID map[string]*entityJSON
}

func (t *tx) Lookup(id string) (document.Entity, bool) {
	e, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return entity{raw: *e}, true
}

func (t *tx) SetText(id, text string) error {
	e, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("entity %q not found", id)
	}
	e.Text = text
	return nil
}

// Update loads the document, runs fn against an in-memory copy, and writes
// the result back atomically. If fn or the write fails, the file keeps its
// previous content.
func (s *Store) Update(fn func(document.Tx) error) error {
	doc, err := s.load()
	if err != nil {
		return err
	}

	byID := make(map[string]*entityJSON, len(doc.Entities))
	for i := range doc.Entities {
		byID[doc.Entities[i].ID] = &doc.Entities[i]
	}

	if err := fn(&tx{byID: byID}); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	data = append(data, '\n')
	return files.AtomicWrite(s.path, data, 0o644)
}
