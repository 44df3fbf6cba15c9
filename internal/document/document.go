// Package document defines the consumed document-model surface: enumerable
// text entities with read/write capability, and the write-back applier.
package document

// Entity is one live document string with its read capability resolved at
// enumeration time. The ID is a stable opaque handle valid until the entity
// is deleted.
type Entity interface {
	ID() string
	Kind() string
	Tag() string
	Text() string
}

// Tx is one atomic write-back transaction over a Store.
type Tx interface {
	// Lookup resolves an entity by ID; ok is false when it no longer exists.
	Lookup(id string) (Entity, bool)
	// SetText overwrites the entity's text. An error aborts the whole
	// transaction.
	SetText(id, text string) error
}

// Store is the external document model. Update runs fn inside one atomic
// transaction: if fn returns an error, nothing is written.
type Store interface {
	Enumerate(selector string) ([]Entity, error)
	Update(fn func(Tx) error) error
}
