package document

import (
	"sort"

	"github.com/oukeidos/doctran/internal/apperrors"
)

// AppliedEdit is one successfully changed entity, with the text it carried
// before the change.
type AppliedEdit struct {
	ID           string
	Kind         string
	Tag          string
	OriginalText string
	NewText      string
}

// ApplyResult reports per-entity outcomes of one write-back call.
type ApplyResult struct {
	Applied    []AppliedEdit
	SkippedIDs []string
}

// SuccessCount returns the number of changed entities.
func (r ApplyResult) SuccessCount() int { return len(r.Applied) }

// SkippedCount returns the number of entries whose entity was missing.
func (r ApplyResult) SkippedCount() int { return len(r.SkippedIDs) }

// Apply writes edits (entity id -> new text) into store within one atomic
// transaction. Missing entities are skipped and counted, never an error. An
// unexpected transactional failure aborts the whole call with apply_aborted
// and the document is left unchanged.
func Apply(store Store, edits map[string]string) (ApplyResult, error) {
	var result ApplyResult
	if len(edits) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(edits))
	for id := range edits {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	err := store.Update(func(tx Tx) error {
		for _, id := range ids {
			ent, ok := tx.Lookup(id)
			if !ok {
				result.SkippedIDs = append(result.SkippedIDs, id)
				continue
			}
			original := ent.Text()
			if err := tx.SetText(id, edits[id]); err != nil {
				return err
			}
			result.Applied = append(result.Applied, AppliedEdit{
				ID:           id,
				Kind:         ent.Kind(),
				Tag:          ent.Tag(),
				OriginalText: original,
				NewText:      edits[id],
			})
		}
		return nil
	})
	if err != nil {
		return ApplyResult{}, apperrors.ApplyAborted(err)
	}
	return result, nil
}
