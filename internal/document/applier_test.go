package document

import (
	"errors"
	"testing"

	"github.com/oukeidos/doctran/internal/apperrors"
)

func wallStore() *MemStore {
	return NewMemStore(
		MemEntity{EntID: "e1", EntKind: "text", EntTag: "walls", EntText: "墙体"},
		MemEntity{EntID: "e2", EntKind: "text", EntTag: "walls", EntText: "梁"},
		MemEntity{EntID: "e3", EntKind: "note", EntTag: "beams", EntText: "柱"},
	)
}

func TestApply_AllResolvable(t *testing.T) {
	store := wallStore()

	result, err := Apply(store, map[string]string{
		"e1": "Wall",
		"e2": "Beam",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.SuccessCount() != 2 || result.SkippedCount() != 0 {
		t.Fatalf("result = success %d, skipped %d", result.SuccessCount(), result.SkippedCount())
	}

	if text, _ := store.TextOf("e1"); text != "Wall" {
		t.Errorf("e1 text = %q, want Wall", text)
	}
	for _, edit := range result.Applied {
		if edit.ID == "e1" && edit.OriginalText != "墙体" {
			t.Errorf("e1 original = %q, want 墙体", edit.OriginalText)
		}
	}
}

func TestApply_SkipAccounting(t *testing.T) {
	store := wallStore()
	store.Delete("e2")

	result, err := Apply(store, map[string]string{
		"e1": "Wall",
		"e2": "Beam",
		"e3": "Column",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.SuccessCount() != 2 {
		t.Errorf("successCount = %d, want 2", result.SuccessCount())
	}
	if result.SkippedCount() != 1 || result.SkippedIDs[0] != "e2" {
		t.Errorf("skipped = %v, want [e2]", result.SkippedIDs)
	}

	// The document must reflect exactly N-1 changes.
	if text, _ := store.TextOf("e1"); text != "Wall" {
		t.Errorf("e1 text = %q, want Wall", text)
	}
	if text, _ := store.TextOf("e3"); text != "Column" {
		t.Errorf("e3 text = %q, want Column", text)
	}
}

func TestApply_TransactionalFailureLeavesDocumentUnchanged(t *testing.T) {
	store := wallStore()
	store.FailUpdate = errors.New("disk full")

	_, err := Apply(store, map[string]string{"e1": "Wall"})
	if err == nil {
		t.Fatalf("expected apply_aborted error")
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindApplyAborted {
		t.Errorf("error kind = %q, want apply_aborted", kind)
	}

	if text, _ := store.TextOf("e1"); text != "墙体" {
		t.Errorf("document changed after aborted apply: e1 = %q", text)
	}
}

func TestApply_EmptyEdits(t *testing.T) {
	store := wallStore()
	result, err := Apply(store, nil)
	if err != nil {
		t.Fatalf("Apply(nil) error = %v", err)
	}
	if result.SuccessCount() != 0 || result.SkippedCount() != 0 {
		t.Errorf("Apply(nil) = %+v, want empty result", result)
	}
}

func TestMemStore_EnumerateSelector(t *testing.T) {
	store := wallStore()

	all, err := store.Enumerate("")
	if err != nil || len(all) != 3 {
		t.Fatalf("Enumerate(\"\") = %d entities, err %v", len(all), err)
	}
	walls, err := store.Enumerate("walls")
	if err != nil || len(walls) != 2 {
		t.Fatalf("Enumerate(walls) = %d entities, err %v", len(walls), err)
	}
	for _, e := range walls {
		if e.Tag() != "walls" {
			t.Errorf("selector leaked entity with tag %q", e.Tag())
		}
	}
}
