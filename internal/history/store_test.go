package history

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(entityID, op string) Record {
	return Record{
		EntityID:       entityID,
		EntityKind:     "text",
		ContainerTag:   "walls",
		OriginalText:   "墙体",
		TranslatedText: "Wall",
		SourceLang:     "zh-Hans",
		TargetLang:     "en",
		Operation:      op,
	}
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		rec, err := s.Append(testRecord(fmt.Sprintf("e%d", i), OpTranslate))
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if rec.ID == "" || rec.Timestamp.IsZero() {
			t.Fatalf("Append() did not fill identity: %+v", rec)
		}
	}

	recent, err := s.Recent(3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d records", len(recent))
	}
	if recent[0].EntityID != "e4" || recent[2].EntityID != "e2" {
		t.Errorf("Recent() order wrong: %v, %v", recent[0].EntityID, recent[2].EntityID)
	}
}

func TestStore_AppendRejectsUnknownOperation(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Append(testRecord("e1", "rollback")); err == nil {
		t.Errorf("expected error for unknown operation")
	}
}

func TestStore_UndoCandidates(t *testing.T) {
	s := openTestStore(t)

	// 12 translates and one undo; candidates must be the 10 most recent
	// translates, skipping the undo record.
	for i := 0; i < 12; i++ {
		if _, err := s.Append(testRecord(fmt.Sprintf("e%d", i), OpTranslate)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Append(testRecord("e11", OpUndo)); err != nil {
		t.Fatal(err)
	}

	candidates, err := s.UndoCandidates(0)
	if err != nil {
		t.Fatalf("UndoCandidates() error = %v", err)
	}
	if len(candidates) != MaxUndoCandidates {
		t.Fatalf("got %d candidates, want %d", len(candidates), MaxUndoCandidates)
	}
	if candidates[0].EntityID != "e11" || candidates[0].Operation != OpTranslate {
		t.Errorf("first candidate = %+v, want most recent translate", candidates[0])
	}
	for _, c := range candidates {
		if c.Operation != OpTranslate {
			t.Errorf("candidate with operation %q", c.Operation)
		}
	}
}

func TestStore_Stats(t *testing.T) {
	s := openTestStore(t)

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() on empty log error = %v", err)
	}
	if st.Total != 0 {
		t.Fatalf("empty log Total = %d", st.Total)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Append(testRecord("e1", OpTranslate)); err != nil {
			t.Fatal(err)
		}
	}
	rec := testRecord("e2", OpTranslate)
	rec.TargetLang = "fr"
	if _, err := s.Append(rec); err != nil {
		t.Fatal(err)
	}

	st, err = s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Total != 4 || st.Today != 4 {
		t.Errorf("Stats() = %+v, want total=4 today=4", st)
	}
	if st.FirstRecord.IsZero() || time.Since(st.FirstRecord) > time.Minute {
		t.Errorf("FirstRecord = %v", st.FirstRecord)
	}
	if len(st.TopPairs) != 2 || st.TopPairs[0].TargetLang != "en" || st.TopPairs[0].Count != 3 {
		t.Errorf("TopPairs = %+v", st.TopPairs)
	}
}

func TestStore_Clear(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Append(testRecord("e1", OpTranslate)); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	recent, err := s.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 0 {
		t.Errorf("Clear() left %d records", len(recent))
	}
}

func TestStore_ConcurrentAppendsKeepTotalOrder(t *testing.T) {
	s := openTestStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := s.Append(testRecord(fmt.Sprintf("w%d-%d", w, i), OpTranslate)); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	recent, err := s.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 40 {
		t.Errorf("got %d records, want 40", len(recent))
	}
}
