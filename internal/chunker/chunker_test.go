package chunker

import (
	"fmt"
	"testing"
)

func TestSplit(t *testing.T) {
	texts := make([]string, 125)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	chunks := Split(texts, 50)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	if len(chunks[0].Texts) != 50 || chunks[0].Start != 0 {
		t.Errorf("chunk 0: len=%d start=%d, want len=50 start=0", len(chunks[0].Texts), chunks[0].Start)
	}
	if len(chunks[1].Texts) != 50 || chunks[1].Start != 50 {
		t.Errorf("chunk 1: len=%d start=%d, want len=50 start=50", len(chunks[1].Texts), chunks[1].Start)
	}
	if len(chunks[2].Texts) != 25 || chunks[2].Start != 100 {
		t.Errorf("chunk 2: len=%d start=%d, want len=25 start=100", len(chunks[2].Texts), chunks[2].Start)
	}

	if chunks[1].Texts[0] != "text-50" {
		t.Errorf("chunk 1 first text = %q, want text-50", chunks[1].Texts[0])
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d", i, c.Index)
		}
	}
}

func TestSplit_EdgeCases(t *testing.T) {
	if chunks := Split(nil, 50); chunks != nil {
		t.Errorf("Split(nil) = %v, want nil", chunks)
	}
	if chunks := Split([]string{"a"}, 0); len(chunks) != 1 || len(chunks[0].Texts) != 1 {
		t.Errorf("Split with size 0 should clamp to 1, got %v", chunks)
	}
	chunks := Split([]string{"a", "b"}, 50)
	if len(chunks) != 1 || len(chunks[0].Texts) != 2 {
		t.Errorf("short input should yield one chunk, got %v", chunks)
	}
}
