package document

import "testing"

func TestNew_StableID(t *testing.T) {
	a := New("the same content", "upload-a")
	b := New("the same content", "upload-b")

	if a.ID != b.ID {
		t.Errorf("identical content produced different IDs: %s vs %s", a.ID, b.ID)
	}
	if len(a.ID) != idLength {
		t.Errorf("ID length = %d, want %d", len(a.ID), idLength)
	}

	c := New("different content", "upload-c")
	if c.ID == a.ID {
		t.Error("different content should produce a different ID")
	}
}

func TestEmpty(t *testing.T) {
	if !New("  \n\t ", "blank").Empty() {
		t.Error("whitespace-only document should be empty")
	}
	if New("text", "ok").Empty() {
		t.Error("non-blank document should not be empty")
	}
}
