package imageprocessing

import "testing"

func TestNewBatchID_UniqueAndValid(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewBatchID()
		if !IsBatchID(id) {
			t.Fatalf("NewBatchID returned invalid id %q", id)
		}
		if seen[id] {
			t.Fatalf("NewBatchID returned duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestIsBatchID_RejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "..", "not-a-uuid", "../../etc/passwd"} {
		if IsBatchID(id) {
			t.Errorf("IsBatchID(%q) = true, want false", id)
		}
	}
}
