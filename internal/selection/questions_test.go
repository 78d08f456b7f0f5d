package selection

import (
	"encoding/json"
	"testing"
)

func sampleQuestions() []Question {
	return []Question{
		{"id": "q1", "text": "2+2"},
		{"id": "q2", "text": "3+3"},
		{"id": float64(3), "text": "4+4"},
	}
}

func ids(qs []Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQuestionID(t *testing.T) {
	var q Question
	if err := json.Unmarshal([]byte(`{"id":42,"text":"x"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID() != "42" {
		t.Fatalf("expected 42, got %q", q.ID())
	}
	if (Question{"text": "no id"}).ID() != "" {
		t.Fatalf("missing id should be empty")
	}
}

func TestBinRemoveAndRestore(t *testing.T) {
	b := NewBin()
	b.SetQuestions(sampleQuestions())

	if !b.RemoveQuestion("q2") {
		t.Fatalf("expected removal")
	}
	if got := ids(b.Questions()); !equalStrings(got, []string{"q1", "3"}) {
		t.Fatalf("active list got=%v", got)
	}
	if got := ids(b.RemovedQuestions()); !equalStrings(got, []string{"q2"}) {
		t.Fatalf("removed list got=%v", got)
	}
	if got := b.ExcludedQuestions(); !equalStrings(got, []string{"q2"}) {
		t.Fatalf("excluded got=%v", got)
	}

	if !b.RestoreQuestion("q2") {
		t.Fatalf("expected restore")
	}
	if got := ids(b.Questions()); !equalStrings(got, []string{"q1", "3", "q2"}) {
		t.Fatalf("restored list got=%v", got)
	}
	if len(b.RemovedQuestions()) != 0 || len(b.ExcludedQuestions()) != 0 {
		t.Fatalf("restore should clear removed and excluded")
	}
	if b.RemoveQuestion("missing") {
		t.Fatalf("unknown id should not be removed")
	}
}

func TestBinPermanentDeleteKeepsExclusion(t *testing.T) {
	b := NewBin()
	b.SetQuestions(sampleQuestions())
	b.RemoveQuestion("q1")

	if !b.PermanentlyDeleteQuestion("q1") {
		t.Fatalf("expected permanent delete")
	}
	if len(b.RemovedQuestions()) != 0 {
		t.Fatalf("removed list should be empty")
	}
	if got := b.ExcludedQuestions(); !equalStrings(got, []string{"q1"}) {
		t.Fatalf("deleted id must stay excluded, got=%v", got)
	}
	if b.RestoreQuestion("q1") {
		t.Fatalf("deleted question cannot be restored")
	}
}

func TestBinRestoreAllAndClearRemoved(t *testing.T) {
	b := NewBin()
	b.SetQuestions(sampleQuestions())
	b.RemoveQuestion("q1")
	b.RemoveQuestion("3")

	b.RestoreAllQuestions()
	if got := ids(b.Questions()); !equalStrings(got, []string{"q2", "q1", "3"}) {
		t.Fatalf("restore all got=%v", got)
	}
	if len(b.ExcludedQuestions()) != 0 {
		t.Fatalf("excluded should be empty after restore all")
	}

	b.RemoveQuestion("q2")
	b.ClearRemovedQuestions()
	if len(b.RemovedQuestions()) != 0 {
		t.Fatalf("clear removed should empty the bin")
	}
	if got := b.ExcludedQuestions(); !equalStrings(got, []string{"q2"}) {
		t.Fatalf("cleared ids stay excluded, got=%v", got)
	}
}

func TestBinUpdateQuestionMerges(t *testing.T) {
	b := NewBin()
	b.SetQuestions(sampleQuestions())
	if !b.UpdateQuestion("q1", map[string]any{"marks": 2}) {
		t.Fatalf("expected update")
	}
	q := b.Questions()[0]
	if q["text"] != "2+2" || q["marks"] != 2 {
		t.Fatalf("merge lost fields: %+v", q)
	}
	if b.UpdateQuestion("nope", map[string]any{"x": 1}) {
		t.Fatalf("unknown id should not update")
	}
}

func TestBinSnapshotRestore(t *testing.T) {
	b := NewBin()
	b.SetQuestions(sampleQuestions())
	b.RemoveQuestion("q2")

	other := NewBin()
	other.Restore(b.Snapshot())
	if !equalStrings(ids(other.Questions()), ids(b.Questions())) {
		t.Fatalf("questions mismatch")
	}
	if !equalStrings(other.ExcludedQuestions(), []string{"q2"}) {
		t.Fatalf("excluded mismatch")
	}
}
