package generator

import (
	"reflect"
	"testing"

	"github.com/mock-test/backend/internal/models"
)

func TestFallbackRecords_Deterministic(t *testing.T) {
	a := fallbackRecords("Data Structures", 0, 7)
	b := fallbackRecords("Data Structures", 0, 7)

	if !reflect.DeepEqual(a, b) {
		t.Error("fallback output should be identical for identical inputs")
	}
}

func TestFallbackRecords_CorrectLetterCycles(t *testing.T) {
	out := Normalize(fallbackRecords("Computer Network", 0, 7), Tags{Source: FallbackSource}, 7, nil)
	if len(out) != 7 {
		t.Fatalf("expected 7 candidates, got %d", len(out))
	}

	want := []string{"A", "B", "C", "D", "A", "B", "C"}
	for i, q := range out {
		if q.CorrectOption != want[i] {
			t.Errorf("candidate %d: expected %s, got %s", i, want[i], q.CorrectOption)
		}
		if q.Source != FallbackSource {
			t.Errorf("candidate %d: expected source %q, got %q", i, FallbackSource, q.Source)
		}
	}
}

func TestFallbackRecords_OffsetContinuesSequence(t *testing.T) {
	whole := fallbackRecords("Computer Fundamentals", 0, 10)
	tail := fallbackRecords("Computer Fundamentals", 5, 5)

	if !reflect.DeepEqual(whole[5:], tail) {
		t.Error("offset batch should match the corresponding slice of a single run")
	}
}

func TestFallbackOptions_DistinctAndReproducible(t *testing.T) {
	for idx := 0; idx < 8; idx++ {
		opts := fallbackOptions("T", "stacks", idx)
		if again := fallbackOptions("T", "stacks", idx); opts != again {
			t.Fatalf("idx %d: options not reproducible", idx)
		}

		seen := map[string]bool{}
		for _, o := range opts {
			if o == "" || seen[o] {
				t.Errorf("idx %d: options must be distinct and non-empty: %v", idx, opts)
			}
			seen[o] = true
		}
	}
}

func TestFallbackRecords_UnknownTopicUsesGenericPool(t *testing.T) {
	out := fallbackRecords("Quantum Basketweaving", 0, 1)
	q := out[0]["question_text"].(string)

	want := "(1) Which of the following best describes concepts in Quantum Basketweaving?"
	if q != want {
		t.Errorf("got %q, want %q", q, want)
	}
	if out[0]["correct_option"] != models.OptionLetters[0] {
		t.Errorf("first record should be A")
	}
}
