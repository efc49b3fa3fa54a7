package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/surveybot/survey/catalog"
)

func mustCatalog(t *testing.T, questions ...catalog.Question) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(questions)
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return cat
}

func TestTransitionStartGreetsThenAsks(t *testing.T) {
	cat := mustCatalog(t, catalog.Question{Text: "Color?", Options: []string{"Red", "Blue"}})

	out, err := transition(nil, Start(1), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if out.next == nil || out.next.index != 0 {
		t.Fatalf("expected live session at question 0, got %+v", out.next)
	}
	if len(out.sends) != 2 {
		t.Fatalf("sends = %d, want greeting + question", len(out.sends))
	}
	if out.sends[0].Text != greetingText || out.sends[0].Groups != nil {
		t.Fatalf("first send should be the plain greeting, got %+v", out.sends[0])
	}
	if out.sends[1].Text != "Color?" || out.sends[1].Groups == nil {
		t.Fatalf("second send should be the question prompt, got %+v", out.sends[1])
	}
}

func TestTransitionStartEmptyCatalogCompletes(t *testing.T) {
	cat := mustCatalog(t)

	out, err := transition(nil, Start(1), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if out.next != nil {
		t.Fatal("empty catalog must short-circuit to a terminal outcome")
	}
	if len(out.sends) != 2 || out.sends[1].Text != completionText {
		t.Fatalf("expected greeting + completion, got %+v", out.sends)
	}
	if len(out.persist) != 0 {
		t.Fatalf("nothing should be persisted, got %v", out.persist)
	}
}

func TestTransitionCancelIsTerminalFromAnyState(t *testing.T) {
	cat := mustCatalog(t, catalog.Question{Text: "Q", Options: []string{"A"}})

	for _, sess := range []*session{
		nil,
		{index: 0, picked: map[string]bool{}},
	} {
		out, err := transition(sess, Cancel(1), cat, time.Now())
		if err != nil {
			t.Fatalf("transition failed: %v", err)
		}
		if out.next != nil {
			t.Fatal("cancel must evict the session")
		}
		if len(out.persist) != 0 {
			t.Fatalf("cancel must not persist, got %v", out.persist)
		}
		if len(out.sends) != 1 || out.sends[0].Text != farewellText {
			t.Fatalf("expected farewell, got %+v", out.sends)
		}
	}
}

func TestTransitionSelectWithoutSession(t *testing.T) {
	cat := mustCatalog(t, catalog.Question{Text: "Q", Options: []string{"A"}})

	out, err := transition(nil, Select(1, "A"), cat, time.Now())
	if !errors.Is(err, ErrNoActiveQuestion) {
		t.Fatalf("err = %v, want ErrNoActiveQuestion", err)
	}
	if len(out.persist) != 0 {
		t.Fatalf("protocol violation must not persist, got %v", out.persist)
	}
}

func TestTransitionSingleChoicePersistsAndAdvances(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Question{Text: "Color?", Options: []string{"Red", "Blue"}},
		catalog.Question{Text: "Size?", Options: []string{"S", "M"}},
	)
	sess := &session{index: 0, picked: map[string]bool{}}

	out, err := transition(sess, Select(1, "Blue"), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if out.question != "Color?" || len(out.persist) != 1 || out.persist[0] != "Blue" {
		t.Fatalf("unexpected persist set: %q %v", out.question, out.persist)
	}
	if out.next == nil || out.next.index != 1 {
		t.Fatalf("expected advance to question 1, got %+v", out.next)
	}
	if len(out.sends) != 1 || out.sends[0].Text != "Size?" {
		t.Fatalf("expected next prompt, got %+v", out.sends)
	}
}

func TestTransitionMultiSelect(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Question{Text: "Pets?", Options: []string{"A", "B", "C"}, Multiple: true},
	)
	sess := &session{index: 0, picked: map[string]bool{}}

	// First pick persists and keeps the question open.
	out, err := transition(sess, Select(1, "A"), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if len(out.persist) != 1 || out.persist[0] != "A" {
		t.Fatalf("persist = %v, want [A]", out.persist)
	}
	if out.next == nil || out.next.index != 0 || !out.next.picked["A"] {
		t.Fatalf("expected open session remembering A, got %+v", out.next)
	}

	// A repeated pick is acknowledged without a second record.
	out, err = transition(out.next, Select(1, "A"), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if len(out.persist) != 0 {
		t.Fatalf("repeated pick persisted: %v", out.persist)
	}
	if len(out.sends) != 1 || out.sends[0].Text != pickedText {
		t.Fatalf("expected acknowledgment, got %+v", out.sends)
	}

	// Continue advances without persisting the token.
	out, err = transition(out.next, Select(1, ContinueToken), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if len(out.persist) != 0 {
		t.Fatalf("continue token persisted: %v", out.persist)
	}
	if out.next != nil {
		t.Fatal("catalog exhausted, session should be evicted")
	}
	if len(out.sends) != 1 || out.sends[0].Text != completionText {
		t.Fatalf("expected completion, got %+v", out.sends)
	}
}

func TestTransitionRejectsForeignToken(t *testing.T) {
	cat := mustCatalog(t, catalog.Question{Text: "Q", Options: []string{"A", "B"}})
	sess := &session{index: 0, picked: map[string]bool{}}

	out, err := transition(sess, Select(1, "Z"), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if len(out.persist) != 0 {
		t.Fatalf("foreign token persisted: %v", out.persist)
	}
	if out.next == nil || out.next.index != 0 {
		t.Fatalf("foreign token must not advance, got %+v", out.next)
	}
}

func TestPromptChunksChoicesInRowsOfThree(t *testing.T) {
	cat := mustCatalog(t, catalog.Question{
		Text:    "Q",
		Options: []string{"1", "2", "3", "4", "5", "6", "7"},
	})

	out, err := transition(nil, Start(1), cat, time.Now())
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	groups := out.sends[1].Groups
	want := []int{3, 3, 1}
	if len(groups) != len(want) {
		t.Fatalf("groups = %d rows, want %d", len(groups), len(want))
	}
	for i, n := range want {
		if len(groups[i]) != n {
			t.Fatalf("row %d has %d choices, want %d", i, len(groups[i]), n)
		}
	}
}
