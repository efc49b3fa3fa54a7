package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, `[
		{"question": "Color?", "options": ["Red", "Blue"]},
		{"question": "Pets?", "options": ["Cat", "Dog", "Fish"], "multiple": true}
	]`)

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len = %d, want 2", cat.Len())
	}

	q, ok := cat.At(0)
	if !ok {
		t.Fatal("At(0) reported exhaustion")
	}
	if q.Text != "Color?" || q.Multiple {
		t.Fatalf("unexpected first question: %+v", q)
	}

	q, ok = cat.At(1)
	if !ok || !q.Multiple {
		t.Fatalf("expected multi-select second question, got %+v ok=%v", q, ok)
	}

	if _, ok := cat.At(2); ok {
		t.Fatal("At(2) should signal exhaustion")
	}
	if _, ok := cat.At(-1); ok {
		t.Fatal("At(-1) should signal exhaustion")
	}
}

func TestLoadEmptyCatalog(t *testing.T) {
	path := writeCatalog(t, `[]`)
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() != 0 {
		t.Fatalf("Len = %d, want 0", cat.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty text", `[{"question": "  ", "options": ["A"]}]`},
		{"no options", `[{"question": "Q", "options": []}]`},
		{"empty option", `[{"question": "Q", "options": ["A", " "]}]`},
		{"duplicate option", `[{"question": "Q", "options": ["A", "A"]}]`},
		{"reserved label", `[{"question": "Q", "options": ["A", "__next__"], "multiple": true}]`},
		{"bad json", `{"question": "Q"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeCatalog(t, tc.data)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestHasOption(t *testing.T) {
	q := Question{Text: "Q", Options: []string{"A", "B"}}
	if !q.HasOption("A") {
		t.Fatal("HasOption(A) = false")
	}
	if q.HasOption("C") {
		t.Fatal("HasOption(C) = true")
	}
}

func TestNewCopiesInput(t *testing.T) {
	src := []Question{{Text: "Q", Options: []string{"A"}}}
	cat, err := New(src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	src[0].Text = "mutated"
	q, _ := cat.At(0)
	if q.Text != "Q" {
		t.Fatalf("catalog shares caller slice: %q", q.Text)
	}
}
