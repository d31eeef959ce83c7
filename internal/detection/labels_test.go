package detection

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLabels_ExplicitIDs(t *testing.T) {
	table, err := ParseLabels(strings.NewReader("# coco\n1 person\n2: bicycle\n\n90 toothbrush\n"))
	if err != nil {
		t.Fatalf("ParseLabels failed: %v", err)
	}

	tests := map[int]string{1: "person", 2: "bicycle", 90: "toothbrush"}
	for id, want := range tests {
		if got, ok := table.Lookup(id); !ok || got != want {
			t.Errorf("Lookup(%d) = %q, %v; expected %q", id, got, ok, want)
		}
	}
	if _, ok := table.Lookup(3); ok {
		t.Error("Lookup(3) should miss")
	}
}

func TestParseLabels_LineIndex(t *testing.T) {
	table, err := ParseLabels(strings.NewReader("background\nperson\ntraffic light\n"))
	if err != nil {
		t.Fatalf("ParseLabels failed: %v", err)
	}

	if got, _ := table.Lookup(2); got != "traffic light" {
		t.Errorf("Lookup(2) = %q, expected traffic light", got)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, expected 3", table.Len())
	}
}

func TestLoadLabels_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	if err := os.WriteFile(path, []byte("1 person\n18 dog\n"), 0644); err != nil {
		t.Fatalf("Failed to write labels: %v", err)
	}

	table, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	if got, _ := table.Lookup(18); got != "dog" {
		t.Errorf("Lookup(18) = %q", got)
	}
}

func TestLoadLabels_Missing(t *testing.T) {
	if _, err := LoadLabels(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing labels file")
	}
}

func TestNewLabelTable_Copies(t *testing.T) {
	names := map[int]string{1: "person"}
	table := NewLabelTable(names)
	names[1] = "changed"

	if got, _ := table.Lookup(1); got != "person" {
		t.Errorf("table was mutated through source map: %q", got)
	}
}
