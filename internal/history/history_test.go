package history

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history.csv"), Retention{})
}

func TestAppendAndList(t *testing.T) {
	s := tempStore(t)
	err := s.Append(Entry{
		Command:       `click on "Compose" then type "Hello, world"`,
		Steps:         []string{`click on "Compose" [executed]`, `type "Hello, world" [executed]`},
		Code:          "move(60, 25)\nclick()\ntype(\"Hello, world\")",
		Success:       true,
		ScreenSummary: "new text: hello, world",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(Entry{Command: "press escape", Success: false}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Command != "press escape" {
		t.Errorf("first listed = %q, want the newest", entries[0].Command)
	}
	got := entries[1]
	if !got.Success || len(got.Steps) != 2 || got.ScreenSummary != "new text: hello, world" {
		t.Errorf("round-tripped entry = %+v", got)
	}
	if !strings.Contains(got.Code, `type("Hello, world")`) {
		t.Errorf("program lost in round trip: %q", got.Code)
	}
}

func TestAppendRowsAlwaysComplete(t *testing.T) {
	s := tempStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(Entry{Command: "click on Save, then press enter", Success: true})
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	r := csv.NewReader(strings.NewReader(string(data)))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("file has a torn row: %v", err)
	}
	if len(rows) != 21 {
		t.Errorf("got %d rows, want header plus 20", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(header) {
			t.Errorf("row %d has %d columns", i, len(row))
		}
	}
}

func TestLegacyHeaderMigration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")
	legacy := "timestamp,command,steps,code,success\n" +
		"2026-08-01T10:00:00Z,click on Save,click on Save [executed],\"move(1, 2)\nclick()\",true\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, Retention{})
	if err := s.Append(Entry{Command: "press tab", Success: true, ScreenSummary: "no visible change"}); err != nil {
		t.Fatalf("Append over legacy file: %v", err)
	}

	entries, err := s.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Command != "click on Save" || entries[1].ScreenSummary != "" {
		t.Errorf("migrated legacy entry = %+v", entries[1])
	}
	if entries[0].ScreenSummary != "no visible change" {
		t.Errorf("new entry = %+v", entries[0])
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), strings.Join(header, ",")) {
		t.Errorf("file header not upgraded: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestSweepByAge(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.csv"), Retention{MaxAgeDays: 30})
	old := time.Now().AddDate(0, 0, -40)
	if err := s.Append(Entry{Timestamp: old, Command: "ancient"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(Entry{Command: "recent"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	entries, _ := s.List(0)
	if len(entries) != 1 || entries[0].Command != "recent" {
		t.Errorf("after sweep: %+v", entries)
	}
}

func TestSweepByCount(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.csv"), Retention{MaxCount: 3})
	for _, c := range []string{"one", "two", "three", "four", "five"} {
		if err := s.Append(Entry{Command: c}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	entries, _ := s.List(0)
	if len(entries) != 3 {
		t.Fatalf("kept %d entries, want 3", len(entries))
	}
	// Oldest dropped first; List is newest first.
	if entries[0].Command != "five" || entries[2].Command != "three" {
		t.Errorf("kept %q .. %q", entries[0].Command, entries[2].Command)
	}
}

func TestListLimit(t *testing.T) {
	s := tempStore(t)
	for _, c := range []string{"one", "two", "three"} {
		if err := s.Append(Entry{Command: c}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Command != "three" {
		t.Errorf("List(2) = %+v", entries)
	}
}
