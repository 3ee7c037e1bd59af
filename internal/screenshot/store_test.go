package screenshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPathNaming(t *testing.T) {
	s, err := NewStore(t.TempDir(), Retention{})
	if err != nil {
		t.Fatal(err)
	}
	p := s.Path(PrefixBefore)
	name := filepath.Base(p)
	if !strings.HasPrefix(name, "before_") || !strings.HasSuffix(name, ".png") {
		t.Errorf("path = %q", name)
	}
	if strings.Count(name, ".") != 1 {
		t.Errorf("filename %q should carry a single extension dot", name)
	}
}

func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(p, mod, mod); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSweepByAge(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, Retention{MaxAge: 24 * time.Hour, MaxCount: 100})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	old := touch(t, dir, "screenshot_old.png", now.Add(-48*time.Hour))
	fresh := touch(t, dir, "after_fresh.png", now)
	other := touch(t, dir, "unrelated.png", now.Add(-48*time.Hour))

	if err := s.Sweep(now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("aged screenshot survived the sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh screenshot removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("file without a known prefix was touched")
	}
}

func TestSweepByCount(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, Retention{MaxAge: 240 * time.Hour, MaxCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	oldest := touch(t, dir, "temp_1.png", now.Add(-3*time.Hour))
	touch(t, dir, "temp_2.png", now.Add(-2*time.Hour))
	touch(t, dir, "temp_3.png", now.Add(-time.Hour))

	if err := s.Sweep(now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("kept %d files, want 2", len(entries))
	}
	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Error("oldest file should be trimmed first")
	}
}
