// Package screenshot names and garbage-collects the screenshot files a run
// produces.
package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"deskpilot/internal/logging"
)

// Prefix classifies a screenshot by purpose; it becomes the filename prefix.
type Prefix string

const (
	PrefixRun    Prefix = "screenshot" // perception capture
	PrefixTemp   Prefix = "temp"       // intermediate captures
	PrefixBefore Prefix = "before"     // pre-run state
	PrefixAfter  Prefix = "after"      // post-run state
)

// Retention bounds the directory by age and file count. Zero values take
// the defaults (1 day, 10 files).
type Retention struct {
	MaxAge   time.Duration
	MaxCount int
}

func (r Retention) withDefaults() Retention {
	if r.MaxAge == 0 {
		r.MaxAge = 24 * time.Hour
	}
	if r.MaxCount == 0 {
		r.MaxCount = 10
	}
	return r
}

// Store hands out screenshot paths under one directory and sweeps old
// files.
type Store struct {
	dir       string
	retention Retention
}

// NewStore creates the store and its directory.
func NewStore(dir string, retention Retention) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory: %w", err)
	}
	return &Store{dir: dir, retention: retention.withDefaults()}, nil
}

// Dir returns the screenshot directory.
func (s *Store) Dir() string { return s.dir }

// Path returns a fresh timestamped path for the given prefix.
func (s *Store) Path(prefix Prefix) string {
	name := fmt.Sprintf("%s_%s.png", prefix, time.Now().Format("20060102_150405.000"))
	// The format uses a dot for sub-second precision; keep filenames to a
	// single extension dot.
	name = strings.Replace(name, ".", "_", 1)
	return filepath.Join(s.dir, name)
}

// Sweep removes screenshots past the age limit, then trims the remainder
// to the file cap, oldest first. Errors on individual files are logged and
// skipped.
func (s *Store) Sweep(now time.Time) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading screenshot directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		if !hasKnownPrefix(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: filepath.Join(s.dir, e.Name()), mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })

	log := logging.Get(logging.CategoryScreenshot)
	cutoff := now.Add(-s.retention.MaxAge)
	removed := 0
	kept := files[:0]
	for _, f := range files {
		if f.mod.Before(cutoff) {
			if err := os.Remove(f.path); err != nil {
				log.Warn("could not remove %s: %v", f.path, err)
				kept = append(kept, f)
				continue
			}
			removed++
			continue
		}
		kept = append(kept, f)
	}
	for len(kept) > s.retention.MaxCount {
		f := kept[0]
		if err := os.Remove(f.path); err != nil {
			log.Warn("could not remove %s: %v", f.path, err)
			break
		}
		removed++
		kept = kept[1:]
	}
	if removed > 0 {
		log.Info("screenshot sweep removed %d files", removed)
	}
	return nil
}

func hasKnownPrefix(name string) bool {
	for _, p := range []Prefix{PrefixRun, PrefixTemp, PrefixBefore, PrefixAfter} {
		if strings.HasPrefix(name, string(p)+"_") {
			return true
		}
	}
	return false
}
