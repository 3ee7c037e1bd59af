// Package history persists completed runs to an append-only CSV file and
// enforces its retention policy.
package history

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"deskpilot/internal/logging"
)

// header is the current on-disk column set.
var header = []string{"timestamp", "command", "steps", "code", "success", "screen_summary"}

// legacyHeader is the pre-summary format still found in old files.
var legacyHeader = []string{"timestamp", "command", "steps", "code", "success"}

// Entry is one completed run.
type Entry struct {
	Timestamp     time.Time
	Command       string
	Steps         []string
	Code          string
	Success       bool
	ScreenSummary string
}

// Retention bounds the file by age and row count. Zero values take the
// defaults (30 days, 1000 rows).
type Retention struct {
	MaxAgeDays int
	MaxCount   int
}

func (r Retention) withDefaults() Retention {
	if r.MaxAgeDays == 0 {
		r.MaxAgeDays = 30
	}
	if r.MaxCount == 0 {
		r.MaxCount = 1000
	}
	return r
}

// Store reads and appends run history. Safe for concurrent use within one
// process.
type Store struct {
	path      string
	retention Retention
	mu        sync.Mutex
}

// NewStore creates the store; the file is created lazily on first append.
func NewStore(path string, retention Retention) *Store {
	return &Store{path: path, retention: retention.withDefaults()}
}

// Append writes one entry. The record is assembled in memory and written
// with a single write call so a concurrent reader never sees a torn row.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	needHeader, err := s.ensureCurrentFormat()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if needHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("encoding history header: %w", err)
		}
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	record := []string{
		ts.Format(time.RFC3339),
		e.Command,
		strings.Join(e.Steps, "; "),
		e.Code,
		strconv.FormatBool(e.Success),
		e.ScreenSummary,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("encoding history record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding history record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("appending history record: %w", err)
	}
	logging.Get(logging.CategoryHistory).Debug("appended history entry for %q", e.Command)
	return nil
}

// ensureCurrentFormat reports whether the header still needs writing and
// migrates a legacy five-column file in place by padding the missing
// summary column.
func (s *Store) ensureCurrentFormat() (needHeader bool, err error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return false, fmt.Errorf("parsing history file: %w", err)
	}
	if len(rows) == 0 {
		return true, nil
	}
	if equalRow(rows[0], header) {
		return false, nil
	}
	if !equalRow(rows[0], legacyHeader) {
		return false, fmt.Errorf("history file %s has unrecognized header %v", s.path, rows[0])
	}

	logging.Get(logging.CategoryHistory).Info("migrating legacy history file %s", s.path)
	migrated := make([][]string, 0, len(rows))
	migrated = append(migrated, header)
	for _, row := range rows[1:] {
		for len(row) < len(header) {
			row = append(row, "")
		}
		migrated = append(migrated, row[:len(header)])
	}
	if err := s.rewrite(migrated); err != nil {
		return false, err
	}
	return false, nil
}

// rewrite replaces the file contents atomically via a temp file rename.
func (s *Store) rewrite(rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encoding history file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// List returns entries newest first, up to limit (0 means all).
func (s *Store) List(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) readAll() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		for len(row) < len(header) {
			row = append(row, "")
		}
		ts, _ := time.Parse(time.RFC3339, row[0])
		success, _ := strconv.ParseBool(row[4])
		var steps []string
		if row[2] != "" {
			steps = strings.Split(row[2], "; ")
		}
		entries = append(entries, Entry{
			Timestamp:     ts,
			Command:       row[1],
			Steps:         steps,
			Code:          row[3],
			Success:       success,
			ScreenSummary: row[5],
		})
	}
	return entries, nil
}

// Sweep applies the retention policy, dropping rows older than the age
// limit and trimming to the row cap (oldest first).
func (s *Store) Sweep(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil || len(entries) == 0 {
		return err
	}

	cutoff := now.AddDate(0, 0, -s.retention.MaxAgeDays)
	kept := entries[:0]
	for _, e := range entries {
		if e.Timestamp.IsZero() || e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) > s.retention.MaxCount {
		kept = kept[len(kept)-s.retention.MaxCount:]
	}
	if len(kept) == len(entries) {
		return nil
	}

	rows := make([][]string, 0, len(kept)+1)
	rows = append(rows, header)
	for _, e := range kept {
		rows = append(rows, []string{
			e.Timestamp.Format(time.RFC3339),
			e.Command,
			strings.Join(e.Steps, "; "),
			e.Code,
			strconv.FormatBool(e.Success),
			e.ScreenSummary,
		})
	}
	logging.Get(logging.CategoryHistory).Info("history sweep kept %d of %d entries", len(kept), len(entries))
	return s.rewrite(rows)
}

func equalRow(a, b []string) bool {
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
