package activity

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"fan_controller/internal/models"
)

var lineRe = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] \[([^\]]+)\] (.*)$`)

// FileStore keeps the journal as a plain text file, one entry per line.
type FileStore struct {
	path string
	loc  *time.Location
}

// NewFileStore returns a store at path. Timestamps read back are interpreted in loc.
func NewFileStore(path string, loc *time.Location) *FileStore {
	if loc == nil {
		loc = time.Local
	}
	return &FileStore{path: path, loc: loc}
}

// Append writes entries at the end of the file, creating it if needed.
func (s *FileStore) Append(entries ...models.LogEntry) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %q: %w", s.path, err)
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := w.WriteString(e.String() + "\n"); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %q: %w", s.path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %q: %w", s.path, err)
	}
	return f.Close()
}

// Rewrite replaces the file content atomically through a temp file and rename.
func (s *FileStore) Rewrite(entries []models.LogEntry) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		if _, err := w.WriteString(e.String() + "\n"); err != nil {
			_ = tmp.Close()
			cleanup()
			return fmt.Errorf("write temp: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("flush temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp to %q: %w", s.path, err)
	}
	return nil
}

// Load parses the file. A missing file is an empty journal; lines that do
// not match the entry format are skipped.
func (s *FileStore) Load() ([]models.LogEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %q: %w", s.path, err)
	}
	defer f.Close()

	var out []models.LogEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		e, ok := ParseLine(sc.Text(), s.loc)
		if ok {
			out = append(out, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", s.path, err)
	}
	return out, nil
}

// ParseLine parses one "[YYYY-MM-DD HH:MM:SS] [CATEGORY] message" line.
func ParseLine(line string, loc *time.Location) (models.LogEntry, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return models.LogEntry{}, false
	}
	ts, err := time.ParseInLocation(models.LogTimeLayout, m[1], loc)
	if err != nil {
		return models.LogEntry{}, false
	}
	return models.LogEntry{Timestamp: ts, Category: models.Category(m[2]), Message: m[3]}, true
}
