// Package activity implements the size-bounded, human-readable activity journal.
package activity

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fan_controller/internal/logger"
	"fan_controller/internal/models"
)

// lowWaterPercent is how far below the caps a batch prune goes, so that the
// store is rewritten once per batch instead of once per append.
const lowWaterPercent = 90

// pruneNoteReserve is the room kept for the PRUNE entry written after a batch.
const pruneNoteReserve = 160

// Journal is the narrow write side every component logs transitions through.
type Journal interface {
	Append(category models.Category, message string)
}

// Store persists journal lines. Append adds lines at the end; Rewrite replaces
// the whole store after a prune.
type Store interface {
	Append(entries ...models.LogEntry) error
	Rewrite(entries []models.LogEntry) error
	Load() ([]models.LogEntry, error)
}

// StorageError wraps a failed store operation. It is logged and dropped.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "activity store " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

type Options struct {
	MaxBytes   int
	MaxEntries int
}

// Filter selects entries for List. Zero values disable a bound.
type Filter struct {
	From     time.Time
	To       time.Time
	Category models.Category
}

var errEntryTooLarge = errors.New("entry larger than the byte cap")

// Log is the bounded journal. It keeps the retained entries in memory and
// mirrors them to a Store.
type Log struct {
	mu      sync.Mutex
	entries []models.LogEntry
	bytes   int

	opts  Options
	store Store
	now   func() time.Time
	log   *logger.Logger

	subsMu sync.RWMutex
	subs   []func(models.LogEntry)
}

// New builds a journal. now supplies entry timestamps (the node's time source);
// store may be nil for a memory-only journal.
func New(opts Options, store Store, now func() time.Time, log *logger.Logger) *Log {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Log{opts: opts, store: store, now: now, log: log}
}

// Restore loads previously stored entries, oldest first, and enforces the caps on them.
func (l *Log) Restore() error {
	if l.store == nil {
		return nil
	}
	loaded, err := l.store.Load()
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
	l.bytes = 0
	for _, e := range loaded {
		l.push(e)
	}
	removed := 0
	for len(l.entries) > 0 && (l.bytes > l.opts.MaxBytes || len(l.entries) > l.opts.MaxEntries) {
		l.dropOldest()
		removed++
	}
	if removed > 0 {
		l.compact()
		if err := l.store.Rewrite(l.snapshot()); err != nil {
			return &StorageError{Op: "rewrite", Err: err}
		}
	}
	return nil
}

// Append records an entry stamped with the current time. Storage failures are
// logged and dropped; the in-memory journal keeps the entry.
func (l *Log) Append(category models.Category, message string) {
	e := models.LogEntry{Timestamp: l.now(), Category: category, Message: message}
	l.log.Infow("activity", "category", string(category), "message", message)

	added, err := l.admit(e)
	if err != nil {
		l.log.Warnw("activity_entry_dropped", "err", err, "category", string(category))
		return
	}
	for _, a := range added {
		if a.Category == models.CategoryPrune {
			l.log.Infow("activity", "category", string(a.Category), "message", a.Message)
		}
		l.notify(a)
	}
}

// Appendf is Append with fmt formatting.
func (l *Log) Appendf(category models.Category, format string, args ...any) {
	l.Append(category, fmt.Sprintf(format, args...))
}

func (l *Log) admit(e models.LogEntry) ([]models.LogEntry, error) {
	size := e.Size()

	l.mu.Lock()
	defer l.mu.Unlock()

	if size > l.opts.MaxBytes {
		return nil, errEntryTooLarge
	}
	if l.fits(size, 1) {
		l.push(e)
		l.persist(false, e)
		return []models.LogEntry{e}, nil
	}

	lowBytes := l.opts.MaxBytes * lowWaterPercent / 100
	lowEntries := l.opts.MaxEntries * lowWaterPercent / 100
	removed := 0
	for len(l.entries) > 0 && (l.bytes+size+pruneNoteReserve > lowBytes || len(l.entries)+2 > lowEntries) {
		l.dropOldest()
		removed++
	}
	l.compact()

	added := make([]models.LogEntry, 0, 2)
	note := models.LogEntry{
		Timestamp: e.Timestamp,
		Category:  models.CategoryPrune,
		Message: fmt.Sprintf("Activity log exceeded %dKB/%d entries. Removed %d oldest entries (keeping last %d).",
			l.opts.MaxBytes/1024, l.opts.MaxEntries, removed, len(l.entries)),
	}
	if l.fits(size+note.Size(), 2) {
		l.push(note)
		added = append(added, note)
	}
	l.push(e)
	added = append(added, e)
	l.persist(true)
	return added, nil
}

// persist mirrors the change to the store. Must hold l.mu.
func (l *Log) persist(rewrite bool, added ...models.LogEntry) {
	if l.store == nil {
		return
	}
	var err error
	if rewrite {
		if werr := l.store.Rewrite(l.snapshot()); werr != nil {
			err = &StorageError{Op: "rewrite", Err: werr}
		}
	} else if aerr := l.store.Append(added...); aerr != nil {
		err = &StorageError{Op: "append", Err: aerr}
	}
	if err != nil {
		l.log.Warnw("activity_store_failed", "err", err)
	}
}

func (l *Log) fits(size, count int) bool {
	return l.bytes+size <= l.opts.MaxBytes && len(l.entries)+count <= l.opts.MaxEntries
}

func (l *Log) push(e models.LogEntry) {
	l.entries = append(l.entries, e)
	l.bytes += e.Size()
}

func (l *Log) dropOldest() {
	l.bytes -= l.entries[0].Size()
	l.entries[0] = models.LogEntry{}
	l.entries = l.entries[1:]
}

// compact moves the retained entries to a fresh backing array so evicted ones
// can be collected.
func (l *Log) compact() {
	fresh := make([]models.LogEntry, len(l.entries), l.opts.MaxEntries)
	copy(fresh, l.entries)
	l.entries = fresh
}

func (l *Log) snapshot() []models.LogEntry {
	out := make([]models.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log) Entries() []models.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Usage returns the retained byte and entry counts.
func (l *Log) Usage() (bytes, entries int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bytes, len(l.entries)
}

// List returns retained entries matching f, oldest first. Bounds are inclusive.
func (l *Log) List(f Filter) []models.LogEntry {
	cat := models.Category(strings.ToUpper(strings.TrimSpace(string(f.Category))))

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if !f.From.IsZero() && e.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.Timestamp.After(f.To) {
			continue
		}
		if cat != "" && e.Category != cat {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Subscribe registers fn to be called with every admitted entry. fn must not block.
func (l *Log) Subscribe(fn func(models.LogEntry)) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	l.subs = append(l.subs, fn)
}

func (l *Log) notify(e models.LogEntry) {
	l.subsMu.RLock()
	defer l.subsMu.RUnlock()
	for _, fn := range l.subs {
		fn(e)
	}
}
