package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileLedger persists entries as JSON Lines, one object per line.
// Records are appended with O_APPEND, so overlapping cron runs can both
// record without clobbering each other; whole-file rewrites happen only
// on legacy migration and explicit Persist.
type FileLedger struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
}

// Open reads the ledger at path. A missing or empty file yields an
// empty ledger; the file itself appears on the first Record.
func Open(path string) (*FileLedger, error) {
	fl := &FileLedger{
		path:    path,
		entries: make(map[string]Entry),
	}
	if err := fl.load(); err != nil {
		return nil, err
	}
	return fl, nil
}

func (fl *FileLedger) load() error {
	data, err := os.ReadFile(fl.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	// Older deployments kept the whole ledger as one JSON array
	if bytes.TrimLeft(data, " \t\r\n")[0] == '[' {
		return fl.loadLegacyArray(data)
	}

	return fl.loadLines(data)
}

func (fl *FileLedger) loadLines(data []byte) error {
	offset := 0
	lineNo := 0

	for offset < len(data) {
		lineNo++

		end := bytes.IndexByte(data[offset:], '\n')
		terminated := end >= 0

		var raw []byte
		if terminated {
			raw = data[offset : offset+end]
		} else {
			raw = data[offset:]
		}

		line := bytes.TrimSpace(raw)
		if len(line) > 0 {
			var e Entry
			parseErr := json.Unmarshal(line, &e)
			if parseErr == nil && e.ID == "" {
				parseErr = fmt.Errorf("record has no id")
			}
			if parseErr != nil {
				// A record cut short by a crash is the only tolerated
				// damage: final line, no newline, and it still looks
				// like the start of a record. Anything else is corruption.
				if !terminated && line[0] == '{' {
					slog.Warn("dropping torn final ledger record",
						"path", fl.path, "line", lineNo)
					if err := os.Truncate(fl.path, int64(offset)); err != nil {
						return fmt.Errorf("failed to trim torn ledger record: %w", err)
					}
					return nil
				}
				return &CorruptError{Path: fl.path, Line: lineNo, Err: parseErr}
			}
			fl.entries[e.ID] = e
		}

		if !terminated {
			break
		}
		offset += end + 1
	}

	return nil
}

// loadLegacyArray reads the old whole-file format: a JSON array of raw
// trend titles or of entry objects. The file is rewritten in the line
// format right away so future appends have somewhere to land.
func (fl *FileLedger) loadLegacyArray(data []byte) error {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(data, &rawItems); err != nil {
		return &CorruptError{Path: fl.path, Line: 1, Err: err}
	}

	now := time.Now().UTC()
	for _, raw := range rawItems {
		var title string
		if err := json.Unmarshal(raw, &title); err == nil {
			if strings.TrimSpace(title) == "" {
				continue
			}
			e := Entry{ID: Key(title), Title: title, ProcessedAt: now}
			fl.entries[e.ID] = e
			continue
		}

		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return &CorruptError{Path: fl.path, Line: 1, Err: err}
		}
		if e.ID == "" {
			if e.Title == "" {
				continue
			}
			e.ID = Key(e.Title)
		}
		if e.ProcessedAt.IsZero() {
			e.ProcessedAt = now
		}
		fl.entries[e.ID] = e
	}

	slog.Info("migrated legacy ledger to line format",
		"path", fl.path, "entries", len(fl.entries))

	return fl.Persist()
}

func (fl *FileLedger) Contains(id string) bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	_, ok := fl.entries[id]
	return ok
}

// Record upserts the entry in memory and appends it to the file. A
// re-record of a known identifier appends another line; load keeps the
// newest line per identifier, so the ledger size does not change.
func (fl *FileLedger) Record(e Entry) error {
	if e.ID == "" {
		e.ID = Key(e.Title)
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}

	fl.mu.Lock()
	fl.entries[e.ID] = e
	fl.mu.Unlock()

	return fl.append(e)
}

func (fl *FileLedger) append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger record: %w", err)
	}

	if dir := filepath.Dir(fl.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	f, err := os.OpenFile(fl.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append ledger record: %w", err)
	}

	return f.Close()
}

func (fl *FileLedger) Size() int {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return len(fl.entries)
}

// Entries returns a copy, oldest first.
func (fl *FileLedger) Entries() []Entry {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	out := make([]Entry, 0, len(fl.entries))
	for _, e := range fl.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ProcessedAt.Before(out[j].ProcessedAt)
	})
	return out
}

// Persist rewrites the whole file from memory: temp file in the same
// directory, then rename, so a crash mid-write never leaves a half
// written store. Appends made by an overlapping run between our load
// and the rename are discarded by the rewrite, so Persist is reserved
// for legacy migration and the compact command.
func (fl *FileLedger) Persist() error {
	entries := fl.Entries()

	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal ledger record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(fl.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fl.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp ledger: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to chmod temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), fl.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	return nil
}

func (fl *FileLedger) Close() error { return nil }

// Path returns the backing file path.
func (fl *FileLedger) Path() string { return fl.path }
