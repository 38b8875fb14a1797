package ledger

import (
	"sync"
	"time"
)

// MemoryLedger keeps entries only for the life of the process. It backs
// tests and dry runs where nothing should touch disk.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

func (ml *MemoryLedger) Contains(id string) bool {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	_, ok := ml.entries[id]
	return ok
}

func (ml *MemoryLedger) Record(e Entry) error {
	if e.ID == "" {
		e.ID = Key(e.Title)
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.entries[e.ID] = e
	return nil
}

func (ml *MemoryLedger) Size() int {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return len(ml.entries)
}

func (ml *MemoryLedger) Persist() error { return nil }

func (ml *MemoryLedger) Close() error { return nil }
