package index

import (
	"sync"
	"time"
)

// WriteOp identifies the kind of operation captured by a WriteLog entry.
type WriteOp int

const (
	OpInsert WriteOp = iota
	OpRemove
)

// WriteLogEntry is a single chronologically-ordered write captured during
// HNSW maintenance (spec §4.F).
type WriteLogEntry struct {
	Op        WriteOp
	ID        uint64
	Vector    []float32 // empty for OpRemove
	Timestamp time.Time
}

// Bounds on the write log, mirroring original_source/src/lib/write_log.h.
const (
	MaxWriteLogEntries  = 100_000
	WriteLogWarnThresh  = 50_000
)

// WriteLog captures insert/remove operations while a maintenance pass is
// optimizing a scratch clone of the live HNSW index, so the clone can be
// brought up to date before the swap (spec §4.F).
type WriteLog struct {
	mu      sync.Mutex
	enabled bool
	entries []WriteLogEntry
}

// NewWriteLog returns an empty, disabled write log.
func NewWriteLog() *WriteLog {
	return &WriteLog{}
}

// Enable turns on logging. Called under the maintenance protocol's first
// brief writer-lock section, before the clone is taken.
func (l *WriteLog) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Disable turns off logging and clears accumulated entries. Called under
// the protocol's second brief writer-lock section, after replay and swap.
func (l *WriteLog) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
	l.entries = nil
}

// Enabled reports whether logging is currently active.
func (l *WriteLog) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// LogInsert appends an insert entry. Returns false (without appending) if
// the log is already at capacity; the caller must then abort maintenance
// with InvalidState, leaving the live index untouched. While the log is
// disabled it appends nothing and returns true.
func (l *WriteLog) LogInsert(id uint64, vector []float32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return true
	}
	if len(l.entries) >= MaxWriteLogEntries {
		return false
	}
	l.entries = append(l.entries, WriteLogEntry{
		Op:        OpInsert,
		ID:        id,
		Vector:    cloneVector(vector),
		Timestamp: time.Now(),
	})
	return true
}

// LogRemove appends a remove entry, subject to the same capacity rule as LogInsert.
func (l *WriteLog) LogRemove(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return true
	}
	if len(l.entries) >= MaxWriteLogEntries {
		return false
	}
	l.entries = append(l.entries, WriteLogEntry{Op: OpRemove, ID: id, Timestamp: time.Now()})
	return true
}

// Size returns the current number of captured entries.
func (l *WriteLog) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// AtWarnThreshold reports whether the log has grown past the warning level.
func (l *WriteLog) AtWarnThreshold() bool {
	return l.Size() > WriteLogWarnThresh
}

// ReplayTo applies every captured entry, in order, to target. An Insert for
// an id already present in target is idempotent: it tombstone-removes the
// existing node first, then adds. A Remove for an absent id is a no-op.
func (l *WriteLog) ReplayTo(target *HNSW) {
	l.mu.Lock()
	entries := make([]WriteLogEntry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	for _, e := range entries {
		switch e.Op {
		case OpInsert:
			if err := target.Add(e.ID, e.Vector); err != nil && Code(err) == InvalidState {
				_ = target.Remove(e.ID)
				_ = target.Add(e.ID, e.Vector)
			}
		case OpRemove:
			_ = target.Remove(e.ID)
		}
	}
}
