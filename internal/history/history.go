// Package history keeps the session's append-only conversation log.
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleUserVoice Role = "userVoice"
	RoleSystem    Role = "system"
)

// Entry is one line of the log.
type Entry struct {
	ID   string    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Log is an ordered, append-only record. Insertion order is chronological
// order. When a limit is set the oldest entries are dropped once it is
// exceeded; entries are never edited or reordered.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	now     func() time.Time
}

// New creates a Log keeping at most limit entries; limit <= 0 means
// unbounded.
func New(limit int) *Log {
	return &Log{limit: limit, now: time.Now}
}

// Append records text under role. Blank text is ignored and returns false.
func (l *Log) Append(role Role, text string) (Entry, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, false
	}
	e := Entry{ID: uuid.NewString(), Role: role, Text: text, At: l.now()}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-l.limit:]...)
	}
	return e, true
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear truncates the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
