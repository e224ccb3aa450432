// Package history keeps the bounded, most-recent-first list of scans for each
// client session.
package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medguard/medguard-backend/internal/verification/domain"
)

// DefaultCapacity is the number of scans kept per session
const DefaultCapacity = 20

// Log is an append-only list of scans, newest first, holding at most
// capacity entries. It is safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	entries  []domain.ScanResult
	capacity int
	now      func() time.Time
}

// NewLog creates an empty log. A non-positive capacity uses DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]domain.ScanResult, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Append stores r at the front, dropping the oldest entry when full. A
// missing id or timestamp is filled in. The stored record is returned.
func (l *Log) Append(r domain.ScanResult) domain.ScanResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	r = l.fill(r)
	l.entries = append([]domain.ScanResult{r}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return r
}

func (l *Log) fill(r domain.ScanResult) domain.ScanResult {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp == "" {
		r.Timestamp = l.now().UTC().Format(time.RFC3339)
	}
	return r
}

// List returns a copy of the entries, newest first
func (l *Log) List() []domain.ScanResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ScanResult, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// MarshalJSON encodes the log as an array, newest first
func (l *Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.List())
}

// UnmarshalJSON replaces the entries with an encoded array, keeping the first
// capacity items. Missing ids and timestamps are filled in as Append does.
func (l *Log) UnmarshalJSON(data []byte) error {
	var entries []domain.ScanResult
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capacity <= 0 {
		l.capacity = DefaultCapacity
	}
	if l.now == nil {
		l.now = time.Now
	}
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	for i := range entries {
		entries[i] = l.fill(entries[i])
	}
	l.entries = entries
	return nil
}

// Stats counts scans per verdict
type Stats struct {
	Total      int `json:"total"`
	Genuine    int `json:"genuine"`
	Fake       int `json:"fake"`
	Suspicious int `json:"suspicious"`
}

// Summarize counts entries by status. Unknown statuses only add to Total.
func Summarize(entries []domain.ScanResult) Stats {
	s := Stats{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case domain.StatusGenuine:
			s.Genuine++
		case domain.StatusFake:
			s.Fake++
		case domain.StatusSuspicious:
			s.Suspicious++
		}
	}
	return s
}

// FilterStatus returns the entries with the given status, keeping order
func FilterStatus(entries []domain.ScanResult, status domain.Status) []domain.ScanResult {
	out := make([]domain.ScanResult, 0, len(entries))
	for _, e := range entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}
