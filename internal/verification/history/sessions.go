package history

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Sessions owns one Log per session id. Idle sessions expire after ttl.
type Sessions struct {
	mu       sync.Mutex
	cache    *cache.Cache
	capacity int
}

// NewSessions creates a session store whose logs hold capacity scans
func NewSessions(capacity int, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		cache:    cache.New(ttl, ttl/2),
		capacity: capacity,
	}
}

// Get returns the log for id, creating it on first use. Each call extends the
// session's lifetime.
func (s *Sessions) Get(id string) *Log {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache.Get(id); ok {
		log := cached.(*Log)
		s.cache.SetDefault(id, log)
		return log
	}

	log := NewLog(s.capacity)
	s.cache.SetDefault(id, log)
	return log
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}
