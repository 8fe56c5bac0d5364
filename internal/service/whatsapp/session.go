package whatsapp

import (
	"sync"
	"time"
)

// messageLog remembers inbound message ids for a while so webhook retries are
// not answered twice.
type messageLog struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	seen map[string]time.Time
}

func newMessageLog(ttl time.Duration) *messageLog {
	return &messageLog{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// markNew records id and reports whether it had not been seen within the ttl.
// Messages without an id are always new.
func (l *messageLog) markNew(id string) bool {
	if id == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, at := range l.seen {
		if now.Sub(at) > l.ttl {
			delete(l.seen, k)
		}
	}

	if _, ok := l.seen[id]; ok {
		return false
	}
	l.seen[id] = now
	return true
}
