package distribution

import (
	"sync"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// keyLocks serializes approvals per stock key. Approvals of different chick
// types never wait on each other.
type keyLocks struct {
	mu    sync.Mutex
	locks map[models.StockKey]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[models.StockKey]*sync.Mutex, len(models.StockKeys))}
}

// lock acquires the mutex of key and returns its release function.
func (k *keyLocks) lock(key models.StockKey) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
