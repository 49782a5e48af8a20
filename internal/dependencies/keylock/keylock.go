// Package keylock provides mutual exclusion scoped to a key.
package keylock

import "sync"

// Map hands out one mutex per key. Entries are reference counted and
// dropped when no goroutine holds or waits on them.
type Map[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty Map
func New[K comparable]() *Map[K] {
	return &Map[K]{locks: make(map[K]*entry)}
}

// Lock blocks until the key is free and returns the matching unlock func
func (m *Map[K]) Lock(key K) (unlock func()) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			m.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(m.locks, key)
			}
			m.mu.Unlock()
		})
	}
}
