// Package lock provides a mutex keyed by string, used to serialize
// read-modify-write cycles on individual rows and cache entries.
package lock

import "sync"

// KeyedMutex hands out one mutex per key. Mutexes are created lazily and
// kept for the lifetime of the KeyedMutex; the key space here (user ids,
// block ids) is small enough that reaping is not worth the bookkeeping.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock locks the mutex for key, creating it if needed.
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock unlocks the mutex for key.
func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
