// Package lock provides keyed mutual exclusion. Syncs lock per scope and
// settlement locks per bet. A key's entry lives only while someone holds or
// waits for it.
package lock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	held chan struct{} // capacity 1; full while the key is held
	refs int           // holder plus waiters
}

// KeyLock hands out one lock per string key.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

// acquire registers interest in key. Callers must pair it with release or
// a successful Unlock.
func (kl *KeyLock) acquire(key string) *entry {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	e, ok := kl.entries[key]
	if !ok {
		e = &entry{held: make(chan struct{}, 1)}
		kl.entries[key] = e
	}
	e.refs++
	return e
}

func (kl *KeyLock) release(key string, e *entry) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(kl.entries, key)
	}
}

// Lock blocks until the key is held.
func (kl *KeyLock) Lock(key string) {
	e := kl.acquire(key)
	e.held <- struct{}{}
}

// LockContext blocks until the key is held or ctx ends.
func (kl *KeyLock) LockContext(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := kl.acquire(key)
	select {
	case e.held <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.release(key, e)
		return ctx.Err()
	}
}

// Unlock releases the key. Unlocking a key that is not held does nothing.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	e, ok := kl.entries[key]
	if !ok {
		return
	}
	select {
	case <-e.held:
	default:
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(kl.entries, key)
	}
}

// TryLock acquires the key without blocking.
func (kl *KeyLock) TryLock(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	e, ok := kl.entries[key]
	if !ok {
		e = &entry{held: make(chan struct{}, 1)}
	}
	select {
	case e.held <- struct{}{}:
		e.refs++
		kl.entries[key] = e
		return true
	default:
		return false
	}
}

// Len reports how many keys are held or awaited.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

// WithLock runs fn while holding the key.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithTryLock runs fn only if the key is free, otherwise returns ErrLocked.
func (kl *KeyLock) WithTryLock(key string, fn func() error) error {
	if !kl.TryLock(key) {
		return ErrLocked
	}
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext runs fn while holding the key. It returns ctx's error if
// ctx ends first and ErrLockTimeout if the key stays busy for timeout.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := kl.LockContext(waitCtx, key); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)
	return fn()
}
