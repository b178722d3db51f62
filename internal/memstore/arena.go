// Package memstore holds owner-partitioned entities in memory. It backs the
// in-memory repos used by tests and local runs without postgres.
package memstore

import (
	"sync"

	"github.com/google/uuid"
)

type Key struct {
	OwnerID uuid.UUID
	ID      uuid.UUID
}

// Arena stores values under (owner, id). An entity is only ever visible
// through the owner it was stored for.
type Arena[T any] struct {
	mu    sync.RWMutex
	items map[Key]T
}

func NewArena[T any]() *Arena[T] {
	return &Arena[T]{
		items: make(map[Key]T),
	}
}

func (a *Arena[T]) Get(ownerID, id uuid.UUID) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.items[Key{OwnerID: ownerID, ID: id}]
	return v, ok
}

func (a *Arena[T]) Put(ownerID, id uuid.UUID, v T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[Key{OwnerID: ownerID, ID: id}] = v
}

// Replace stores v only if (owner, id) already exists.
func (a *Arena[T]) Replace(ownerID, id uuid.UUID, v T) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := Key{OwnerID: ownerID, ID: id}
	if _, ok := a.items[key]; !ok {
		return false
	}
	a.items[key] = v
	return true
}

func (a *Arena[T]) Delete(ownerID, id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := Key{OwnerID: ownerID, ID: id}
	if _, ok := a.items[key]; !ok {
		return false
	}
	delete(a.items, key)
	return true
}

// Owned returns all values of one owner in no particular order.
func (a *Arena[T]) Owned(ownerID uuid.UUID) []T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []T
	for k, v := range a.items {
		if k.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	return out
}

// Find returns the first value of the owner matching pred.
func (a *Arena[T]) Find(ownerID uuid.UUID, pred func(T) bool) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for k, v := range a.items {
		if k.OwnerID == ownerID && pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Update runs fn on the stored value under the write lock and stores the
// result, unless fn fails. Missing keys report ok == false.
func (a *Arena[T]) Update(ownerID, id uuid.UUID, fn func(v T) (T, error)) (_ T, ok bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := Key{OwnerID: ownerID, ID: id}
	v, found := a.items[key]
	if !found {
		var zero T
		return zero, false, nil
	}
	updated, err := fn(v)
	if err != nil {
		return v, true, err
	}
	a.items[key] = updated
	return updated, true, nil
}
