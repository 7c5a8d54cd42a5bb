// Package client talks to the Elevana API and keeps client-side caches of what it returns.
package client

import (
	"slices"
	"sync"
)

// Observable is the read side of a Value.
type Observable[T any] interface {
	Get() T
	// Subscribe calls fn with the current value right away, then on every change.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Value holds one current value and notifies its subscribers on every Set.
// Callbacks run synchronously on the goroutine calling Set and must not Set the same Value.
type Value[T any] struct {
	notify sync.Mutex // orders deliveries
	mu     sync.RWMutex
	cur    T
	subs   map[uint64]func(T)
	nextID uint64
}

var _ Observable[int] = (*Value[int])(nil)

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[uint64]func(T))}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

func (v *Value[T]) Set(val T) {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	v.cur = val
	subs := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(val)
	}
}

func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	cur := v.cur
	v.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// sliceView is the read side of a slice Value. Readers and subscribers each get their own copy
// of the slice; the elements themselves are shallow copies.
type sliceView[T any] struct {
	v *Value[[]T]
}

func (s sliceView[T]) Get() []T {
	return slices.Clone(s.v.Get())
}

func (s sliceView[T]) Subscribe(fn func([]T)) func() {
	return s.v.Subscribe(func(items []T) { fn(slices.Clone(items)) })
}
