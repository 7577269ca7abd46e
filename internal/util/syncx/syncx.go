// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package syncx contains useful synchronization primitives.
package syncx

import "sync"

// Protect wraps val into [Protected].
func Protect[T any](val T) *Protected[T] { return &Protected[T]{val: val} }

// Protected guards a value of type T with a read-write mutex. T is usually a
// map, a slice or a pointer, so that f can modify it in place.
type Protected[T any] struct {
	mu  sync.RWMutex
	val T
}

// ReadAccess calls f with the value under a read lock.
func (p *Protected[T]) ReadAccess(f func(T)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f(p.val)
}

// WriteAccess calls f with the value under a write lock.
func (p *Protected[T]) WriteAccess(f func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(p.val)
}

// Read returns the result of f, called with the value under a read lock.
func Read[T, R any](p *Protected[T], f func(T) R) R {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return f(p.val)
}

// Write returns the result of f, called with the value under a write lock.
func Write[T, R any](p *Protected[T], f func(T) R) R {
	p.mu.Lock()
	defer p.mu.Unlock()
	return f(p.val)
}

// Lazy is a value computed on first use.
type Lazy[T any] struct {
	once sync.Once
	val  T
}

// Get returns the value, calling f to compute it on the first call.
func (l *Lazy[T]) Get(f func() T) T {
	l.once.Do(func() { l.val = f() })
	return l.val
}
