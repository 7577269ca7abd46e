// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package set provides set types. They are not safe for concurrent use.
package set

// Set is a set of comparable values. make(Set[T]) is a valid empty set.
type Set[T comparable] map[T]struct{}

// Of returns a Set holding vals.
func Of[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Has reports whether v is in s.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Add adds v and reports whether it was absent.
func (s Set[T]) Add(v T) bool {
	if s.Has(v) {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Del removes v and reports whether it was present.
func (s Set[T]) Del(v T) bool {
	if !s.Has(v) {
		return false
	}
	delete(s, v)
	return true
}

// Len returns the number of values in s.
func (s Set[T]) Len() int { return len(s) }

// FIFO is a set that holds at most a fixed number of values. Adding to a full
// FIFO evicts the value added earliest.
type FIFO[T comparable] struct {
	seen  Set[T]
	order []T
	limit int
}

// NewFIFO returns an empty FIFO holding up to limit values. A limit below 1
// is treated as 1.
func NewFIFO[T comparable](limit int) *FIFO[T] {
	limit = max(limit, 1)
	return &FIFO[T]{
		seen:  make(Set[T], limit),
		order: make([]T, 0, limit),
		limit: limit,
	}
}

// Has reports whether v is in f.
func (f *FIFO[T]) Has(v T) bool { return f.seen.Has(v) }

// Add adds v and reports whether it was absent. Adding a present value does
// not refresh its position.
func (f *FIFO[T]) Add(v T) bool {
	if !f.seen.Add(v) {
		return false
	}
	f.order = append(f.order, v)
	for len(f.order) > f.limit {
		f.seen.Del(f.order[0])
		f.order = f.order[1:]
	}
	return true
}

// Len returns the number of values in f.
func (f *FIFO[T]) Len() int { return f.seen.Len() }
