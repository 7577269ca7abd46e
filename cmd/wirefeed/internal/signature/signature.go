// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package signature implements the deduplication ledger for news items.
//
// A signature is a digest of an item's title and publish date. Two items with
// the same title and the same (or both absent) date share a signature and
// only the first of them is forwarded.
package signature

import (
	"crypto/md5"
	"encoding/hex"
	"sync"

	"go.astrophena.name/wirefeed/internal/util/set"
	"go.astrophena.name/wirefeed/internal/util/syncx"
)

// NoDate stands in for an absent publish date.
const NoDate = "ND"

// Fingerprint returns the hex MD5 digest of title + "_" + date, where an
// empty date is replaced by [NoDate].
func Fingerprint(title, date string) string {
	if date == "" {
		date = NoDate
	}
	sum := md5.Sum([]byte(title + "_" + date))
	return hex.EncodeToString(sum[:])
}

// Store records seen signatures.
type Store interface {
	// Contains reports whether sig was added before.
	Contains(sig string) bool
	// Add records sig.
	Add(sig string)
}

// Claimer is implemented by stores that can check and record a signature in
// one atomic step.
type Claimer interface {
	// Claim records sig and reports whether it was new.
	Claim(sig string) bool
}

// Claim records sig in s and reports whether it was not seen before. It uses
// [Claimer] when s implements it; otherwise it falls back to Contains + Add,
// which is only safe when s is used by one goroutine.
func Claim(s Store, sig string) bool {
	if c, ok := s.(Claimer); ok {
		return c.Claim(sig)
	}
	if s.Contains(sig) {
		return false
	}
	s.Add(sig)
	return true
}

// Memory is an unbounded in-memory Store. It only grows and is never
// persisted. It is safe for concurrent use.
type Memory struct {
	seen *syncx.Protected[set.Set[string]]
}

var (
	_ Store   = (*Memory)(nil)
	_ Claimer = (*Memory)(nil)
)

// NewMemory returns a Memory store pre-seeded with sigs.
func NewMemory(sigs ...string) *Memory {
	return &Memory{seen: syncx.Protect(set.Of(sigs...))}
}

// Contains implements [Store].
func (m *Memory) Contains(sig string) bool {
	return syncx.Read(m.seen, func(s set.Set[string]) bool { return s.Has(sig) })
}

// Add implements [Store].
func (m *Memory) Add(sig string) {
	m.seen.WriteAccess(func(s set.Set[string]) { s.Add(sig) })
}

// Claim implements [Claimer].
func (m *Memory) Claim(sig string) bool {
	return syncx.Write(m.seen, func(s set.Set[string]) bool { return s.Add(sig) })
}

// Len returns the number of recorded signatures.
func (m *Memory) Len() int {
	return syncx.Read(m.seen, set.Set[string].Len)
}

// Bounded is a Store that keeps at most capacity signatures, forgetting the
// oldest first. It is safe for concurrent use.
type Bounded struct {
	mu   sync.Mutex
	seen *set.FIFO[string]
}

var (
	_ Store   = (*Bounded)(nil)
	_ Claimer = (*Bounded)(nil)
)

// NewBounded returns a Bounded store. A capacity below 1 is treated as 1.
func NewBounded(capacity int) *Bounded {
	return &Bounded{seen: set.NewFIFO[string](capacity)}
}

// Contains implements [Store].
func (b *Bounded) Contains(sig string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen.Has(sig)
}

// Add implements [Store].
func (b *Bounded) Add(sig string) { b.Claim(sig) }

// Claim implements [Claimer].
func (b *Bounded) Claim(sig string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen.Add(sig)
}

// Len returns the number of signatures currently remembered.
func (b *Bounded) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen.Len()
}
