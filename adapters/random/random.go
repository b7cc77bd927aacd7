// Package random provides Random implementations.
package random

import (
	"crypto/rand"
	"sync"

	"github.com/AR-937/framevault-app/ports"
)

// Crypto reads from crypto/rand.
type Crypto struct{}

// Bytes returns n cryptographically secure random bytes.
func (Crypto) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Sequence returns distinct, reproducible byte strings (for testing).
// The i-th call fills every byte with the call number plus its offset.
type Sequence struct {
	mu    sync.Mutex
	calls int
	err   error
}

// NewSequence creates a deterministic random source.
func NewSequence() *Sequence {
	return &Sequence{}
}

// FailWith makes every subsequent call return err.
func (s *Sequence) FailWith(err error) *Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Bytes returns the next deterministic byte string.
func (s *Sequence) Bytes(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	s.calls++
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(s.calls + i)
	}
	return b, nil
}

// Calls returns how many byte strings were handed out.
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Ensure interface compliance.
var (
	_ ports.Random = Crypto{}
	_ ports.Random = (*Sequence)(nil)
)
