// Package random provides the randomness abstraction consumed by the cave
// shuffler, along with seeded and crypto-backed implementations.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Source is the randomness provider threaded through every shuffle phase.
//
// Implementations are not required to be safe for concurrent use; a shuffle
// run owns its Source exclusively.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random value in [0, 1).
	Float64() float64
}

// seededSource implements Source on a PCG generator.
//
// Invariant: two seededSources built from the same seed produce identical
// sequences.
type seededSource struct {
	rng *rand.Rand
}

// NewSeeded returns a deterministic Source for the given seed.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewSeeded(seed uint64) Source {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a value in [0, n).
//
// Precondition: n > 0. Panics with "random: Intn called with n <= 0" otherwise.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("random: Intn called with n <= 0")
	}
	return s.rng.IntN(n)
}

// Float64 returns a value in [0, 1).
func (s *seededSource) Float64() float64 {
	return s.rng.Float64()
}

// cryptoSource implements Source using crypto/rand. It is not reproducible and
// exists for runs that do not care about replaying a seed.
type cryptoSource struct {
	rng *rand.Rand
}

type cryptoReader struct{}

func (cryptoReader) Uint64() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic("random: crypto/rand failure: " + err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{rng: rand.New(cryptoReader{})}
}

// Intn returns a cryptographically random int in [0, n).
//
// Precondition: n > 0. Panics with "random: Intn called with n <= 0" otherwise.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("random: Intn called with n <= 0")
	}
	return c.rng.IntN(n)
}

// Float64 returns a cryptographically random value in [0, 1).
func (c *cryptoSource) Float64() float64 {
	return c.rng.Float64()
}
