// Package prng provides a seeded pseudo-random source for the bootstrap
// confidence-interval computation. Each pipeline invocation owns its own
// instance; there is no shared mutable PRNG state.
package prng

import "math/rand/v2"

// Source draws non-negative integers in [0, n) and is satisfied by
// *rand.Rand from math/rand/v2. Defined narrowly so domain code depends on
// an interface rather than a concrete generator.
type Source interface {
	IntN(n int) int
}

// New returns a deterministic source seeded with the given value: the same
// seed always reproduces the same sequence, which is required for bootstrap
// resampling to be reproducible.
func New(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}
