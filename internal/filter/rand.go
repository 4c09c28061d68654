package filter

import "math/rand/v2"

// Rand is a source of bounded random integers. *rand.Rand from math/rand/v2
// implements it.
type Rand interface {
	// IntN returns a value in [0, n). n is always positive.
	IntN(n int) int
}

// globalRand draws from the process-wide math/rand/v2 generator, which is
// safe for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }
