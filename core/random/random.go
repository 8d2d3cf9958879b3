// Package random builds the seeded generators used by every randomized
// routine, so that one integer seed fixes a whole workflow run.
package random

import (
	"math/rand/v2"
)

// New returns a PCG-backed generator for seed. Equal seeds give equal
// streams.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}
