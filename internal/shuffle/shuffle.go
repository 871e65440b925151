// Package shuffle provides the single randomization primitive shared by
// turn-order selection and library shuffling, so both are deterministic
// under an injected random source.
package shuffle

import "math/rand"

// Shuffle permutes s in place using the Fisher-Yates algorithm driven by rng.
// Passing the same seeded rng over the same input always yields the same
// permutation.
func Shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
