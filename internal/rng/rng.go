// Package rng provides the seedable random source shared by the fire and
// placement code so runs can be replayed from a seed.
package rng

import (
	"math/rand"
	"time"
)

// Source is the subset of *rand.Rand the simulation draws from.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New returns a deterministic source for seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Seed returns seed unless it is zero, in which case a time-based seed is
// returned so callers can record it.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}
