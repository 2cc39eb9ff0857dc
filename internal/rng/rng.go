// Package rng owns the process-wide random seed used by model training.
//
// The process calls InitializeOnce before any training begins. Each trainer
// then takes its own stream from New, so independent tracks can be trained
// in parallel without sharing a generator.
package rng

import (
	"math/rand/v2"
	"sync"
	"time"
)

var (
	once   sync.Once
	mu     sync.Mutex
	master *rand.Rand
	seeded uint64
)

// InitializeOnce seeds the master generator. Only the first call has an
// effect; it reports whether this call performed the initialization.
// A zero seed is replaced with one derived from the current time.
func InitializeOnce(seed uint64) bool {
	initialized := false
	once.Do(func() {
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		seeded = seed
		master = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		initialized = true
	})
	return initialized
}

// Seed returns the seed the master generator was initialized with
func Seed() uint64 {
	InitializeOnce(0)
	return seeded
}

// New returns an independent generator derived from the master seed
func New() *rand.Rand {
	InitializeOnce(0)

	mu.Lock()
	hi, lo := master.Uint64(), master.Uint64()
	mu.Unlock()

	return rand.New(rand.NewPCG(hi, lo))
}

// NewSeeded returns a generator that does not touch the master stream.
// Tests use it for reproducible training runs.
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
