// Package permutation scrambles choice order per exam instance.
//
// A permutation P maps display position to canonical position:
// displayed[k] = canonical[P[k]].
package permutation

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Engine generates permutations. It is safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine seeded from the clock
func NewEngine() *Engine {
	seed := uint64(time.Now().UnixNano())
	return NewSeeded(seed, seed>>1|1)
}

// NewSeeded creates a deterministic engine, used by tests and tooling
func NewSeeded(seed1, seed2 uint64) *Engine {
	return &Engine{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Generate returns a uniform random permutation of 0..n-1.
// n <= 1 yields the identity.
func (e *Engine) Generate(n int) []int {
	if n <= 1 {
		return Identity(n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Perm(n)
}

// Shuffle reorders a slice in place with the engine's source
func (e *Engine) Shuffle(n int, swap func(i, j int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(n, swap)
}

// Identity returns 0..n-1
func Identity(n int) []int {
	if n < 0 {
		n = 0
	}
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// Valid reports whether p is a bijection on 0..n-1
func Valid(p []int, n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, c := range p {
		if c < 0 || c >= n || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}

// Apply returns the choices in display order. A permutation that does not
// fit the current choices falls back to canonical order.
func Apply(p []int, choices []string) []string {
	out := make([]string, len(choices))
	if !Valid(p, len(choices)) {
		copy(out, choices)
		return out
	}
	for k, c := range p {
		out[k] = choices[c]
	}
	return out
}

// Canonical maps a display index back to its canonical index.
// ok is false when d is out of range or p is not a permutation.
func Canonical(p []int, d int) (int, bool) {
	if !Valid(p, len(p)) || d < 0 || d >= len(p) {
		return 0, false
	}
	return p[d], true
}

// Inverse returns Q with Q[P[k]] = k, mapping canonical to display
func Inverse(p []int) []int {
	if !Valid(p, len(p)) {
		return nil
	}
	q := make([]int, len(p))
	for k, c := range p {
		q[c] = k
	}
	return q
}

// Display returns the display slot holding canonical index c
func Display(p []int, c int) (int, bool) {
	q := Inverse(p)
	if q == nil || c < 0 || c >= len(q) {
		return 0, false
	}
	return q[c], true
}
