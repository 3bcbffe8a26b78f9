// Package history implements the global branch history register shared by
// every branch site's predictor. It is a fixed-length shift register of the
// most recent branch outcomes, newest first, used as the feature vector for
// all predictions.
package history

import "fmt"

// Register is a fixed-capacity shift register of branch outcomes encoded as
// 0/1 values. The length is fixed at construction and never changes.
type Register struct {
	bits []float64
}

// New creates a register of length n, initially all zeros.
func New(n int) (*Register, error) {
	if n <= 0 {
		return nil, fmt.Errorf("history length must be positive, got %d", n)
	}
	return &Register{bits: make([]float64, n)}, nil
}

// Len returns the register length.
func (r *Register) Len() int { return len(r.bits) }

// Push shifts every outcome one slot toward the older end, discards the
// oldest and stores the new outcome at index 0.
func (r *Register) Push(outcome bool) {
	copy(r.bits[1:], r.bits[:len(r.bits)-1])
	if outcome {
		r.bits[0] = 1
	} else {
		r.bits[0] = 0
	}
}

// Snapshot returns a copy of the current register contents, newest outcome
// first. Callers must take the snapshot before pushing the outcome they are
// about to predict; a predictor must never see the outcome it is asked for.
func (r *Register) Snapshot() []float64 {
	out := make([]float64, len(r.bits))
	copy(out, r.bits)
	return out
}
