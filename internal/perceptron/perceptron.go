// Package perceptron implements the online-trained linear predictors used by
// the branch predictor: a gradient-trained linear unit, a margin variant with
// error-driven replay, and the classical sign perceptron.
package perceptron

import (
	"errors"
	"fmt"
)

// Variant selects the predictor implementation.
type Variant string

const (
	// VariantLinear is a linear unit trained by gradient descent on
	// absolute error between the raw score and the 0/1 label.
	VariantLinear Variant = "linear"
	// VariantMargin adds a replay buffer of past mispredictions and a
	// lambda margin term to the decision.
	VariantMargin Variant = "margin"
	// VariantSign is the classical perceptron with the w += eta*y*x rule.
	VariantSign Variant = "sign"
)

// ErrInsufficientData reports a mini-batch round requested with fewer
// buffered examples than the batch size. The count trigger is gated on the
// buffer reaching the threshold, so hitting this means internal state is
// corrupt.
var ErrInsufficientData = errors.New("replay buffer smaller than batch size")

// Predictor is a single branch site's decision unit. Predict maps a feature
// vector to a raw score; Update trains on the true outcome and returns the
// binary decision that was made for it. Update must be called at most once
// per observation.
type Predictor interface {
	Predict(x []float64) (float64, error)
	Update(x []float64, outcome bool) (bool, error)
}

// Config holds the hyperparameters shared by every predictor created for a
// table. Eta applies to all variants; Lambda and BatchSize only to the
// margin variant.
type Config struct {
	HistoryLength int
	Eta           float64
	Lambda        float64
	BatchSize     int
	Seed          int64
}

func (c Config) validate(v Variant) error {
	if c.HistoryLength <= 0 {
		return fmt.Errorf("history length must be positive, got %d", c.HistoryLength)
	}
	if c.Eta <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.Eta)
	}
	if v == VariantMargin {
		if c.Lambda < 0 {
			return fmt.Errorf("lambda must be non-negative, got %g", c.Lambda)
		}
		if c.BatchSize <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
		}
	}
	return nil
}

// New creates a fresh predictor of the given variant.
func New(v Variant, cfg Config) (Predictor, error) {
	if err := cfg.validate(v); err != nil {
		return nil, err
	}
	switch v {
	case VariantLinear:
		return newLinear(cfg), nil
	case VariantMargin:
		return newMargin(cfg), nil
	case VariantSign:
		return newSign(cfg), nil
	default:
		return nil, fmt.Errorf("unknown predictor variant %q", v)
	}
}

// ParseVariant validates a variant name from configuration.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantLinear, VariantMargin, VariantSign:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown predictor variant %q", s)
}

func checkLen(x []float64, n int) error {
	if len(x) != n {
		return fmt.Errorf("feature vector length %d does not match history length %d", len(x), n)
	}
	return nil
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range x {
		s += w[i] * x[i]
	}
	return s
}
