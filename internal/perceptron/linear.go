package perceptron

// Linear is a single linear unit: score = dot(weights, x) + bias. It trains
// online by one gradient-descent step per observation on the absolute error
// |score - label|. The loss is non-smooth at score == label; the gradient
// used is sign(score - label) * x, constant magnitude, which is the
// subgradient everywhere else.
type Linear struct {
	weights []float64
	bias    float64
	eta     float64
}

func newLinear(cfg Config) *Linear {
	return &Linear{
		weights: make([]float64, cfg.HistoryLength),
		eta:     cfg.Eta,
	}
}

// Predict returns the raw affine score for x.
func (l *Linear) Predict(x []float64) (float64, error) {
	if err := checkLen(x, len(l.weights)); err != nil {
		return 0, err
	}
	return dot(l.weights, x) + l.bias, nil
}

// Update applies one gradient step toward the 0/1 label and returns the
// decision made from the pre-update score. Tie score == 0.5 is not-taken.
func (l *Linear) Update(x []float64, outcome bool) (bool, error) {
	score, err := l.Predict(x)
	if err != nil {
		return false, err
	}
	l.step(x, score, label(outcome))
	return score > 0.5, nil
}

// step performs one descent step on |score - label| with respect to the
// weights and bias. Zero loss means zero gradient, so an exact score is left
// untouched.
func (l *Linear) step(x []float64, score, y float64) {
	if score == y {
		return
	}
	g := 1.0
	if score < y {
		g = -1.0
	}
	for i := range l.weights {
		l.weights[i] -= l.eta * g * x[i]
	}
	l.bias -= l.eta * g
}

func label(outcome bool) float64 {
	if outcome {
		return 1
	}
	return 0
}
