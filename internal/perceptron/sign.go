package perceptron

// Sign is the classical perceptron. Features and labels are mapped from
// {0,1} to {-1,+1}; the prediction is the sign of the affine score, and the
// weights move only on a misprediction via w += eta*y*x, b += eta*y. No
// gradient machinery is involved and updates are deterministic given the
// weight state.
type Sign struct {
	// weights[0:n] are the feature weights, weights[n] is the bias.
	weights []float64
	n       int
	eta     float64
}

func newSign(cfg Config) *Sign {
	return &Sign{
		weights: make([]float64, cfg.HistoryLength+1),
		n:       cfg.HistoryLength,
		eta:     cfg.Eta,
	}
}

// Predict returns the raw affine score for x. The caller is expected to pass
// features in whatever scale it trains with; Update handles the {0,1} to
// {-1,+1} mapping itself.
func (s *Sign) Predict(x []float64) (float64, error) {
	if err := checkLen(x, s.n); err != nil {
		return 0, err
	}
	return dot(s.weights[:s.n], x) + s.weights[s.n], nil
}

// Update applies the perceptron rule for one observation and returns the
// decision. A zero score classifies as not-taken.
func (s *Sign) Update(x []float64, outcome bool) (bool, error) {
	if err := checkLen(x, s.n); err != nil {
		return false, err
	}

	xs := make([]float64, s.n)
	for i, v := range x {
		xs[i] = 2*v - 1
	}
	ys := 2*label(outcome) - 1

	score, _ := s.Predict(xs)
	pred := sign(score)
	if pred != ys {
		for i := range xs {
			s.weights[i] += s.eta * ys * xs[i]
		}
		s.weights[s.n] += s.eta * ys
	}

	return pred > 0, nil
}

// sign maps a zero score to the not-taken side, matching the strict
// greater-than tie rule used by the score-threshold variants.
func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	return -1
}
