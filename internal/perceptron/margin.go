package perceptron

import (
	"math/rand"
)

// Margin wraps the linear unit with an error-driven replay buffer and a
// lambda margin term. Examples the current model mispredicts are retained;
// when a past example with identical features exists, the decision is biased
// by lambda * sum(x^2) * (2*y_past - 1), resisting a flip of a decision the
// model already got wrong once with high feature energy.
//
// Every batchSize+1 observations (counting the incoming one against the
// buffer) a mini-batch gradient step over batchSize examples sampled without
// replacement is performed in addition to the per-example step.
//
// The buffer grows without bound; eviction would change how long traces
// train, so it is deliberately not implemented.
type Margin struct {
	lin       *Linear
	lambda    float64
	batchSize int

	bufX [][]float64
	bufY []float64
	rng  *rand.Rand

	batchRounds int
}

func newMargin(cfg Config) *Margin {
	return &Margin{
		lin:       newLinear(cfg),
		lambda:    cfg.Lambda,
		batchSize: cfg.BatchSize,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Predict returns the raw score without the margin term.
func (m *Margin) Predict(x []float64) (float64, error) {
	return m.lin.Predict(x)
}

// Update trains on one observation and returns the margin-adjusted decision
// (score + margin) > 0.5 made before any weight change from this example.
func (m *Margin) Update(x []float64, outcome bool) (bool, error) {
	margin := m.marginTerm(x)

	score, err := m.lin.Predict(x)
	if err != nil {
		return false, err
	}
	y := label(outcome)

	// The incoming example counts as the (k+1)-th against the buffer.
	if (len(m.bufX)+1)%(m.batchSize+1) == 0 {
		if err := m.batchRound(); err != nil {
			return false, err
		}
	}

	m.lin.step(x, score, y)

	decision := (score + margin) > 0.5
	if decision != outcome {
		m.remember(x, y)
	}
	return decision, nil
}

// marginTerm looks up a past example with exactly these features and returns
// lambda * sum(x^2) * (2*y_past - 1), or 0 when no such example exists.
func (m *Margin) marginTerm(x []float64) float64 {
	idx := m.find(x)
	if idx < 0 {
		return 0
	}
	var energy float64
	for _, v := range x {
		energy += v * v
	}
	return m.lambda * energy * (2*m.bufY[idx] - 1)
}

// batchRound performs one gradient step on the mean absolute error over
// batchSize examples drawn from the buffer without replacement.
func (m *Margin) batchRound() error {
	if len(m.bufX) < m.batchSize {
		return ErrInsufficientData
	}
	m.batchRounds++

	idxs := m.rng.Perm(len(m.bufX))[:m.batchSize]

	n := len(m.lin.weights)
	gw := make([]float64, n)
	var gb float64
	for _, i := range idxs {
		score, _ := m.lin.Predict(m.bufX[i])
		if score == m.bufY[i] {
			continue
		}
		g := 1.0
		if score < m.bufY[i] {
			g = -1.0
		}
		for j := 0; j < n; j++ {
			gw[j] += g * m.bufX[i][j]
		}
		gb += g
	}

	scale := m.lin.eta / float64(m.batchSize)
	for j := 0; j < n; j++ {
		m.lin.weights[j] -= scale * gw[j]
	}
	m.lin.bias -= scale * gb
	return nil
}

func (m *Margin) remember(x []float64, y float64) {
	cp := make([]float64, len(x))
	copy(cp, x)
	m.bufX = append(m.bufX, cp)
	m.bufY = append(m.bufY, y)
}

// find returns the index of the first buffered example whose features equal
// x exactly, or -1.
func (m *Margin) find(x []float64) int {
	for i, bx := range m.bufX {
		if equal(bx, x) {
			return i
		}
	}
	return -1
}

// BufferLen reports the current replay buffer size.
func (m *Margin) BufferLen() int { return len(m.bufX) }

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
