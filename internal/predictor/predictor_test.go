package predictor

import (
	"errors"
	"testing"

	"github.com/Lamikins/branch-prediction/internal/perceptron"
)

type mockMetrics struct {
	observes    int
	predictions int
	hits        int
	mispredicts int
	errs        int
	tableSize   float64
	movingObs   []float64
	latencyObs  int
}

func (m *mockMetrics) ObservesInc()                    { m.observes++ }
func (m *mockMetrics) PredictionsInc()                 { m.predictions++ }
func (m *mockMetrics) HitsInc()                        { m.hits++ }
func (m *mockMetrics) MispredictsInc()                 { m.mispredicts++ }
func (m *mockMetrics) ErrorsInc()                      { m.errs++ }
func (m *mockMetrics) TableSizeSet(v float64)          { m.tableSize = v }
func (m *mockMetrics) MovingAccuracyObserve(v float64) { m.movingObs = append(m.movingObs, v) }
func (m *mockMetrics) ObserveLatencyObserve(float64)   { m.latencyObs++ }

func signCfg(n int) perceptron.Config {
	return perceptron.Config{HistoryLength: n, Eta: 1}
}

func TestBranchPredictor_ObserveIsPassThrough(t *testing.T) {
	t.Parallel()

	bp, err := New(perceptron.VariantSign, signCfg(4))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		cond := i%3 == 0
		tag := ""
		if i%2 == 0 {
			tag = "site"
		}
		if got := bp.Observe(cond, tag); got != cond {
			t.Fatalf("Observe(%v, %q) = %v", cond, tag, got)
		}
	}
}

func TestBranchPredictor_UntaggedAdvancesHistoryOnly(t *testing.T) {
	t.Parallel()

	bp, err := New(perceptron.VariantLinear, perceptron.Config{HistoryLength: 4, Eta: 1e-3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	bp.Observe(true, "")
	bp.Observe(false, "")

	if tags := bp.Tags(); len(tags) != 0 {
		t.Errorf("untagged observes created entries: %v", tags)
	}
	if _, err := bp.Accuracy("anything"); !errors.Is(err, ErrNoObservations) {
		t.Errorf("Accuracy err = %v, want ErrNoObservations", err)
	}
}

func TestBranchPredictor_CountersMonotonic(t *testing.T) {
	t.Parallel()

	bp, err := New(perceptron.VariantMargin, perceptron.Config{
		HistoryLength: 4, Eta: 1e-3, Lambda: 0.1, BatchSize: 16, Seed: 7,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 200; i++ {
		bp.Observe(i%5 != 0, "loop")
		hits, total := bp.table.Counts("loop")
		if hits > total {
			t.Fatalf("hits %d exceeds total %d at step %d", hits, total, i)
		}
		if total != uint64(i+1) {
			t.Fatalf("total = %d after %d observes", total, i+1)
		}
	}
}

// A branch taken for the first thousand steps and never after is easy for the
// sign perceptron once the history fills with the steady pattern; the only
// mispredictions sit at warmup and at the flip.
func TestBranchPredictor_LearnsLoopBranch(t *testing.T) {
	t.Parallel()

	bp, err := New(perceptron.VariantSign, signCfg(10))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for step := 0; step < 2000; step++ {
		bp.Observe(step < 1000, "loop")
	}

	acc, err := bp.Accuracy("loop")
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}
	if acc <= 0.95 {
		t.Errorf("accuracy = %v, want > 0.95", acc)
	}

	_, predictions := bp.Logs("loop")
	if len(predictions) != 2000 {
		t.Fatalf("prediction log length = %d", len(predictions))
	}
	for step := 990; step < 1000; step++ {
		if !predictions[step] {
			t.Errorf("step %d: predicted not-taken during the steady taken phase", step)
		}
	}
}

func TestBranchPredictor_MetricsEmission(t *testing.T) {
	t.Parallel()

	m := &mockMetrics{}
	bp, err := NewWithMetrics(perceptron.VariantLinear, perceptron.Config{HistoryLength: 4, Eta: 1e-3}, m)
	if err != nil {
		t.Fatalf("NewWithMetrics failed: %v", err)
	}

	bp.Observe(true, "a")
	bp.Observe(false, "a")
	bp.Observe(true, "b")
	bp.Observe(true, "")

	if m.observes != 4 {
		t.Errorf("observes = %d, want 4", m.observes)
	}
	if m.predictions != 3 {
		t.Errorf("predictions = %d, want 3", m.predictions)
	}
	if m.hits+m.mispredicts != 3 {
		t.Errorf("hits+mispredicts = %d, want 3", m.hits+m.mispredicts)
	}
	if m.tableSize != 2 {
		t.Errorf("tableSize = %v, want 2", m.tableSize)
	}
	if len(m.movingObs) != 3 {
		t.Errorf("moving accuracy observations = %d, want 3", len(m.movingObs))
	}
	if m.latencyObs != 4 {
		t.Errorf("latency observations = %d, want 4", m.latencyObs)
	}
	if m.errs != 0 {
		t.Errorf("errors = %d, want 0", m.errs)
	}
}

func TestBranchPredictor_AccuracyReport(t *testing.T) {
	t.Parallel()

	bp, err := New(perceptron.VariantSign, signCfg(4))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 100; i++ {
		bp.Observe(true, "steady")
		bp.Observe(i%2 == 0, "flip")
	}

	report := bp.AccuracyReport()
	if len(report) != 2 {
		t.Fatalf("report has %d tags, want 2", len(report))
	}
	steady := report["steady"]
	if steady.Total != 100 {
		t.Errorf("steady total = %d, want 100", steady.Total)
	}
	if steady.Hits == 0 || steady.Hits > steady.Total {
		t.Errorf("steady hits = %d out of %d", steady.Hits, steady.Total)
	}
	if steady.Accuracy != float64(steady.Hits)/float64(steady.Total) {
		t.Errorf("accuracy %v inconsistent with hits/total", steady.Accuracy)
	}
}
