package perceptron

import (
	"math"
	"testing"
)

func linearConfig(n int) Config {
	return Config{HistoryLength: n, Eta: 1e-3}
}

func TestLinear_FeatureLengthMismatch(t *testing.T) {
	t.Parallel()

	l := newLinear(linearConfig(4))
	if _, err := l.Predict([]float64{1, 0}); err == nil {
		t.Error("Predict with wrong feature length should fail")
	}
	if _, err := l.Update([]float64{1, 0, 1, 0, 1}, true); err == nil {
		t.Error("Update with wrong feature length should fail")
	}
}

func TestLinear_GradientDirection(t *testing.T) {
	t.Parallel()

	l := newLinear(linearConfig(2))
	x := []float64{1, 1}

	// With zero weights the score is 0; the label 1 gradient must raise it.
	before, _ := l.Predict(x)
	if _, err := l.Update(x, true); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	after, _ := l.Predict(x)
	if after <= before {
		t.Errorf("score did not move toward the label: %v -> %v", before, after)
	}

	// Constant-magnitude step: one absolute-error gradient step moves each
	// weight by exactly eta here, and the bias too.
	wantScore := before + 3e-3 // two weights plus bias, each +1e-3, dot with [1,1]
	if math.Abs(after-wantScore) > 1e-12 {
		t.Errorf("score after one step = %v, want %v", after, wantScore)
	}
}

func TestLinear_ZeroLossNoUpdate(t *testing.T) {
	t.Parallel()

	l := newLinear(linearConfig(2))
	x := []float64{0, 0}

	// Zero weights and zero features give score 0 for label 0: zero loss,
	// zero gradient, no movement.
	if _, err := l.Update(x, false); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	score, _ := l.Predict([]float64{1, 1})
	if score != 0 {
		t.Errorf("weights moved on zero loss, score %v", score)
	}
}

func TestLinear_TieIsNotTaken(t *testing.T) {
	t.Parallel()

	l := newLinear(Config{HistoryLength: 1, Eta: 0.5})
	l.weights[0] = 0.5

	// score == 0.5 exactly; the strict > rule classifies not-taken.
	decision, err := l.Update([]float64{1}, false)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if decision {
		t.Error("tie score 0.5 must classify as not-taken")
	}
}

func TestLinear_LearnsConstantBranch(t *testing.T) {
	t.Parallel()

	l := newLinear(linearConfig(4))
	x := []float64{1, 1, 1, 1}

	// An always-taken branch with a fixed history is the easiest possible
	// stream; the score must cross the 0.5 threshold and stay there.
	var correct int
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		decision, err := l.Update(x, true)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if decision {
			correct++
		}
	}
	if float64(correct)/rounds < 0.8 {
		t.Errorf("only %d/%d correct on a constant branch", correct, rounds)
	}
}
