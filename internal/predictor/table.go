package predictor

import (
	"errors"
	"fmt"

	"github.com/Lamikins/branch-prediction/internal/common"
	"github.com/Lamikins/branch-prediction/internal/perceptron"
)

// ErrNoObservations reports an accuracy query for a tag that has not been
// observed yet. Accuracy is hits/total and is undefined at total == 0; the
// table refuses the query instead of returning NaN.
var ErrNoObservations = errors.New(common.ErrMsgNoObservations)

// entry holds one branch site's predictor and its running statistics. The
// outcome and prediction logs are append-only and unbounded; they exist for
// offline analysis, not for the prediction path.
type entry struct {
	pred        perceptron.Predictor
	hits        uint64
	total       uint64
	movingAcc   float64
	outcomes    []bool
	predictions []bool
}

// Table maps branch-site tags to lazily created predictors and their
// statistics. Entries are created on first use of a tag with the table's
// shared variant and hyperparameters, and are never removed.
type Table struct {
	variant perceptron.Variant
	cfg     perceptron.Config
	entries map[string]*entry
}

// NewTable creates an empty table. Predictors are constructed per tag on
// first reference, all with the given variant and config.
func NewTable(variant perceptron.Variant, cfg perceptron.Config) *Table {
	return &Table{
		variant: variant,
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// GetOrCreate returns the predictor for tag, constructing it on first use.
// Subsequent calls with the same tag return the same instance.
func (t *Table) GetOrCreate(tag string) (perceptron.Predictor, error) {
	if e, ok := t.entries[tag]; ok {
		return e.pred, nil
	}
	p, err := perceptron.New(t.variant, t.cfg)
	if err != nil {
		return nil, fmt.Errorf("create predictor for tag %q: %w", tag, err)
	}
	t.entries[tag] = &entry{pred: p}
	return p, nil
}

// Record books one observation for tag. The moving accuracy decays on every
// observation before the hit bonus is added; the recurrence is intentionally
// not a convex combination and may drift outside [0,1] over long runs.
func (t *Table) Record(tag string, predicted, actual bool) {
	e, ok := t.entries[tag]
	if !ok {
		return
	}
	e.total++
	e.movingAcc *= common.MovingAccuracyDecay
	e.outcomes = append(e.outcomes, actual)
	e.predictions = append(e.predictions, predicted)
	if predicted == actual {
		e.hits++
		e.movingAcc += common.MovingAccuracyBonus
	}
}

// Accuracy returns hits/total for tag. It fails with ErrNoObservations until
// at least one observation has been recorded.
func (t *Table) Accuracy(tag string) (float64, error) {
	e, ok := t.entries[tag]
	if !ok || e.total == 0 {
		return 0, fmt.Errorf("tag %q: %w", tag, ErrNoObservations)
	}
	return float64(e.hits) / float64(e.total), nil
}

// MovingAccuracy returns the decayed running accuracy estimate for tag.
func (t *Table) MovingAccuracy(tag string) (float64, error) {
	e, ok := t.entries[tag]
	if !ok || e.total == 0 {
		return 0, fmt.Errorf("tag %q: %w", tag, ErrNoObservations)
	}
	return e.movingAcc, nil
}

// Counts returns the hit and total counters for tag.
func (t *Table) Counts(tag string) (hits, total uint64) {
	if e, ok := t.entries[tag]; ok {
		return e.hits, e.total
	}
	return 0, 0
}

// Logs returns copies of the outcome and prediction logs for tag.
func (t *Table) Logs(tag string) (outcomes, predictions []bool) {
	e, ok := t.entries[tag]
	if !ok {
		return nil, nil
	}
	outcomes = append([]bool(nil), e.outcomes...)
	predictions = append([]bool(nil), e.predictions...)
	return outcomes, predictions
}

// Tags returns all tags seen so far.
func (t *Table) Tags() []string {
	tags := make([]string, 0, len(t.entries))
	for tag := range t.entries {
		tags = append(tags, tag)
	}
	return tags
}

// Size returns the number of branch sites the table tracks.
func (t *Table) Size() int { return len(t.entries) }
