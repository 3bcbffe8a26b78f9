// Package predictor implements the branch predictor orchestrator: one global
// history register feeding a table of per-branch-site perceptrons. Observe is
// a transparent pass-through for a boolean condition, so it can stand in for
// the condition of an if or a loop while the predictor learns the outcome
// stream.
package predictor

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Lamikins/branch-prediction/internal/history"
	"github.com/Lamikins/branch-prediction/internal/perceptron"
)

// MetricsInterface defines the metrics methods the orchestrator needs.
type MetricsInterface interface {
	ObservesInc()
	PredictionsInc()
	HitsInc()
	MispredictsInc()
	ErrorsInc()
	TableSizeSet(float64)
	MovingAccuracyObserve(float64)
	ObserveLatencyObserve(float64)
}

// TagReport is the per-tag accuracy snapshot returned by AccuracyReport.
type TagReport struct {
	Accuracy       float64 `json:"accuracy"`
	MovingAccuracy float64 `json:"movingAccuracy"`
	Hits           uint64  `json:"hits"`
	Total          uint64  `json:"total"`
}

// BranchPredictor owns the global history register and the predictor table.
// Observation is sequential: predict, train, record, push. The mutex exists
// so report readers (dashboard, metrics) can snapshot while a replay loop
// runs; it is not an invitation to parallelize observes, whose updates
// depend on the prior weight state and history snapshot.
type BranchPredictor struct {
	mu      sync.Mutex
	hist    *history.Register
	table   *Table
	metrics MetricsInterface
}

// New creates a branch predictor with the given variant and hyperparameters
// and no metrics sink.
func New(variant perceptron.Variant, cfg perceptron.Config) (*BranchPredictor, error) {
	return NewWithMetrics(variant, cfg, nil)
}

// NewWithMetrics creates a branch predictor that reports through the given
// metrics sink. A nil sink disables metric emission.
func NewWithMetrics(variant perceptron.Variant, cfg perceptron.Config, metrics MetricsInterface) (*BranchPredictor, error) {
	h, err := history.New(cfg.HistoryLength)
	if err != nil {
		return nil, err
	}
	return &BranchPredictor{
		hist:    h,
		table:   NewTable(variant, cfg),
		metrics: metrics,
	}, nil
}

// Observe feeds one branch outcome through the predictor and returns the
// condition unchanged. With a non-empty tag the tagged predictor makes a
// prediction from the current history, trains on the outcome and has its
// statistics updated; with an empty tag only the global history advances.
// The history is pushed exactly once per call either way.
//
// Observe never fails: internal errors indicate caller-level misuse, are
// logged and counted, and leave the table untouched for this call.
func (b *BranchPredictor) Observe(condition bool, tag string) bool {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.ObservesInc()
	}

	if tag != "" {
		b.observeTagged(condition, tag)
	}

	b.hist.Push(condition)

	if b.metrics != nil {
		b.metrics.ObserveLatencyObserve(time.Since(start).Seconds())
	}
	return condition
}

func (b *BranchPredictor) observeTagged(condition bool, tag string) {
	p, err := b.table.GetOrCreate(tag)
	if err != nil {
		log.Error().Err(err).Str("tag", tag).Msg("predictor creation failed")
		if b.metrics != nil {
			b.metrics.ErrorsInc()
		}
		return
	}

	predicted, err := p.Update(b.hist.Snapshot(), condition)
	if err != nil {
		log.Error().Err(err).Str("tag", tag).Msg("predictor update failed")
		if b.metrics != nil {
			b.metrics.ErrorsInc()
		}
		return
	}

	b.table.Record(tag, predicted, condition)

	if b.metrics != nil {
		b.metrics.PredictionsInc()
		if predicted == condition {
			b.metrics.HitsInc()
		} else {
			b.metrics.MispredictsInc()
		}
		b.metrics.TableSizeSet(float64(b.table.Size()))
		if ma, err := b.table.MovingAccuracy(tag); err == nil {
			b.metrics.MovingAccuracyObserve(ma)
		}
	}
}

// Accuracy returns hits/total for a tag, failing with ErrNoObservations when
// the tag has no recorded observations.
func (b *BranchPredictor) Accuracy(tag string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Accuracy(tag)
}

// MovingAccuracy returns the decayed running accuracy for a tag.
func (b *BranchPredictor) MovingAccuracy(tag string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.MovingAccuracy(tag)
}

// Logs returns copies of the per-tag outcome and prediction logs.
func (b *BranchPredictor) Logs(tag string) (outcomes, predictions []bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table.Logs(tag)
}

// Tags returns all branch sites seen so far, sorted for stable output.
func (b *BranchPredictor) Tags() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tags := b.table.Tags()
	sort.Strings(tags)
	return tags
}

// HistoryLen returns the configured global history length.
func (b *BranchPredictor) HistoryLen() int { return b.hist.Len() }

// AccuracyReport returns a read-only accuracy snapshot over every tag seen
// so far.
func (b *BranchPredictor) AccuracyReport() map[string]TagReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	report := make(map[string]TagReport, b.table.Size())
	for _, tag := range b.table.Tags() {
		acc, err := b.table.Accuracy(tag)
		if err != nil {
			continue
		}
		ma, _ := b.table.MovingAccuracy(tag)
		hits, total := b.table.Counts(tag)
		report[tag] = TagReport{
			Accuracy:       acc,
			MovingAccuracy: ma,
			Hits:           hits,
			Total:          total,
		}
	}
	return report
}
