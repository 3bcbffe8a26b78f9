package sim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Lamikins/branch-prediction/internal/predictor"
	"github.com/Lamikins/branch-prediction/internal/storage"
)

// Engine replays a branch trace through one branch predictor and collects
// the per-site accuracy results. With a store attached it also persists the
// per-observation outcome/prediction logs for offline analysis.
type Engine struct {
	bp     *predictor.BranchPredictor
	loader *TraceLoader
	store  *storage.Store

	results  *Results
	tagRefs  map[string][]eventRef
	throttle time.Duration
}

// eventRef pins one tagged observation to its trace sequence number and the
// wall-clock time it was replayed.
type eventRef struct {
	seq uint64
	ts  time.Time
}

// Results holds the outcome of one replay.
type Results struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Observations uint64
	Tagged       uint64
	PerTag       map[string]predictor.TagReport
}

// NewEngine creates an engine over the given predictor and trace. store may
// be nil to skip event recording.
func NewEngine(bp *predictor.BranchPredictor, loader *TraceLoader, store *storage.Store) *Engine {
	return &Engine{
		bp:      bp,
		loader:  loader,
		store:   store,
		results: &Results{PerTag: make(map[string]predictor.TagReport)},
		tagRefs: make(map[string][]eventRef),
	}
}

// SetThrottle inserts a delay between observations. The replay itself never
// needs one; it exists so a live dashboard has something to watch.
func (e *Engine) SetThrottle(d time.Duration) { e.throttle = d }

// Run replays the whole trace in order.
func (e *Engine) Run() error {
	e.results.StartedAt = time.Now()

	log.Info().
		Int("records", e.loader.Count()).
		Int("history_length", e.bp.HistoryLen()).
		Msg("Starting trace replay")

	for e.loader.HasNext() {
		record := e.loader.Next()

		e.bp.Observe(record.Outcome, record.Tag)
		e.results.Observations++
		if record.Tag != "" {
			e.results.Tagged++
			if e.store != nil {
				e.tagRefs[record.Tag] = append(e.tagRefs[record.Tag], eventRef{seq: record.Seq, ts: time.Now()})
			}
		}

		if e.throttle > 0 {
			time.Sleep(e.throttle)
		}

		if e.results.Observations%100000 == 0 {
			log.Debug().
				Uint64("observations", e.results.Observations).
				Float64("progress", e.loader.Progress()).
				Msg("Replay progress")
		}
	}

	e.results.FinishedAt = time.Now()
	e.results.PerTag = e.bp.AccuracyReport()

	if e.store != nil {
		if err := e.persistEvents(); err != nil {
			return fmt.Errorf("persist events: %w", err)
		}
	}

	log.Info().
		Uint64("observations", e.results.Observations).
		Uint64("tagged", e.results.Tagged).
		Dur("elapsed", e.results.FinishedAt.Sub(e.results.StartedAt)).
		Msg("Trace replay finished")

	return nil
}

// persistEvents zips each tag's outcome and prediction logs with the
// sequence numbers and observation times recorded during replay and writes
// them to the store in one batch per tag.
func (e *Engine) persistEvents() error {
	for tag, refs := range e.tagRefs {
		outcomes, predictions := e.bp.Logs(tag)
		if len(outcomes) != len(refs) || len(predictions) != len(refs) {
			return fmt.Errorf("tag %q: log length %d does not match %d observed records", tag, len(outcomes), len(refs))
		}

		events := make([]storage.BranchEvent, len(refs))
		for i, ref := range refs {
			events[i] = storage.BranchEvent{
				Seq:       ref.seq,
				Tag:       tag,
				Outcome:   outcomes[i],
				Predicted: predictions[i],
				Ts:        ref.ts,
			}
		}
		if err := e.store.StoreEvents(events); err != nil {
			return err
		}
	}
	return nil
}

// PersistRun writes the run summary to the store.
func (e *Engine) PersistRun(variant string) error {
	if e.store == nil {
		return nil
	}
	accuracy := make(map[string]float64, len(e.results.PerTag))
	for tag, report := range e.results.PerTag {
		accuracy[tag] = report.Accuracy
	}
	return e.store.StoreRun(storage.RunSummary{
		StartedAt:    e.results.StartedAt,
		FinishedAt:   e.results.FinishedAt,
		Variant:      variant,
		HistoryLen:   e.bp.HistoryLen(),
		Observations: e.results.Observations,
		Accuracy:     accuracy,
	})
}

// Results returns the replay results.
func (e *Engine) Results() *Results { return e.results }
