package sim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamikins/branch-prediction/internal/perceptron"
	"github.com/Lamikins/branch-prediction/internal/predictor"
	"github.com/Lamikins/branch-prediction/internal/storage"
)

func newTestPredictor(t *testing.T) *predictor.BranchPredictor {
	t.Helper()
	bp, err := predictor.New(perceptron.VariantSign, perceptron.Config{HistoryLength: 10, Eta: 1})
	require.NoError(t, err)
	return bp
}

func TestEngine_ReplayDriverWorkload(t *testing.T) {
	bp := newTestPredictor(t)

	loader := NewTraceLoader()
	loader.Append(NewGenerator(42).Driver(1000)...)

	engine := NewEngine(bp, loader, nil)
	require.NoError(t, engine.Run())

	results := engine.Results()
	assert.Equal(t, uint64(2001), results.Observations)
	assert.Equal(t, uint64(2001), results.Tagged)
	require.Contains(t, results.PerTag, "condition")
	require.Contains(t, results.PerTag, "random")

	// The loop condition is near-deterministic; the coin flip is not.
	assert.Greater(t, results.PerTag["condition"].Accuracy, 0.95)
	assert.Less(t, results.PerTag["random"].Accuracy, 0.7)
	assert.Equal(t, uint64(1001), results.PerTag["condition"].Total)
	assert.Equal(t, uint64(1000), results.PerTag["random"].Total)
}

func TestEngine_UntaggedRecordsNotCounted(t *testing.T) {
	bp := newTestPredictor(t)

	loader := NewTraceLoader()
	loader.Append(
		BranchRecord{Seq: 0, Tag: "a", Outcome: true},
		BranchRecord{Seq: 1, Tag: "", Outcome: false},
		BranchRecord{Seq: 2, Tag: "a", Outcome: true},
	)

	engine := NewEngine(bp, loader, nil)
	require.NoError(t, engine.Run())

	assert.Equal(t, uint64(3), engine.Results().Observations)
	assert.Equal(t, uint64(2), engine.Results().Tagged)
}

func TestEngine_PersistsEventsAndRun(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	bp := newTestPredictor(t)
	loader := NewTraceLoader()
	loader.Append(NewGenerator(1).Loop("loop", 50)...)

	engine := NewEngine(bp, loader, store)
	require.NoError(t, engine.Run())
	require.NoError(t, engine.PersistRun("sign"))

	events, err := store.GetEvents("loop", 0, 100)
	require.NoError(t, err)
	require.Len(t, events, 51)

	outcomes, predictions := bp.Logs("loop")
	for i, ev := range events {
		assert.Equal(t, uint64(i), ev.Seq)
		assert.Equal(t, outcomes[i], ev.Outcome)
		assert.Equal(t, predictions[i], ev.Predicted)
	}

	runs, err := store.GetRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sign", runs[0].Variant)
	assert.Equal(t, 10, runs[0].HistoryLen)
	assert.Equal(t, uint64(51), runs[0].Observations)
	assert.Contains(t, runs[0].Accuracy, "loop")
}

func TestEngine_EventTimestampsTrackObservations(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	bp := newTestPredictor(t)
	loader := NewTraceLoader()
	loader.Append(NewGenerator(1).Loop("loop", 4)...)

	engine := NewEngine(bp, loader, store)
	engine.SetThrottle(2 * time.Millisecond)
	require.NoError(t, engine.Run())

	events, err := store.GetEvents("loop", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 5)

	results := engine.Results()
	for i, ev := range events {
		assert.False(t, ev.Ts.Before(results.StartedAt), "event %d stamped before the run began", i)
		assert.False(t, ev.Ts.After(results.FinishedAt), "event %d stamped after the run finished", i)
		if i > 0 {
			assert.False(t, ev.Ts.Before(events[i-1].Ts), "event %d stamped before event %d", i, i-1)
		}
	}

	// Each observation carries its own timestamp, so with a throttle the
	// first and last must be visibly apart.
	assert.True(t, events[4].Ts.After(events[0].Ts), "timestamps did not advance across observations")
}

func TestReporter_GeneratesAllFormats(t *testing.T) {
	bp := newTestPredictor(t)
	loader := NewTraceLoader()
	loader.Append(NewGenerator(3).Driver(200)...)

	engine := NewEngine(bp, loader, nil)
	require.NoError(t, engine.Run())

	outDir := t.TempDir()
	reporter := NewReporter(engine.Results(), outDir)
	require.NoError(t, reporter.GenerateReport())

	summary, err := os.ReadFile(filepath.Join(outDir, "simulation_summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "BRANCH PREDICTION RESULTS")
	assert.Contains(t, string(summary), "condition:")

	csvData, err := os.ReadFile(filepath.Join(outDir, "site_accuracy.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 3) // header + condition + random
	assert.Equal(t, "Tag,Hits,Total,Accuracy,Moving Accuracy", lines[0])

	jsonData, err := os.ReadFile(filepath.Join(outDir, "simulation_results.json"))
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonData, &report))
	sites, ok := report["sites"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, sites, "condition")
	assert.Contains(t, sites, "random")
}
