package metrics

// Wrapper adapts Metrics to the narrow interface the predictor package
// consumes, keeping the core free of a prometheus dependency.
type Wrapper struct {
	m *Metrics
}

// NewWrapper wraps m for use as a predictor.MetricsInterface.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) ObservesInc() { w.m.ObservesTotal.Inc() }
func (w *Wrapper) PredictionsInc() { w.m.PredictionsTotal.Inc() }
func (w *Wrapper) HitsInc() { w.m.HitsTotal.Inc() }
func (w *Wrapper) MispredictsInc() { w.m.MispredictsTotal.Inc() }
func (w *Wrapper) ErrorsInc() { w.m.ErrorsTotal.Inc() }
func (w *Wrapper) TableSizeSet(v float64) { w.m.TableSize.Set(v) }
func (w *Wrapper) MovingAccuracyObserve(v float64) { w.m.MovingAccuracy.Observe(v) }
func (w *Wrapper) ObserveLatencyObserve(v float64) { w.m.ObserveLatency.Observe(v) }
