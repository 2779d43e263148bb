package metrics

// Collector wraps metrics and provides helper methods with a pre-filled
// component label.
type Collector struct {
	component string
}

// NewCollector creates a new Collector for the given component.
func NewCollector(component string) *Collector {
	return &Collector{component: component}
}

// IncPhasesCommitted increments the phases committed counter.
func (c *Collector) IncPhasesCommitted() {
	PhasesCommittedTotal.WithLabelValues(c.component).Inc()
}

// IncPhasesSkipped increments the phases skipped counter.
func (c *Collector) IncPhasesSkipped() {
	PhasesSkippedTotal.WithLabelValues(c.component).Inc()
}

// IncPhasesFailed increments the phases failed counter.
func (c *Collector) IncPhasesFailed() {
	PhasesFailedTotal.WithLabelValues(c.component).Inc()
}

// AddRowsCopied adds to the rows copied counter for a phase.
func (c *Collector) AddRowsCopied(phase string, n int) {
	RowsCopiedTotal.WithLabelValues(c.component, phase).Add(float64(n))
}

// AddRowsSkipped adds to the rows skipped counter for a phase.
func (c *Collector) AddRowsSkipped(phase string, n int) {
	RowsSkippedTotal.WithLabelValues(c.component, phase).Add(float64(n))
}

// IncBatchesFlushed increments the batches flushed counter for a phase.
func (c *Collector) IncBatchesFlushed(phase string) {
	BatchesFlushedTotal.WithLabelValues(c.component, phase).Inc()
}

// IncRollbacks increments the rollbacks counter.
func (c *Collector) IncRollbacks() {
	RollbacksTotal.WithLabelValues(c.component).Inc()
}

// IncRestoreFailures increments the restore failures counter.
func (c *Collector) IncRestoreFailures() {
	RestoreFailuresTotal.WithLabelValues(c.component).Inc()
}

// ObservePhaseDuration records a phase duration observation.
func (c *Collector) ObservePhaseDuration(phase string, seconds float64) {
	PhaseDuration.WithLabelValues(c.component, phase).Observe(seconds)
}

// ObserveBatchFlushDuration records a batch flush duration observation.
func (c *Collector) ObserveBatchFlushDuration(phase string, seconds float64) {
	BatchFlushDuration.WithLabelValues(c.component, phase).Observe(seconds)
}
