package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "homehub_"

var (
	registerOnce sync.Once

	SamplesTotal      = counter("samples_total", "Samples accepted by the ingestion boundary")
	SamplesInvalid    = counter("samples_invalid_total", "Samples dropped because no numeric field survived filtering")
	MinuteRollups     = counter("minute_rollups_total", "Minute windows closed")
	HourRollups       = counter("hour_rollups_total", "Hour windows closed")
	HourlyRowsWritten = counter("hourly_rows_written_total", "HourlyValue rows persisted")
	StoreRetries      = counter("counter_store_retries_total", "Retried accumulate calls after a transient store error")
	StoreFailures     = counter("counter_store_failures_total", "Accumulate calls dropped after exhausting retries")
	ActionsDispatched = counter("actions_dispatched_total", "Automation commands handed to the dispatcher")
	RuleEvalErrors    = counter("rule_eval_errors_total", "Output groups skipped because evaluation failed")
)

// Init registers all collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SamplesTotal, SamplesInvalid,
			MinuteRollups, HourRollups, HourlyRowsWritten,
			StoreRetries, StoreFailures,
			ActionsDispatched, RuleEvalErrors,
		)
	})
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricPrefix + name,
		Help: help,
	})
}
