package core

import "time"

// Metrics records application level measurements.
type Metrics interface {
	ObserveAggregation(mode string, rows int, elapsed time.Duration)
	EvaluationSubmitted()
	ActivityRecordFailed()
}
