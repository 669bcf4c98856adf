// Package metrics provides custom Prometheus metrics for the WildCam service.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete collectors.
type Recorder interface {
	// RecordOperation records an operation (e.g. "snapshot", "save_feedback")
	// with its status ("success" or "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence categorized by errorType.
	RecordError(operation, errorType string)
}

// NopRecorder discards every measurement.
type NopRecorder struct{}

// RecordOperation implements Recorder.
func (NopRecorder) RecordOperation(string, string) {}

// RecordDuration implements Recorder.
func (NopRecorder) RecordDuration(string, float64) {}

// RecordError implements Recorder.
func (NopRecorder) RecordError(string, string) {}

var _ Recorder = NopRecorder{}
