// Package metrics provides constants used across metric definitions.
package metrics

// Operation type constants for datastore and engine metrics.
const (
	// OpSnapshot loads every detection for an engine query.
	OpSnapshot = "snapshot"
	// OpGet fetches a single detection.
	OpGet = "get"
	// OpSaveDetections upserts a batch of detections.
	OpSaveDetections = "save_detections"
	// OpSaveFeedback stores a feedback submission.
	OpSaveFeedback = "save_feedback"
	// OpListFeedback lists feedback for a detection.
	OpListFeedback = "list_feedback"
	// OpRevision reads the shared detection write revision.
	OpRevision = "revision"
	// OpSaveAlertLogs upserts alert log entries.
	OpSaveAlertLogs = "save_alert_logs"
	// OpListAlertLogs loads the alert log.
	OpListAlertLogs = "list_alert_logs"
	// OpMigrate runs schema auto-migration.
	OpMigrate = "migrate"
	// OpQuery is a full engine query (facets, filter, sort).
	OpQuery = "query"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Cache result label values.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is 1 millisecond in seconds
	BucketStart1ms = 0.001
	// BucketStart100us is 100 microseconds in seconds
	BucketStart100us = 0.0001
	// BucketStart100B is 100 bytes
	BucketStart100B = 100
	// BucketFactor2 doubles each bucket
	BucketFactor2 = 2
	// BucketFactor10 multiplies each bucket by ten
	BucketFactor10 = 10
	// BucketCount6 gives 100B to ~10MB with factor 10
	BucketCount6 = 6
	// BucketCount12 gives 1ms to ~2s with factor 2
	BucketCount12 = 12
	// BucketCount15 gives 1ms to ~16s with factor 2
	BucketCount15 = 15
)
