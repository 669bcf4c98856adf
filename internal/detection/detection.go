// Package detection provides the domain model and query engine for wildlife camera detections.
//
// The engine is a set of pure functions over an in-memory snapshot of detection events:
//   - DeriveFacets collects the distinct animal classes and camera names used by filter selectors
//   - Filter applies the conjunction of confidence, animal, camera, search and date predicates
//   - SortByRecency orders the survivors newest first with a stable sort
//   - Query combines the three into a FilterResult
//
// None of these functions perform I/O or mutate their input. View wraps them for callers
// that hold filter state and want the derived result recomputed only when inputs change.
package detection

import (
	"strings"
	"time"
)

// DetectionEvent is a single wildlife sighting produced by a camera.
// Events are supplied by the detection store and are never modified by the engine.
type DetectionEvent struct {
	ID          string  `json:"id" yaml:"id"`                   // Unique identifier (e.g. "DET001")
	AnimalClass string  `json:"animalClass" yaml:"animalClass"` // Classifier label (e.g. "Deer")
	Confidence  float64 `json:"confidence" yaml:"confidence"`   // Classifier confidence (0.0-1.0)
	Timestamp   string  `json:"timestamp" yaml:"timestamp"`     // ISO-8601 capture time
	ImageURL    string  `json:"imageUrl" yaml:"imageUrl"`       // Opaque image reference, not interpreted
	CameraName  string  `json:"cameraName" yaml:"cameraName"`   // Camera that produced the detection
}

// zonelessLayouts are accepted when the timestamp carries no UTC offset.
// Such timestamps are interpreted in the engine location.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts an ISO-8601 timestamp to an absolute instant.
// Timestamps with an offset or "Z" are parsed as RFC 3339; zone-less timestamps
// are interpreted in loc. A nil loc means time.Local.
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}

	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// Time returns the parsed capture time of the event in loc.
// The second return value is false when the timestamp cannot be parsed.
func (d *DetectionEvent) Time(loc *time.Location) (time.Time, bool) {
	return ParseTimestamp(d.Timestamp, loc)
}

// ConfidencePercent returns the confidence scaled to a percentage.
func (d *DetectionEvent) ConfidencePercent() float64 {
	return d.Confidence * 100
}
