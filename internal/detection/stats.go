package detection

import "time"

// CameraSummary describes the activity of one camera.
type CameraSummary struct {
	Name            string `json:"name"`
	DetectionCount  int    `json:"detectionCount"`
	DetectionsToday int    `json:"detectionsToday"`
	LastDetection   string `json:"lastDetection,omitempty"` // Timestamp of the newest parseable detection
}

// Summary is the dashboard overview of a detection snapshot.
type Summary struct {
	TotalCameras    int             `json:"totalCameras"`
	ActiveCameras   int             `json:"activeCameras"` // Cameras with a detection today
	TotalDetections int             `json:"totalDetections"`
	DetectionsToday int             `json:"detectionsToday"`
	Cameras         []CameraSummary `json:"cameras"` // Facet order
}

// todayCriteria selects every detection of the current calendar date regardless of confidence.
func todayCriteria() FilterCriteria {
	c := DefaultCriteria()
	c.ConfidenceThresholdPercent = MinConfidenceThreshold
	c.DateFilterMode = DateFilterToday
	return c
}

// Summarize counts detections per camera and for the current calendar date.
// Cameras are the distinct camera names of the snapshot; a camera is active when it
// produced a detection today. No confidence threshold applies.
func Summarize(events []DetectionEvent, opts ...Option) Summary {
	o := buildOptions(opts)
	today := newMatcher(todayCriteria(), o)

	names := DeriveFacets(events).CameraNames
	cameras := make(map[string]*CameraSummary, len(names))
	newest := make(map[string]time.Time, len(names))
	summary := Summary{
		TotalCameras:    len(names),
		TotalDetections: len(events),
		Cameras:         make([]CameraSummary, len(names)),
	}
	for i, name := range names {
		summary.Cameras[i].Name = name
		cameras[name] = &summary.Cameras[i]
	}

	for i := range events {
		e := &events[i]
		cam := cameras[e.CameraName]
		cam.DetectionCount++

		if today.matches(e) {
			cam.DetectionsToday++
			summary.DetectionsToday++
		}
		if ts, ok := e.Time(o.Location); ok {
			if last, seen := newest[e.CameraName]; !seen || ts.After(last) {
				newest[e.CameraName] = ts
				cam.LastDetection = e.Timestamp
			}
		}
	}

	for i := range summary.Cameras {
		if summary.Cameras[i].DetectionsToday > 0 {
			summary.ActiveCameras++
		}
	}
	return summary
}
