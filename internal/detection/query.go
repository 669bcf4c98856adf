package detection

// FilterResult is the derived view of a snapshot under a set of criteria.
// It is recomputed on demand and never persisted.
type FilterResult struct {
	Detections    []DetectionEvent `json:"detections"`
	AnimalClasses []string         `json:"animalClasses"`
	CameraNames   []string         `json:"cameraNames"`
	Total         int              `json:"total"` // Size of the source snapshot
}

// Count returns the number of detections in the result.
func (r *FilterResult) Count() int {
	return len(r.Detections)
}

// Empty reports whether no detection survived the filters.
func (r *FilterResult) Empty() bool {
	return len(r.Detections) == 0
}

// Query filters and sorts events under criteria and derives the facets of the full snapshot.
func Query(events []DetectionEvent, criteria FilterCriteria, opts ...Option) FilterResult {
	facets := DeriveFacets(events)
	filtered := Filter(events, criteria, opts...)

	return FilterResult{
		Detections:    SortByRecency(filtered, opts...),
		AnimalClasses: facets.AnimalClasses,
		CameraNames:   facets.CameraNames,
		Total:         len(events),
	}
}
