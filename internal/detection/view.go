package detection

import (
	"slices"
	"sync"
	"time"
)

// View holds filter state for one consumer and keeps the derived result in sync with it.
//
// Mutators only record the new input; Result recomputes lazily when the snapshot or
// criteria changed since the last call. Facets are recomputed only when the snapshot changes.
// A View is safe for concurrent use.
type View struct {
	mu       sync.Mutex
	opts     []Option
	options  Options
	events   []DetectionEvent
	criteria FilterCriteria

	facets      *Facets
	result      *FilterResult
	computedDay string // calendar date the result was computed on, set for DateFilterToday

	listeners []func(FilterCriteria)
}

// NewView creates a view over events with default criteria.
// The slice is copied so later changes by the caller do not leak into the view.
func NewView(events []DetectionEvent, opts ...Option) *View {
	return &View{
		opts:     opts,
		options:  buildOptions(opts),
		events:   slices.Clone(events),
		criteria: DefaultCriteria(),
	}
}

// OnChange registers fn to be called with the new criteria after every mutation.
// Callbacks run synchronously after the view lock is released.
func (v *View) OnChange(fn func(FilterCriteria)) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// Criteria returns the current criteria.
func (v *View) Criteria() FilterCriteria {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.criteria
}

// SetCriteria replaces all criteria at once. The threshold is clamped and the
// date bounds are copied.
func (v *View) SetCriteria(c FilterCriteria) {
	c.ConfidenceThresholdPercent = ClampThreshold(c.ConfidenceThresholdPercent)
	c.StartDate = cloneTime(c.StartDate)
	c.EndDate = cloneTime(c.EndDate)
	v.update(func(cur *FilterCriteria) { *cur = c })
}

// SetConfidenceThreshold sets the minimum confidence percentage, clamped to [0,100].
func (v *View) SetConfidenceThreshold(percent int) {
	percent = ClampThreshold(percent)
	v.update(func(c *FilterCriteria) { c.ConfidenceThresholdPercent = percent })
}

// SetSearchQuery sets the free-text search.
func (v *View) SetSearchQuery(q string) {
	v.update(func(c *FilterCriteria) { c.SearchQuery = q })
}

// SetAnimalFilter sets the animal class filter; FilterAll disables it.
func (v *View) SetAnimalFilter(animal string) {
	v.update(func(c *FilterCriteria) { c.AnimalFilter = animal })
}

// SetCameraFilter sets the camera filter; FilterAll disables it.
func (v *View) SetCameraFilter(camera string) {
	v.update(func(c *FilterCriteria) { c.CameraFilter = camera })
}

// SetDateFilterMode sets the date mode.
func (v *View) SetDateFilterMode(mode DateFilterMode) {
	v.update(func(c *FilterCriteria) { c.DateFilterMode = mode })
}

// SetStartDate sets the inclusive lower bound of the custom range. Nil clears it.
func (v *View) SetStartDate(t *time.Time) {
	t = cloneTime(t)
	v.update(func(c *FilterCriteria) { c.StartDate = t })
}

// SetEndDate sets the inclusive upper bound of the custom range. Nil clears it.
func (v *View) SetEndDate(t *time.Time) {
	t = cloneTime(t)
	v.update(func(c *FilterCriteria) { c.EndDate = t })
}

// Reset restores DefaultCriteria.
func (v *View) Reset() {
	v.update(func(c *FilterCriteria) { *c = DefaultCriteria() })
}

// SetDetections replaces the source snapshot.
func (v *View) SetDetections(events []DetectionEvent) {
	v.mu.Lock()
	v.events = slices.Clone(events)
	v.facets = nil
	v.result = nil
	criteria := v.criteria
	listeners := slices.Clone(v.listeners)
	v.mu.Unlock()

	notify(listeners, criteria)
}

// Facets returns the facet lists of the current snapshot.
func (v *View) Facets() Facets {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.facetsLocked()
}

// Result returns the filtered and sorted view, recomputing only when inputs changed.
// The returned slices must be treated as read-only.
func (v *View) Result() FilterResult {
	v.mu.Lock()
	defer v.mu.Unlock()

	day := ""
	if v.criteria.DateFilterMode == DateFilterToday {
		day = v.options.Now().In(v.options.Location).Format(time.DateOnly)
	}

	if v.result != nil && v.computedDay == day {
		return *v.result
	}

	facets := v.facetsLocked()
	filtered := Filter(v.events, v.criteria, v.opts...)
	v.result = &FilterResult{
		Detections:    SortByRecency(filtered, v.opts...),
		AnimalClasses: facets.AnimalClasses,
		CameraNames:   facets.CameraNames,
		Total:         len(v.events),
	}
	v.computedDay = day
	return *v.result
}

func (v *View) facetsLocked() Facets {
	if v.facets == nil {
		f := DeriveFacets(v.events)
		v.facets = &f
	}
	return *v.facets
}

func (v *View) update(mutate func(*FilterCriteria)) {
	v.mu.Lock()
	next := v.criteria
	mutate(&next)
	if next.Equal(v.criteria) {
		v.mu.Unlock()
		return
	}
	v.criteria = next
	v.result = nil
	listeners := slices.Clone(v.listeners)
	v.mu.Unlock()

	notify(listeners, next)
}

func notify(listeners []func(FilterCriteria), c FilterCriteria) {
	for _, fn := range listeners {
		fn(c)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
