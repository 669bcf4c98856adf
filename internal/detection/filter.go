package detection

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options controls the environment-dependent parts of the engine.
type Options struct {
	Now      func() time.Time // Clock used by DateFilterToday
	Location *time.Location   // Location for zone-less timestamps and calendar dates
}

// Option configures Options.
type Option func(*Options)

// WithClock sets the clock used to evaluate DateFilterToday.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithLocation sets the location used for zone-less timestamps and calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(o *Options) {
		if loc != nil {
			o.Location = loc
		}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		Now:      time.Now,
		Location: time.Local,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Filter returns the events matching every predicate of criteria, preserving input order.
// The returned slice is newly allocated; events is not modified.
func Filter(events []DetectionEvent, criteria FilterCriteria, opts ...Option) []DetectionEvent {
	m := newMatcher(criteria, buildOptions(opts))

	filtered := make([]DetectionEvent, 0, len(events))
	for i := range events {
		if m.matches(&events[i]) {
			filtered = append(filtered, events[i])
		}
	}
	return filtered
}

// Matches reports whether a single event satisfies criteria.
func Matches(event DetectionEvent, criteria FilterCriteria, opts ...Option) bool {
	return newMatcher(criteria, buildOptions(opts)).matches(&event)
}

// matcher holds per-call state derived from the criteria so it is computed once per Filter call.
type matcher struct {
	criteria FilterCriteria
	opts     Options
	lower    cases.Caser
	query    string
	today    time.Time
}

func newMatcher(criteria FilterCriteria, opts Options) *matcher {
	m := &matcher{
		criteria: criteria,
		opts:     opts,
		lower:    cases.Lower(language.Und),
	}
	if criteria.SearchQuery != "" {
		m.query = m.lower.String(criteria.SearchQuery)
	}
	if criteria.DateFilterMode == DateFilterToday {
		m.today = opts.Now().In(opts.Location)
	}
	return m
}

func (m *matcher) matches(d *DetectionEvent) bool {
	return m.meetsConfidence(d) &&
		m.meetsAnimal(d) &&
		m.meetsCamera(d) &&
		m.meetsSearch(d) &&
		m.meetsDate(d)
}

func (m *matcher) meetsConfidence(d *DetectionEvent) bool {
	return d.ConfidencePercent() >= float64(m.criteria.ConfidenceThresholdPercent)
}

func (m *matcher) meetsAnimal(d *DetectionEvent) bool {
	return m.criteria.AnimalFilter == FilterAll || d.AnimalClass == m.criteria.AnimalFilter
}

func (m *matcher) meetsCamera(d *DetectionEvent) bool {
	return m.criteria.CameraFilter == FilterAll || d.CameraName == m.criteria.CameraFilter
}

func (m *matcher) meetsSearch(d *DetectionEvent) bool {
	if m.criteria.SearchQuery == "" {
		return true
	}
	return strings.Contains(m.lower.String(d.AnimalClass), m.query) ||
		strings.Contains(m.lower.String(d.CameraName), m.query) ||
		strings.Contains(m.lower.String(d.ID), m.query)
}

// meetsDate applies either the custom range or the coarse mode, never both.
func (m *matcher) meetsDate(d *DetectionEvent) bool {
	if m.criteria.DateFilterMode == DateFilterCustom {
		return m.meetsDateRange(d)
	}
	return m.meetsCoarseDate(d)
}

func (m *matcher) meetsDateRange(d *DetectionEvent) bool {
	ts, ok := d.Time(m.opts.Location)
	if !ok {
		return false
	}
	if start := m.criteria.StartDate; start != nil && ts.Before(*start) {
		return false
	}
	if end := m.criteria.EndDate; end != nil && ts.After(*end) {
		return false
	}
	return true
}

// meetsCoarseDate evaluates all/today/week/month. Week and month have no
// predicate and never match.
func (m *matcher) meetsCoarseDate(d *DetectionEvent) bool {
	switch m.criteria.DateFilterMode {
	case DateFilterAll:
		return true
	case DateFilterToday:
		ts, ok := d.Time(m.opts.Location)
		if !ok {
			return false
		}
		return sameCalendarDate(ts.In(m.opts.Location), m.today)
	default:
		return false
	}
}

func sameCalendarDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
