package detection

import (
	"slices"
	"time"
)

// SortByRecency returns a copy of events ordered newest first.
// The sort is stable: events with equal timestamps keep their input order.
// Events with unparseable timestamps are placed after all others.
func SortByRecency(events []DetectionEvent, opts ...Option) []DetectionEvent {
	o := buildOptions(opts)

	type keyed struct {
		event DetectionEvent
		ts    time.Time
		ok    bool
	}

	items := make([]keyed, len(events))
	for i := range events {
		ts, ok := events[i].Time(o.Location)
		items[i] = keyed{event: events[i], ts: ts, ok: ok}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.ok && b.ok:
			return b.ts.Compare(a.ts)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})

	sorted := make([]DetectionEvent, len(items))
	for i := range items {
		sorted[i] = items[i].event
	}
	return sorted
}
