package detection

import (
	"fmt"
	"strings"
	"time"

	"github.com/wildcam-go/wildcam/internal/errors"
)

// FilterAll is the sentinel value for animal and camera filters that disables the filter.
const FilterAll = "all"

// Threshold bounds and default for FilterCriteria.ConfidenceThresholdPercent.
const (
	MinConfidenceThreshold     = 0
	MaxConfidenceThreshold     = 100
	DefaultConfidenceThreshold = 70
)

// DateFilterMode selects how detection timestamps are constrained.
type DateFilterMode int

const (
	// DateFilterAll applies no date constraint.
	DateFilterAll DateFilterMode = iota
	// DateFilterToday keeps detections on the current local calendar date.
	DateFilterToday
	// DateFilterWeek is selectable but has no predicate of its own; it matches nothing.
	DateFilterWeek
	// DateFilterMonth is selectable but has no predicate of its own; it matches nothing.
	DateFilterMonth
	// DateFilterCustom applies the inclusive StartDate/EndDate bounds.
	DateFilterCustom
)

var dateFilterModeNames = map[DateFilterMode]string{
	DateFilterAll:    "all",
	DateFilterToday:  "today",
	DateFilterWeek:   "week",
	DateFilterMonth:  "month",
	DateFilterCustom: "custom",
}

// String returns the wire name of the mode.
func (m DateFilterMode) String() string {
	if name, ok := dateFilterModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("DateFilterMode(%d)", int(m))
}

// Valid reports whether m is one of the declared modes.
func (m DateFilterMode) Valid() bool {
	_, ok := dateFilterModeNames[m]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (m DateFilterMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.Newf("invalid date filter mode %d", int(m)).
			Component("detection").
			Category(errors.CategoryValidation).
			Build()
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DateFilterMode) UnmarshalText(text []byte) error {
	mode, err := ParseDateFilterMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseDateFilterMode converts a wire name into a DateFilterMode.
// Matching is case-insensitive; an empty string yields DateFilterAll.
func ParseDateFilterMode(s string) (DateFilterMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return DateFilterAll, nil
	}
	for mode, modeName := range dateFilterModeNames {
		if modeName == name {
			return mode, nil
		}
	}
	return DateFilterAll, errors.Newf("unknown date filter mode %q", s).
		Component("detection").
		Category(errors.CategoryValidation).
		Context("value", s).
		Build()
}

// DateFilterModes returns all selectable modes in menu order.
func DateFilterModes() []DateFilterMode {
	return []DateFilterMode{DateFilterAll, DateFilterToday, DateFilterWeek, DateFilterMonth, DateFilterCustom}
}

// FilterCriteria is the caller-held snapshot of all active filter selections.
// It is passed by value; the engine never modifies it.
type FilterCriteria struct {
	ConfidenceThresholdPercent int            `json:"confidence"`
	SearchQuery                string         `json:"q"`
	AnimalFilter               string         `json:"animal"`
	CameraFilter               string         `json:"camera"`
	DateFilterMode             DateFilterMode `json:"dateMode"`
	StartDate                  *time.Time     `json:"start,omitempty"` // Only used with DateFilterCustom
	EndDate                    *time.Time     `json:"end,omitempty"`   // Only used with DateFilterCustom
}

// DefaultCriteria returns the criteria a reset restores.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		ConfidenceThresholdPercent: DefaultConfidenceThreshold,
		SearchQuery:                "",
		AnimalFilter:               FilterAll,
		CameraFilter:               FilterAll,
		DateFilterMode:             DateFilterAll,
	}
}

// ClampThreshold limits a threshold percentage to [0,100].
func ClampThreshold(percent int) int {
	return min(max(percent, MinConfidenceThreshold), MaxConfidenceThreshold)
}

// Key returns a canonical string form of the criteria suitable for cache keys.
// Two criteria with equal field values produce equal keys.
func (c FilterCriteria) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "c=%d|q=%q|a=%q|cam=%q|m=%s", c.ConfidenceThresholdPercent, c.SearchQuery,
		c.AnimalFilter, c.CameraFilter, c.DateFilterMode)
	if c.StartDate != nil {
		fmt.Fprintf(&b, "|s=%s", c.StartDate.UTC().Format(time.RFC3339Nano))
	}
	if c.EndDate != nil {
		fmt.Fprintf(&b, "|e=%s", c.EndDate.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}

// Equal reports whether two criteria select the same detections.
func (c FilterCriteria) Equal(other FilterCriteria) bool {
	return c.ConfidenceThresholdPercent == other.ConfidenceThresholdPercent &&
		c.SearchQuery == other.SearchQuery &&
		c.AnimalFilter == other.AnimalFilter &&
		c.CameraFilter == other.CameraFilter &&
		c.DateFilterMode == other.DateFilterMode &&
		timePtrEqual(c.StartDate, other.StartDate) &&
		timePtrEqual(c.EndDate, other.EndDate)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
