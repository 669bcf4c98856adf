// Package alerts models the log of alert notifications sent about detections and
// evaluates the alert history view over it: search, channel filter, newest-first order
// and summary counts. Sending alerts is done elsewhere; this package only reads the log.
package alerts

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
)

// Channel is the delivery channel of an alert.
type Channel string

// Alert channels. ChannelAll is only meaningful as a filter value.
const (
	ChannelAll   Channel = "all"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Status is the delivery outcome of an alert.
type Status string

// Delivery outcomes.
const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Log is one sent (or attempted) alert notification.
type Log struct {
	ID        string  `json:"id" yaml:"id"`
	Channel   Channel `json:"type" yaml:"type"`
	Recipient string  `json:"recipient" yaml:"recipient"`
	Subject   string  `json:"subject,omitempty" yaml:"subject,omitempty"` // Empty for SMS
	Message   string  `json:"message" yaml:"message"`
	Timestamp string  `json:"timestamp" yaml:"timestamp"` // ISO-8601 send time
	Status    Status  `json:"status" yaml:"status"`
}

// Validate checks the fields a stored log entry needs.
func (l *Log) Validate() error {
	var problem string
	switch {
	case strings.TrimSpace(l.ID) == "":
		problem = "alert log id must not be empty"
	case l.Channel != ChannelEmail && l.Channel != ChannelSMS:
		problem = "alert type must be email or sms"
	case l.Status != StatusDelivered && l.Status != StatusFailed:
		problem = "alert status must be delivered or failed"
	default:
		return nil
	}
	return errors.Newf("%s", problem).
		Component("alerts").
		Category(errors.CategoryValidation).
		Context("alert_id", l.ID).
		Build()
}

// ParseChannel parses a channel filter value. Empty means ChannelAll.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case "", ChannelAll:
		return ChannelAll, nil
	case ChannelEmail, ChannelSMS:
		return c, nil
	default:
		return ChannelAll, errors.Newf("unknown alert type %q", s).
			Component("alerts").
			Category(errors.CategoryValidation).
			Context("value", s).
			Build()
	}
}

// Criteria selects alert log entries.
type Criteria struct {
	SearchQuery string  `json:"q"`
	Channel     Channel `json:"type"`
}

// DefaultCriteria matches every entry.
func DefaultCriteria() Criteria {
	return Criteria{Channel: ChannelAll}
}

// Query returns the entries matching criteria, newest first. The search is a
// case-insensitive substring of recipient, subject or message. Entries with equal
// or unparseable timestamps keep their input order; unparseable ones sort last.
func Query(logs []Log, criteria Criteria, loc *time.Location) []Log {
	lower := cases.Lower(language.Und)
	query := lower.String(criteria.SearchQuery)

	type keyed struct {
		log Log
		ts  time.Time
		ok  bool
	}

	items := make([]keyed, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		if criteria.Channel != ChannelAll && criteria.Channel != "" && l.Channel != criteria.Channel {
			continue
		}
		if query != "" &&
			!strings.Contains(lower.String(l.Recipient), query) &&
			!strings.Contains(lower.String(l.Subject), query) &&
			!strings.Contains(lower.String(l.Message), query) {
			continue
		}
		ts, ok := detection.ParseTimestamp(l.Timestamp, loc)
		items = append(items, keyed{log: *l, ts: ts, ok: ok})
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

	out := make([]Log, len(items))
	for i := range items {
		out[i] = items[i].log
	}
	return out
}

// Stats counts alert log entries by channel and outcome.
type Stats struct {
	Total     int `json:"total"`
	Email     int `json:"email"`
	SMS       int `json:"sms"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Summarize counts every entry of logs.
func Summarize(logs []Log) Stats {
	s := Stats{Total: len(logs)}
	for i := range logs {
		switch logs[i].Channel {
		case ChannelEmail:
			s.Email++
		case ChannelSMS:
			s.SMS++
		}
		switch logs[i].Status {
		case StatusDelivered:
			s.Delivered++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// CountInMonth counts entries sent in the calendar month of now, evaluated in loc.
// Entries with unparseable timestamps are not counted.
func CountInMonth(logs []Log, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	year, month, _ := now.In(loc).Date()

	n := 0
	for i := range logs {
		ts, ok := detection.ParseTimestamp(logs[i].Timestamp, loc)
		if !ok {
			continue
		}
		y, m, _ := ts.In(loc).Date()
		if y == year && m == month {
			n++
		}
	}
	return n
}
