package datastore

import (
	"time"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/detection"
)

// Detection represents a single camera detection in the database.
type Detection struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Position    int64     `gorm:"index;not null"` // Insertion order, kept across upserts
	AnimalClass string    `gorm:"index;size:128"`
	Confidence  float64   `gorm:"index"`
	Timestamp   string    `gorm:"size:64"` // ISO-8601 as received; parsed by the engine
	ImageURL    string    `gorm:"size:512"`
	CameraName  string    `gorm:"index;size:128"`
	CreatedAt   time.Time // Managed by gorm
	UpdatedAt   time.Time // Managed by gorm
}

// Feedback is a stored user verdict on a detection.
type Feedback struct {
	ID             string                 `gorm:"primaryKey;size:36" json:"id"` // UUID
	DetectionID    string                 `gorm:"index;size:64;not null" json:"detectionId"`
	Kind           detection.FeedbackKind `gorm:"size:32;not null" json:"kind"`
	SuggestedClass string                 `gorm:"size:128" json:"suggestedClass,omitempty"`
	Comment        string                 `gorm:"size:1024" json:"comment,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// WriteRevision is a named write counter shared by every process using the database.
type WriteRevision struct {
	Name    string `gorm:"primaryKey;size:32"`
	Counter uint64 `gorm:"not null;default:0"`
}

// detectionsRevision names the counter advanced by detection writes.
const detectionsRevision = "detections"

// AlertLog is a stored alert notification.
type AlertLog struct {
	ID        string         `gorm:"primaryKey;size:64"`
	Channel   alerts.Channel `gorm:"index;size:16;not null"`
	Recipient string         `gorm:"size:255"`
	Subject   string         `gorm:"size:255"`
	Message   string         `gorm:"size:1024"`
	Timestamp string         `gorm:"size:64"` // ISO-8601 as received
	Status    alerts.Status  `gorm:"index;size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Log converts the row to the alerts package type.
func (a *AlertLog) Log() alerts.Log {
	return alerts.Log{
		ID:        a.ID,
		Channel:   a.Channel,
		Recipient: a.Recipient,
		Subject:   a.Subject,
		Message:   a.Message,
		Timestamp: a.Timestamp,
		Status:    a.Status,
	}
}

func alertLogFromLog(l *alerts.Log) AlertLog {
	return AlertLog{
		ID:        l.ID,
		Channel:   l.Channel,
		Recipient: l.Recipient,
		Subject:   l.Subject,
		Message:   l.Message,
		Timestamp: l.Timestamp,
		Status:    l.Status,
	}
}

// Event converts the row to the engine's event type.
func (d *Detection) Event() detection.DetectionEvent {
	return detection.DetectionEvent{
		ID:          d.ID,
		AnimalClass: d.AnimalClass,
		Confidence:  d.Confidence,
		Timestamp:   d.Timestamp,
		ImageURL:    d.ImageURL,
		CameraName:  d.CameraName,
	}
}

// detectionFromEvent maps an engine event to a row at the given insertion position.
func detectionFromEvent(e *detection.DetectionEvent, position int64) Detection {
	return Detection{
		ID:          e.ID,
		Position:    position,
		AnimalClass: e.AnimalClass,
		Confidence:  e.Confidence,
		Timestamp:   e.Timestamp,
		ImageURL:    e.ImageURL,
		CameraName:  e.CameraName,
	}
}
