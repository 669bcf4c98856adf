package detection

import (
	"time"
)

// sampleDetections returns the six reference detections used across the engine tests.
func sampleDetections() []DetectionEvent {
	return []DetectionEvent{
		{ID: "DET001", AnimalClass: "Deer", Confidence: 0.98, Timestamp: "2024-05-08T14:30:00", ImageURL: "https://images.example.com/deer.jpg", CameraName: "Backyard Camera"},
		{ID: "DET002", AnimalClass: "Fox", Confidence: 0.87, Timestamp: "2024-05-08T10:15:00", ImageURL: "https://images.example.com/fox.jpg", CameraName: "Forest Edge"},
		{ID: "DET003", AnimalClass: "Cat", Confidence: 0.76, Timestamp: "2024-05-07T18:45:00", ImageURL: "https://images.example.com/cat.jpg", CameraName: "Front Gate"},
		{ID: "DET004", AnimalClass: "Deer", Confidence: 0.93, Timestamp: "2024-05-07T11:20:00", ImageURL: "https://images.example.com/deer.jpg", CameraName: "Forest Edge"},
		{ID: "DET005", AnimalClass: "Rabbit", Confidence: 0.81, Timestamp: "2024-05-06T09:15:00", ImageURL: "https://images.example.com/rabbit.jpg", CameraName: "Front Gate"},
		{ID: "DET006", AnimalClass: "Raccoon", Confidence: 0.89, Timestamp: "2024-05-05T22:40:00", ImageURL: "https://images.example.com/raccoon.jpg", CameraName: "Backyard Camera"},
	}
}

// utcOpts pins the engine to UTC so tests do not depend on the host time zone.
func utcOpts(now time.Time) []Option {
	return []Option{
		WithLocation(time.UTC),
		WithClock(func() time.Time { return now }),
	}
}

func ids(events []DetectionEvent) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].ID
	}
	return out
}

func at(t time.Time) *time.Time {
	return &t
}

func mustUTC(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}
