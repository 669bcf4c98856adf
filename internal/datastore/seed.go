package datastore

import (
	"context"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/logger"
)

// DemoDetections returns the reference detections shown by the dashboard demo.
func DemoDetections() []detection.DetectionEvent {
	const (
		deerImage  = "https://images.unsplash.com/photo-1466721591366-2d5fba72006d"
		foxImage   = "https://images.unsplash.com/photo-1517022812141-23620dba5c23"
		catImage   = "https://images.unsplash.com/photo-1582562124811-c09040d0a901"
		backyard   = "Backyard Camera"
		forestEdge = "Forest Edge"
		frontGate  = "Front Gate"
	)

	return []detection.DetectionEvent{
		{ID: "DET001", AnimalClass: "Deer", Confidence: 0.98, Timestamp: "2024-05-08T14:30:00", ImageURL: deerImage, CameraName: backyard},
		{ID: "DET002", AnimalClass: "Fox", Confidence: 0.87, Timestamp: "2024-05-08T10:15:00", ImageURL: foxImage, CameraName: forestEdge},
		{ID: "DET003", AnimalClass: "Cat", Confidence: 0.76, Timestamp: "2024-05-07T18:45:00", ImageURL: catImage, CameraName: frontGate},
		{ID: "DET004", AnimalClass: "Deer", Confidence: 0.93, Timestamp: "2024-05-07T11:20:00", ImageURL: deerImage, CameraName: forestEdge},
		{ID: "DET005", AnimalClass: "Rabbit", Confidence: 0.81, Timestamp: "2024-05-06T09:15:00", ImageURL: foxImage, CameraName: frontGate},
		{ID: "DET006", AnimalClass: "Raccoon", Confidence: 0.89, Timestamp: "2024-05-05T22:40:00", ImageURL: catImage, CameraName: backyard},
	}
}

// DemoAlertLogs returns the reference alert history shown by the dashboard demo.
func DemoAlertLogs() []alerts.Log {
	const (
		mailbox = "user@example.com"
		phone   = "+11234567890"
	)

	return []alerts.Log{
		{ID: "al-001", Channel: alerts.ChannelEmail, Recipient: mailbox, Subject: "Deer Detected",
			Message: "A deer was detected with 95% confidence at your forest edge camera.", Timestamp: "2025-05-10T15:32:45", Status: alerts.StatusDelivered},
		{ID: "al-002", Channel: alerts.ChannelSMS, Recipient: phone,
			Message: "Alert: Bear detected at backyard camera with 87% confidence.", Timestamp: "2025-05-10T18:45:21", Status: alerts.StatusDelivered},
		{ID: "al-003", Channel: alerts.ChannelEmail, Recipient: mailbox, Subject: "Bear Detected",
			Message: "A bear was detected with 87% confidence at your backyard camera.", Timestamp: "2025-05-10T18:45:23", Status: alerts.StatusDelivered},
		{ID: "al-004", Channel: alerts.ChannelSMS, Recipient: phone,
			Message: "Alert: Fox detected at front gate camera with 91% confidence.", Timestamp: "2025-05-11T08:12:05", Status: alerts.StatusFailed},
		{ID: "al-005", Channel: alerts.ChannelEmail, Recipient: mailbox, Subject: "Multiple Detections",
			Message: "There have been 3 new animal detections in the last hour.", Timestamp: "2025-05-11T10:30:15", Status: alerts.StatusDelivered},
	}
}

// SeedDemoData upserts the demo detections and alert history into store.
func SeedDemoData(ctx context.Context, store Interface) error {
	events := DemoDetections()
	if err := store.SaveDetections(ctx, events); err != nil {
		return err
	}
	logs := DemoAlertLogs()
	if err := store.SaveAlertLogs(ctx, logs); err != nil {
		return err
	}
	GetLogger().Info("seeded demo data", logger.Int("detections", len(events)), logger.Int("alert_logs", len(logs)))
	return nil
}
