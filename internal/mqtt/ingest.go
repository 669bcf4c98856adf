package mqtt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
	"github.com/wildcam-go/wildcam/internal/validation"
)

const (
	// maxDetectionsPerMessage bounds the batch a single message may carry.
	maxDetectionsPerMessage = 1000
	// maxPayloadBytes bounds the message size accepted for decoding.
	maxPayloadBytes = 1 << 20
)

// DetectionMessage is the JSON document a camera publishes for one detection.
// A message carries either one document or an array of them.
type DetectionMessage struct {
	ID          string  `json:"id" validate:"required,max=64"`
	AnimalClass string  `json:"animalClass" validate:"required,max=128"`
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
	Timestamp   string  `json:"timestamp" validate:"required,isotime"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url"`
	CameraName  string  `json:"cameraName" validate:"required,max=128"`
}

// Event converts the message to the engine's event type.
func (m *DetectionMessage) Event() detection.DetectionEvent {
	return detection.DetectionEvent{
		ID:          m.ID,
		AnimalClass: m.AnimalClass,
		Confidence:  m.Confidence,
		Timestamp:   m.Timestamp,
		ImageURL:    m.ImageURL,
		CameraName:  m.CameraName,
	}
}

// DecodeDetections parses and validates a detection message payload.
// The whole message is rejected when any detection in it is invalid.
func DecodeDetections(payload []byte) ([]detection.DetectionEvent, error) {
	if len(payload) > maxPayloadBytes {
		return nil, rejectPayload(fmt.Errorf("payload is %d bytes, limit is %d",
			len(payload), maxPayloadBytes), len(payload))
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, rejectPayload(errors.NewStd("empty payload"), 0)
	}

	var messages []DetectionMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, rejectPayload(err, len(payload))
		}
	} else {
		var msg DetectionMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, rejectPayload(err, len(payload))
		}
		messages = []DetectionMessage{msg}
	}

	switch {
	case len(messages) == 0:
		return nil, rejectPayload(errors.NewStd("message holds no detections"), len(payload))
	case len(messages) > maxDetectionsPerMessage:
		return nil, rejectPayload(fmt.Errorf("message holds %d detections, limit is %d",
			len(messages), maxDetectionsPerMessage), len(payload))
	}

	events := make([]detection.DetectionEvent, len(messages))
	for i := range messages {
		if verr := validation.ValidateStruct(&messages[i]); verr != nil {
			return nil, errors.New(verr).
				Component("mqtt").
				Category(errors.CategoryValidation).
				Context("index", i).
				Context("detection_id", messages[i].ID).
				Build()
		}
		events[i] = messages[i].Event()
	}
	return events, nil
}

func rejectPayload(err error, size int) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryFileParsing).
		Context("payload_size", size).
		Build()
}

// Ingestor stores detections received on the detection topic.
type Ingestor struct {
	client  Client
	store   datastore.Interface
	topic   string
	metrics *metrics.MQTTMetrics
	log     logger.Logger
}

// NewIngestor creates an ingestor for topic. m may be nil.
func NewIngestor(client Client, store datastore.Interface, topic string, m *metrics.MQTTMetrics) *Ingestor {
	return &Ingestor{
		client:  client,
		store:   store,
		topic:   topic,
		metrics: m,
		log:     GetLogger().With(logger.String("topic", topic)),
	}
}

// Start subscribes to the detection topic.
func (i *Ingestor) Start(ctx context.Context) error {
	return i.client.Subscribe(ctx, i.topic, i.HandleMessage)
}

// HandleMessage decodes one message and upserts its detections.
// Invalid messages are logged and dropped.
func (i *Ingestor) HandleMessage(ctx context.Context, topic string, payload []byte) {
	start := time.Now()

	stored, err := i.ingest(ctx, payload)
	result := metrics.IngestAccepted
	switch {
	case err == nil:
		i.log.Debug("detections ingested",
			logger.String("source_topic", topic),
			logger.Int("count", stored),
			logger.Duration("elapsed", time.Since(start)))
	case errors.IsCategory(err, errors.CategoryValidation), errors.IsCategory(err, errors.CategoryFileParsing):
		result = metrics.IngestRejected
		i.log.Warn("rejected detection message",
			logger.String("source_topic", topic),
			logger.Int("size", len(payload)),
			logger.Error(err))
	default:
		result = metrics.IngestFailed
		i.log.Error("failed to store detections",
			logger.String("source_topic", topic),
			logger.Error(err))
	}

	if i.metrics != nil {
		i.metrics.RecordMessage(result, len(payload), stored)
	}
}

func (i *Ingestor) ingest(ctx context.Context, payload []byte) (int, error) {
	events, err := DecodeDetections(payload)
	if err != nil {
		return 0, err
	}
	if err := i.store.SaveDetections(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}
