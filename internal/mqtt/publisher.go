package mqtt

import (
	"context"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
)

// topicLevelSanitizer matches characters that are unsafe in a single topic level.
var topicLevelSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeTopicLevel makes s safe to use as one MQTT topic level.
func SanitizeTopicLevel(s string) string {
	sanitized := topicLevelSanitizer.ReplaceAllString(s, "_")
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "unknown"
	}
	return sanitized
}

// FeedbackPublisher publishes stored feedback below a topic prefix,
// one level per detection: <prefix>/<detection id>.
type FeedbackPublisher struct {
	client Client
	prefix string
}

// NewFeedbackPublisher creates a publisher for prefix.
func NewFeedbackPublisher(client Client, prefix string) *FeedbackPublisher {
	return &FeedbackPublisher{client: client, prefix: strings.TrimRight(prefix, "/")}
}

// Topic returns the topic feedback for detectionID is published to.
func (p *FeedbackPublisher) Topic(detectionID string) string {
	return p.prefix + "/" + SanitizeTopicLevel(detectionID)
}

// NotifyFeedback publishes fb as JSON.
func (p *FeedbackPublisher) NotifyFeedback(ctx context.Context, fb *datastore.Feedback) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryGeneric).
			Context("feedback_id", fb.ID).
			Build()
	}
	return p.client.Publish(ctx, p.Topic(fb.DetectionID), payload)
}
