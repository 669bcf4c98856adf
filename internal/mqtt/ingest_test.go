package mqtt

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

// MockClient implements Client for testing
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	args := m.Called(ctx, topic, handler)
	return args.Error(0)
}

func (m *MockClient) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func (m *MockClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockClient) Disconnect() {
	m.Called()
}

var _ Client = (*MockClient)(nil)

const foxMessage = `{"id":"CAM7-0001","animalClass":"Fox","confidence":0.91,` +
	`"timestamp":"2024-05-09T02:14:00Z","imageUrl":"https://cdn.example/cam7/0001.jpg","cameraName":"Orchard"}`

func TestDecodeDetections(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		payload      string
		wantIDs      []string
		wantCategory errors.ErrorCategory
	}{
		{name: "single object", payload: foxMessage, wantIDs: []string{"CAM7-0001"}},
		{
			name: "array keeps order",
			payload: `[{"id":"B","animalClass":"Deer","confidence":0.7,"timestamp":"2024-05-09T03:00:00","cameraName":"Orchard"},` +
				`{"id":"A","animalClass":"Deer","confidence":0.8,"timestamp":"2024-05-09","cameraName":"Orchard"}]`,
			wantIDs: []string{"B", "A"},
		},
		{name: "surrounding whitespace", payload: "\n  " + foxMessage + "\n", wantIDs: []string{"CAM7-0001"}},
		{
			name:         "oversized payload is rejected before decoding",
			payload:      foxMessage + strings.Repeat(" ", maxPayloadBytes),
			wantCategory: errors.CategoryFileParsing,
		},
		{name: "empty", payload: "   ", wantCategory: errors.CategoryFileParsing},
		{name: "empty array", payload: "[]", wantCategory: errors.CategoryFileParsing},
		{name: "not json", payload: "fox at orchard", wantCategory: errors.CategoryFileParsing},
		{
			name:         "confidence above one",
			payload:      `{"id":"X","animalClass":"Fox","confidence":1.5,"timestamp":"2024-05-09T02:14:00","cameraName":"Orchard"}`,
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "missing camera",
			payload:      `{"id":"X","animalClass":"Fox","confidence":0.5,"timestamp":"2024-05-09T02:14:00"}`,
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "unparseable timestamp",
			payload:      `{"id":"X","animalClass":"Fox","confidence":0.5,"timestamp":"yesterday","cameraName":"Orchard"}`,
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "bad image url",
			payload:      `{"id":"X","animalClass":"Fox","confidence":0.5,"timestamp":"2024-05-09","imageUrl":"not a url","cameraName":"Orchard"}`,
			wantCategory: errors.CategoryValidation,
		},
		{
			name: "one invalid entry rejects the batch",
			payload: `[` + foxMessage + `,` +
				`{"id":"","animalClass":"Fox","confidence":0.5,"timestamp":"2024-05-09","cameraName":"Orchard"}]`,
			wantCategory: errors.CategoryValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			events, err := DecodeDetections([]byte(tc.payload))
			if tc.wantCategory != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, tc.wantCategory), "got %v", err)
				assert.Nil(t, events)
				return
			}
			require.NoError(t, err)
			ids := make([]string, len(events))
			for i := range events {
				ids[i] = events[i].ID
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestDecodeDetections_MapsFields(t *testing.T) {
	t.Parallel()

	events, err := DecodeDetections([]byte(foxMessage))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Fox", events[0].AnimalClass)
	assert.InDelta(t, 0.91, events[0].Confidence, 1e-9)
	assert.Equal(t, "2024-05-09T02:14:00Z", events[0].Timestamp)
	assert.Equal(t, "https://cdn.example/cam7/0001.jpg", events[0].ImageURL)
	assert.Equal(t, "Orchard", events[0].CameraName)
}

func newMemoryStore(t *testing.T, open bool) datastore.Interface {
	t.Helper()

	store, err := datastore.New(&conf.Settings{
		Output: conf.OutputSettings{SQLite: conf.SQLiteSettings{Enabled: true, Path: ":memory:"}},
	})
	require.NoError(t, err)
	if open {
		require.NoError(t, store.Open())
		t.Cleanup(func() { _ = store.Close() })
	}
	return store
}

func newMQTTMetrics(t *testing.T) *metrics.MQTTMetrics {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestIngestor_Start(t *testing.T) {
	t.Parallel()

	client := new(MockClient)
	client.On("Subscribe", mock.Anything, "wildcam/detections", mock.Anything).Return(nil)

	ingestor := NewIngestor(client, newMemoryStore(t, true), "wildcam/detections", nil)
	require.NoError(t, ingestor.Start(context.Background()))
	client.AssertExpectations(t)
}

func TestIngestor_HandleMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemoryStore(t, true)
	m := newMQTTMetrics(t)
	ingestor := NewIngestor(new(MockClient), store, "wildcam/detections", m)

	before, err := store.Revision(ctx)
	require.NoError(t, err)
	ingestor.HandleMessage(ctx, "wildcam/detections", []byte(foxMessage))
	ingestor.HandleMessage(ctx, "wildcam/detections", []byte(`{"id":"broken"}`))
	// A repeated delivery updates the row instead of adding one.
	ingestor.HandleMessage(ctx, "wildcam/detections", []byte(foxMessage))

	events, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "CAM7-0001", events[0].ID)
	after, err := store.Revision(ctx)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	assert.InDelta(t, 2, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(metrics.IngestAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(metrics.IngestRejected)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.DetectionsIngested), 0)
}

func TestIngestor_StoreFailure(t *testing.T) {
	t.Parallel()

	m := newMQTTMetrics(t)
	ingestor := NewIngestor(new(MockClient), newMemoryStore(t, false), "wildcam/detections", m)

	ingestor.HandleMessage(context.Background(), "wildcam/detections", []byte(foxMessage))

	assert.InDelta(t, 1, testutil.ToFloat64(m.MessagesReceived.WithLabelValues(metrics.IngestFailed)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.DetectionsIngested), 0)
}
