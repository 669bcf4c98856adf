package datastore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

func sqliteSettings(path string) *conf.Settings {
	return &conf.Settings{
		Output: conf.OutputSettings{
			SQLite: conf.SQLiteSettings{Enabled: true, Path: path},
		},
	}
}

// openMemoryStore returns a migrated in-memory store closed at test end.
func openMemoryStore(t *testing.T) (*SQLiteStore, *metrics.TestRecorder) {
	t.Helper()

	store := &SQLiteStore{Settings: sqliteSettings(inMemoryPath)}
	rec := metrics.NewTestRecorder()
	store.SetMetrics(rec)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store, rec
}

// revision reads the store's write counter and fails the test on error.
func revision(t *testing.T, store Interface) uint64 {
	t.Helper()
	rev, err := store.Revision(context.Background())
	require.NoError(t, err)
	return rev
}

func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()

	s, err := New(sqliteSettings(inMemoryPath))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	m, err := New(&conf.Settings{Output: conf.OutputSettings{MySQL: conf.MySQLSettings{Enabled: true}}})
	require.NoError(t, err)
	assert.IsType(t, &MySQLStore{}, m)

	_, err = New(&conf.Settings{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSnapshot_InsertionOrder(t *testing.T) {
	t.Parallel()
	store, rec := openMemoryStore(t)
	ctx := context.Background()

	empty, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, SeedDemoData(ctx, store))

	events, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, events, 6)
	assert.Equal(t, DemoDetections(), events)

	assert.Equal(t, 2, rec.OperationCount(metrics.OpSnapshot, metrics.StatusSuccess))
	assert.Equal(t, 1, rec.OperationCount(metrics.OpSaveDetections, metrics.StatusSuccess))
	assert.Equal(t, 1, rec.OperationCount(metrics.OpMigrate, metrics.StatusSuccess))
}

func TestSaveDetections_Upsert(t *testing.T) {
	t.Parallel()
	store, _ := openMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, SeedDemoData(ctx, store))
	rev := revision(t, store)

	updated := DemoDetections()[1]
	updated.Confidence = 0.5
	updated.AnimalClass = "Coyote"
	added := detection.DetectionEvent{ID: "DET007", AnimalClass: "Bear", Confidence: 0.9, Timestamp: "2024-05-09T06:00:00", CameraName: "Forest Edge"}

	require.NoError(t, store.SaveDetections(ctx, []detection.DetectionEvent{added, updated}))
	assert.Equal(t, rev+1, revision(t, store))

	events, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, events, 7)
	// Existing rows keep their place; new rows are appended
	assert.Equal(t, "DET002", events[1].ID)
	assert.Equal(t, "Coyote", events[1].AnimalClass)
	assert.InDelta(t, 0.5, events[1].Confidence, 1e-9)
	assert.Equal(t, "DET007", events[6].ID)
}

func TestSaveDetections_DuplicateIDsInBatch(t *testing.T) {
	t.Parallel()
	store, _ := openMemoryStore(t)
	ctx := context.Background()

	batch := []detection.DetectionEvent{
		{ID: "A", AnimalClass: "Fox", Confidence: 0.1},
		{ID: "B", AnimalClass: "Cat", Confidence: 0.2},
		{ID: "A", AnimalClass: "Deer", Confidence: 0.3},
	}
	require.NoError(t, store.SaveDetections(ctx, batch))

	events, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].ID)
	assert.Equal(t, "Deer", events[0].AnimalClass)
	assert.Equal(t, "B", events[1].ID)
}

func TestSaveDetections_RejectsEmptyID(t *testing.T) {
	t.Parallel()
	store, rec := openMemoryStore(t)

	err := store.SaveDetections(context.Background(), []detection.DetectionEvent{{ID: "  "}})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Equal(t, uint64(0), revision(t, store))
	assert.Equal(t, 1, rec.ErrorCount(metrics.OpSaveDetections, string(errors.CategoryValidation)))
}

func TestGet(t *testing.T) {
	t.Parallel()
	store, rec := openMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, SeedDemoData(ctx, store))

	event, err := store.Get(ctx, "DET003")
	require.NoError(t, err)
	assert.Equal(t, "Cat", event.AnimalClass)
	assert.Equal(t, "Front Gate", event.CameraName)

	_, err = store.Get(ctx, "DET999")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 1, rec.ErrorCount(metrics.OpGet, string(errors.CategoryNotFound)))
}

func TestFeedback(t *testing.T) {
	t.Parallel()
	store, _ := openMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, SeedDemoData(ctx, store))
	rev := revision(t, store)

	fb, err := store.SaveFeedback(ctx, &detection.FeedbackSubmission{
		DetectionID:    "DET001",
		Kind:           detection.FeedbackWrongClass,
		SuggestedClass: "Elk",
		Comment:        "antlers too big",
	})
	require.NoError(t, err)
	assert.Len(t, fb.ID, 36)
	assert.Equal(t, "Elk", fb.SuggestedClass)
	assert.False(t, fb.CreatedAt.IsZero())
	// Feedback does not change any detection, so cached query results stay valid
	assert.Equal(t, rev, revision(t, store))

	// Suggested class only applies to wrong_class
	fb2, err := store.SaveFeedback(ctx, &detection.FeedbackSubmission{
		DetectionID: "DET001", Kind: detection.FeedbackCorrect, SuggestedClass: "Elk",
	})
	require.NoError(t, err)
	assert.Empty(t, fb2.SuggestedClass)

	list, err := store.ListFeedback(ctx, "DET001")
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{fb.ID, fb2.ID}, ids)

	none, err := store.ListFeedback(ctx, "DET002")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSaveFeedback_Errors(t *testing.T) {
	t.Parallel()
	store, _ := openMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, SeedDemoData(ctx, store))

	testCases := []struct {
		name     string
		sub      *detection.FeedbackSubmission
		category errors.ErrorCategory
	}{
		{name: "nil submission", sub: nil, category: errors.CategoryValidation},
		{name: "missing detection id", sub: &detection.FeedbackSubmission{Kind: detection.FeedbackCorrect}, category: errors.CategoryValidation},
		{name: "unknown kind", sub: &detection.FeedbackSubmission{DetectionID: "DET001", Kind: "maybe"}, category: errors.CategoryValidation},
		{name: "unknown detection", sub: &detection.FeedbackSubmission{DetectionID: "NOPE", Kind: detection.FeedbackOther}, category: errors.CategoryNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.SaveFeedback(ctx, tc.sub)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tc.category), "got %v", err)
		})
	}
}

func TestOperationsBeforeOpen(t *testing.T) {
	t.Parallel()

	store := &SQLiteStore{Settings: sqliteSettings(inMemoryPath)}
	_, err := store.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	require.Error(t, store.Close())
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/nested/wildcam.db"
	store := &SQLiteStore{Settings: sqliteSettings(path)}
	require.NoError(t, store.Open())
	require.NoError(t, SeedDemoData(context.Background(), store))
	require.NoError(t, store.Close())

	reopened := &SQLiteStore{Settings: sqliteSettings(path)}
	require.NoError(t, reopened.Open())
	t.Cleanup(func() { _ = reopened.Close() })

	events, err := reopened.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 6)
}

func TestSaveDetections_Concurrent(t *testing.T) {
	t.Parallel()
	store, _ := openMemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('A' + i))
			assert.NoError(t, store.SaveDetections(ctx, []detection.DetectionEvent{{ID: id, AnimalClass: "Fox"}}))
		}()
	}
	wg.Wait()

	events, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.Equal(t, uint64(4), revision(t, store))
}

func TestRevision_SharedAcrossHandles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := t.TempDir() + "/shared.db"

	reader := &SQLiteStore{Settings: sqliteSettings(path)}
	require.NoError(t, reader.Open())
	t.Cleanup(func() { _ = reader.Close() })

	writer := &SQLiteStore{Settings: sqliteSettings(path)}
	require.NoError(t, writer.Open())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.SaveDetections(ctx, []detection.DetectionEvent{
		{ID: "D1", AnimalClass: "Deer", Confidence: 0.9, Timestamp: "2024-05-08T10:00:00", CameraName: "Yard"},
	}))
	before := revision(t, reader)
	assert.Equal(t, uint64(1), before)

	require.NoError(t, writer.SaveDetections(ctx, []detection.DetectionEvent{
		{ID: "F1", AnimalClass: "Fox", Confidence: 0.9, Timestamp: "2024-05-08T11:00:00", CameraName: "Yard"},
	}))
	assert.Greater(t, revision(t, reader), before)

	events, err := reader.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// Reopening keeps the counter
	require.NoError(t, reader.Close())
	reopened := &SQLiteStore{Settings: sqliteSettings(path)}
	require.NoError(t, reopened.Open())
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, uint64(2), revision(t, reopened))
}

func TestRevision_BeforeOpen(t *testing.T) {
	t.Parallel()

	store := &SQLiteStore{Settings: sqliteSettings(inMemoryPath)}
	_, err := store.Revision(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestAlertLogs(t *testing.T) {
	t.Parallel()
	store, rec := openMemoryStore(t)
	ctx := context.Background()

	empty, err := store.ListAlertLogs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, SeedDemoData(ctx, store))
	logs, err := store.ListAlertLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, DemoAlertLogs(), logs)

	// Upsert replaces by id and leaves the detection revision alone
	rev := revision(t, store)
	retried := DemoAlertLogs()[3]
	retried.Status = alerts.StatusDelivered
	require.NoError(t, store.SaveAlertLogs(ctx, []alerts.Log{retried}))
	assert.Equal(t, rev, revision(t, store))

	logs, err = store.ListAlertLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 5)
	assert.Equal(t, alerts.StatusDelivered, logs[3].Status)
	assert.Equal(t, 2, rec.OperationCount(metrics.OpSaveAlertLogs, metrics.StatusSuccess))
}

func TestSaveAlertLogs_RejectsInvalid(t *testing.T) {
	t.Parallel()
	store, rec := openMemoryStore(t)
	ctx := context.Background()

	bad := DemoAlertLogs()[:2]
	bad[1].Channel = "pager"
	err := store.SaveAlertLogs(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Equal(t, 1, rec.ErrorCount(metrics.OpSaveAlertLogs, string(errors.CategoryValidation)))

	// Nothing from a rejected batch is written
	logs, err := store.ListAlertLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDatastoreMetricsIntegration(t *testing.T) {
	t.Parallel()

	store := &SQLiteStore{Settings: sqliteSettings(inMemoryPath)}
	m, err := newTestDatastoreMetrics()
	require.NoError(t, err)
	store.SetMetrics(m)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, SeedDemoData(context.Background(), store))
	_, err = store.Snapshot(context.Background())
	require.NoError(t, err)
}
