// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

// Interface abstracts the underlying database implementation and defines the interface for database operations.
type Interface interface {
	Open() error
	Close() error
	// Snapshot returns every stored detection in insertion order.
	Snapshot(ctx context.Context) ([]detection.DetectionEvent, error)
	// Get returns a single detection or a not-found error.
	Get(ctx context.Context, id string) (detection.DetectionEvent, error)
	// SaveDetections inserts new detections and updates existing ones by id.
	SaveDetections(ctx context.Context, events []detection.DetectionEvent) error
	SaveFeedback(ctx context.Context, submission *detection.FeedbackSubmission) (*Feedback, error)
	ListFeedback(ctx context.Context, detectionID string) ([]Feedback, error)
	// SaveAlertLogs inserts new alert log entries and updates existing ones by id.
	SaveAlertLogs(ctx context.Context, logs []alerts.Log) error
	// ListAlertLogs returns every stored alert log entry ordered by creation time, then id.
	ListAlertLogs(ctx context.Context) ([]alerts.Log, error)
	// Revision returns the detection write counter stored in the database. It
	// increases on every successful SaveDetections from any process.
	Revision(ctx context.Context) (uint64, error)
	SetMetrics(recorder metrics.Recorder)
}

// resultSizeRecorder is implemented by recorders that track row counts.
type resultSizeRecorder interface {
	RecordQueryResultSize(operation string, rows int)
	UpdateTableRowCount(table string, rows int64)
	UpdateRevision(revision uint64)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance

	metricsMu sync.RWMutex
	metrics   metrics.Recorder
	writeMu   sync.Mutex // Serializes position assignment
}

// New creates a new store for the backend enabled in settings.
func New(settings *conf.Settings) (Interface, error) {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}, nil
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("no detection store backend enabled").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("hint", "enable output.sqlite or output.mysql").
			Build()
	}
}

// SetMetrics sets the metrics recorder for datastore operations.
func (ds *DataStore) SetMetrics(recorder metrics.Recorder) {
	ds.metricsMu.Lock()
	defer ds.metricsMu.Unlock()
	ds.metrics = recorder
}

func (ds *DataStore) recorder() metrics.Recorder {
	ds.metricsMu.RLock()
	defer ds.metricsMu.RUnlock()
	if ds.metrics == nil {
		return metrics.NopRecorder{}
	}
	return ds.metrics
}

// track records the outcome of an operation and returns err unchanged.
func (ds *DataStore) track(operation string, start time.Time, err error) error {
	rec := ds.recorder()
	rec.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		rec.RecordOperation(operation, metrics.StatusError)
		rec.RecordError(operation, errorType(err))
		return err
	}
	rec.RecordOperation(operation, metrics.StatusSuccess)
	return nil
}

func (ds *DataStore) recordResultSize(operation string, rows int) {
	if r, ok := ds.recorder().(resultSizeRecorder); ok {
		r.RecordQueryResultSize(operation, rows)
	}
}

// refreshRowCount updates the row count gauge of a table after a write.
func (ds *DataStore) refreshRowCount(ctx context.Context, table string, model any) {
	r, ok := ds.recorder().(resultSizeRecorder)
	if !ok {
		return
	}
	var count int64
	if err := ds.DB.WithContext(ctx).Model(model).Count(&count).Error; err == nil {
		r.UpdateTableRowCount(table, count)
	}
}

// advanceRevision increments the named write counter inside tx.
func advanceRevision(tx *gorm.DB, name string) error {
	res := tx.Model(&WriteRevision{}).
		Where("name = ?", name).
		UpdateColumn("counter", gorm.Expr("counter + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Create(&WriteRevision{Name: name, Counter: 1}).Error
	}
	return nil
}

// Revision reads the detection write counter from the database, so writes made
// through other handles or processes are observed.
func (ds *DataStore) Revision(ctx context.Context) (rev uint64, err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpRevision, start, err) }()

	if ds.DB == nil {
		return 0, notInitializedError(metrics.OpRevision)
	}

	var rows []WriteRevision
	if err := ds.DB.WithContext(ctx).Where("name = ?", detectionsRevision).Limit(1).Find(&rows).Error; err != nil {
		return 0, dbError(err, metrics.OpRevision, errors.PriorityMedium)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Counter, nil
}

// Snapshot returns every stored detection in insertion order.
func (ds *DataStore) Snapshot(ctx context.Context) (events []detection.DetectionEvent, err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpSnapshot, start, err) }()

	if ds.DB == nil {
		return nil, notInitializedError(metrics.OpSnapshot)
	}

	var rows []Detection
	if err := ds.DB.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, dbError(err, metrics.OpSnapshot, errors.PriorityHigh)
	}

	events = make([]detection.DetectionEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].Event()
	}
	ds.recordResultSize(metrics.OpSnapshot, len(events))
	return events, nil
}

// Get returns a single detection by id.
func (ds *DataStore) Get(ctx context.Context, id string) (event detection.DetectionEvent, err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpGet, start, err) }()

	if ds.DB == nil {
		return detection.DetectionEvent{}, notInitializedError(metrics.OpGet)
	}

	var row Detection
	if err := ds.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return detection.DetectionEvent{}, notFoundError("detection", id)
		}
		return detection.DetectionEvent{}, dbError(err, metrics.OpGet, errors.PriorityMedium, "detection_id", id)
	}
	return row.Event(), nil
}

// SaveDetections upserts events by id. New ids are appended after existing rows;
// known ids keep their position and have their fields replaced. When a batch
// repeats an id the last occurrence wins.
func (ds *DataStore) SaveDetections(ctx context.Context, events []detection.DetectionEvent) (err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpSaveDetections, start, err) }()

	if ds.DB == nil {
		return notInitializedError(metrics.OpSaveDetections)
	}
	if len(events) == 0 {
		return nil
	}

	order := make([]string, 0, len(events))
	latest := make(map[string]detection.DetectionEvent, len(events))
	for i := range events {
		id := strings.TrimSpace(events[i].ID)
		if id == "" {
			return validationError("detection id must not be empty", "id", i)
		}
		if _, seen := latest[id]; !seen {
			order = append(order, id)
		}
		e := events[i]
		e.ID = id
		latest[id] = e
	}

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos struct{ Max *int64 }
		if err := tx.Model(&Detection{}).Select("MAX(position) AS max").Scan(&maxPos).Error; err != nil {
			return err
		}
		base := int64(0)
		if maxPos.Max != nil {
			base = *maxPos.Max + 1
		}

		rows := make([]Detection, len(order))
		for i, id := range order {
			e := latest[id]
			rows[i] = detectionFromEvent(&e, base+int64(i))
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"animal_class", "confidence", "timestamp", "image_url", "camera_name", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return err
		}
		return advanceRevision(tx, detectionsRevision)
	})
	if err != nil {
		return dbError(err, metrics.OpSaveDetections, errors.PriorityHigh, "count", len(order))
	}

	ds.refreshRowCount(ctx, "detections", &Detection{})
	if rev, revErr := ds.Revision(ctx); revErr == nil {
		if r, ok := ds.recorder().(resultSizeRecorder); ok {
			r.UpdateRevision(rev)
		}
		GetLogger().Debug("detections saved", logger.Int("count", len(order)), logger.Uint64("revision", rev))
	}
	return nil
}

// SaveFeedback stores a feedback submission for an existing detection.
func (ds *DataStore) SaveFeedback(ctx context.Context, submission *detection.FeedbackSubmission) (fb *Feedback, err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpSaveFeedback, start, err) }()

	if ds.DB == nil {
		return nil, notInitializedError(metrics.OpSaveFeedback)
	}
	if submission == nil {
		return nil, validationError("feedback submission is required", "submission", nil)
	}
	if err := submission.Validate(); err != nil {
		return nil, err
	}

	var count int64
	if err := ds.DB.WithContext(ctx).Model(&Detection{}).Where("id = ?", submission.DetectionID).Count(&count).Error; err != nil {
		return nil, dbError(err, metrics.OpSaveFeedback, errors.PriorityMedium, "detection_id", submission.DetectionID)
	}
	if count == 0 {
		return nil, notFoundError("detection", submission.DetectionID)
	}

	fb = &Feedback{
		ID:          uuid.NewString(),
		DetectionID: submission.DetectionID,
		Kind:        submission.Kind,
		Comment:     submission.Comment,
	}
	if submission.Kind == detection.FeedbackWrongClass {
		fb.SuggestedClass = submission.SuggestedClass
	}

	if err := ds.DB.WithContext(ctx).Create(fb).Error; err != nil {
		return nil, dbError(err, metrics.OpSaveFeedback, errors.PriorityMedium, "detection_id", submission.DetectionID)
	}

	ds.refreshRowCount(ctx, "feedbacks", &Feedback{})
	return fb, nil
}

// ListFeedback returns feedback for a detection, oldest first.
func (ds *DataStore) ListFeedback(ctx context.Context, detectionID string) (list []Feedback, err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpListFeedback, start, err) }()

	if ds.DB == nil {
		return nil, notInitializedError(metrics.OpListFeedback)
	}

	list = []Feedback{}
	if err := ds.DB.WithContext(ctx).
		Where("detection_id = ?", detectionID).
		Order("created_at ASC").Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, dbError(err, metrics.OpListFeedback, errors.PriorityMedium, "detection_id", detectionID)
	}
	ds.recordResultSize(metrics.OpListFeedback, len(list))
	return list, nil
}

// SaveAlertLogs upserts alert log entries by id. New ids are appended in batch
// order; when a batch repeats an id the last occurrence wins.
func (ds *DataStore) SaveAlertLogs(ctx context.Context, logs []alerts.Log) (err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpSaveAlertLogs, start, err) }()

	if ds.DB == nil {
		return notInitializedError(metrics.OpSaveAlertLogs)
	}
	if len(logs) == 0 {
		return nil
	}

	order := make([]string, 0, len(logs))
	latest := make(map[string]alerts.Log, len(logs))
	for i := range logs {
		l := logs[i]
		l.ID = strings.TrimSpace(l.ID)
		if err := l.Validate(); err != nil {
			return err
		}
		if _, seen := latest[l.ID]; !seen {
			order = append(order, l.ID)
		}
		latest[l.ID] = l
	}

	rows := make([]AlertLog, len(order))
	for i, id := range order {
		l := latest[id]
		rows[i] = alertLogFromLog(&l)
	}

	if err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"channel", "recipient", "subject", "message", "timestamp", "status", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return dbError(err, metrics.OpSaveAlertLogs, errors.PriorityMedium, "count", len(rows))
	}

	ds.refreshRowCount(ctx, "alert_logs", &AlertLog{})
	return nil
}

// ListAlertLogs returns every stored alert log entry ordered by creation time, then id.
func (ds *DataStore) ListAlertLogs(ctx context.Context) (list []alerts.Log, err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpListAlertLogs, start, err) }()

	if ds.DB == nil {
		return nil, notInitializedError(metrics.OpListAlertLogs)
	}

	var rows []AlertLog
	if err := ds.DB.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, dbError(err, metrics.OpListAlertLogs, errors.PriorityMedium)
	}

	list = make([]alerts.Log, len(rows))
	for i := range rows {
		list[i] = rows[i].Log()
	}
	ds.recordResultSize(metrics.OpListAlertLogs, len(list))
	return list, nil
}

// closeDB closes the underlying SQL connection pool.
func (ds *DataStore) closeDB(dbType string) error {
	if ds.DB == nil {
		return notInitializedError("close")
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", errors.PriorityMedium, "db_type", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", errors.PriorityMedium, "db_type", dbType)
	}

	GetLogger().Debug("database connection closed", logger.String("db_type", dbType))
	return nil
}
