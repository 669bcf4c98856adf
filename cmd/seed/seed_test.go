package seed

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
)

func sqliteSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Output: conf.OutputSettings{
			SQLite: conf.SQLiteSettings{Enabled: true, Path: filepath.Join(t.TempDir(), "wildcam.db")},
		},
	}
}

func TestRun_DemoIsIdempotent(t *testing.T) {
	t.Parallel()
	settings := sqliteSettings(t)

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), settings, "", &buf))
	const want = "upserted 6 detections, store now holds 6\nupserted 5 alert logs, store now holds 5\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, Run(context.Background(), settings, "", &buf))
	assert.Equal(t, want, buf.String(), "upserts replace by id")
}

func TestRun_FromFile(t *testing.T) {
	t.Parallel()
	settings := sqliteSettings(t)

	file := filepath.Join(t.TempDir(), "extra.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"detections": [{"id": "DET100", "animalClass": "Badger", "confidence": 0.91, `+
		`"timestamp": "2024-05-09T03:10:00", "imageUrl": "", "cameraName": "Hedge"}]}`), 0o600))

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), settings, "", &buf))
	buf.Reset()
	require.NoError(t, Run(context.Background(), settings, file, &buf))
	assert.Equal(t, "upserted 1 detections, store now holds 7\n", buf.String())

	store, err := datastore.New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	defer func() { _ = store.Close() }()

	event, err := store.Get(context.Background(), "DET100")
	require.NoError(t, err)
	assert.Equal(t, "Badger", event.AnimalClass)
	assert.Equal(t, "Hedge", event.CameraName)
}

func TestRun_FromFileWithAlerts(t *testing.T) {
	t.Parallel()
	settings := sqliteSettings(t)

	file := filepath.Join(t.TempDir(), "alerts.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
detections:
  - id: DET200
    animalClass: Heron
alerts:
  - id: al-100
    type: sms
    recipient: "+15550100"
    message: Heron at the pond
    timestamp: "2025-06-01T07:00:00"
    status: failed
`), 0o600))

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), settings, file, &buf))
	assert.Equal(t, "upserted 1 detections, store now holds 1\nupserted 1 alert logs, store now holds 1\n", buf.String())

	t.Run("invalid alert", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("alerts:\n  - id: al-1\n    type: fax\n    status: delivered\n"), 0o600))

		err := Run(context.Background(), settings, bad, &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	})
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := Run(context.Background(), sqliteSettings(t), filepath.Join(t.TempDir(), "absent.yaml"), &buf)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
		assert.Empty(t, buf.String())
	})

	t.Run("no store enabled", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := Run(context.Background(), &conf.Settings{}, "", &buf)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})
}
