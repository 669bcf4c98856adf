package query

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/errors"
)

// writeDemoSnapshot writes the demo detections as a YAML snapshot file.
func writeDemoSnapshot(t *testing.T) string {
	t.Helper()

	data, err := yaml.Marshal(datastore.DemoDetections())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "detections.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func utcSettings() *conf.Settings {
	return &conf.Settings{Engine: conf.EngineSettings{Timezone: "UTC", DefaultThreshold: 70}}
}

func baseOptions(file string) *Options {
	return &Options{
		File:       file,
		Confidence: 70,
		Animal:     "all",
		Camera:     "all",
		DateMode:   "all",
		Format:     FormatJSON,
	}
}

func runJSON(t *testing.T, opts *Options) Output {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), utcSettings(), opts, &buf))

	var out Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	return out
}

func ids(out *Output) []string {
	result := make([]string, len(out.Detections))
	for i := range out.Detections {
		result[i] = out.Detections[i].ID
	}
	return result
}

func TestRun_Filters(t *testing.T) {
	t.Parallel()
	file := writeDemoSnapshot(t)

	tests := []struct {
		name    string
		mutate  func(*Options)
		wantIDs []string
	}{
		{
			name:    "defaults",
			mutate:  func(*Options) {},
			wantIDs: []string{"DET001", "DET002", "DET003", "DET004", "DET005", "DET006"},
		},
		{
			name:    "deer at forest edge",
			mutate:  func(o *Options) { o.Animal = "Deer"; o.Camera = "Forest Edge" },
			wantIDs: []string{"DET004"},
		},
		{
			name:    "search",
			mutate:  func(o *Options) { o.Search = "backyard" },
			wantIDs: []string{"DET001", "DET006"},
		},
		{
			name:    "today with pinned clock",
			mutate:  func(o *Options) { o.DateMode = "today"; o.Now = "2024-05-07T08:00:00" },
			wantIDs: []string{"DET003", "DET004"},
		},
		{
			name: "custom range",
			mutate: func(o *Options) {
				o.DateMode = "custom"
				o.Start = "2024-05-05"
				o.End = "2024-05-06T23:59:59"
			},
			wantIDs: []string{"DET005", "DET006"},
		},
		{
			name:    "bounds ignored outside custom mode",
			mutate:  func(o *Options) { o.Start = "last tuesday"; o.End = "2030-01-01" },
			wantIDs: []string{"DET001", "DET002", "DET003", "DET004", "DET005", "DET006"},
		},
		{
			name:    "week is selectable but empty",
			mutate:  func(o *Options) { o.DateMode = "week" },
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := baseOptions(file)
			tt.mutate(opts)

			out := runJSON(t, opts)
			assert.Equal(t, tt.wantIDs, ids(&out))
			assert.Equal(t, 6, out.Total)
			assert.Equal(t, len(tt.wantIDs), out.Count)
			assert.Equal(t, []string{"Deer", "Fox", "Cat", "Rabbit", "Raccoon"}, out.AnimalClasses)
		})
	}
}

func TestRun_ClampsConfidence(t *testing.T) {
	t.Parallel()
	opts := baseOptions(writeDemoSnapshot(t))
	opts.Confidence = 250

	out := runJSON(t, opts)
	assert.Equal(t, 100, out.Criteria.ConfidenceThresholdPercent)
	assert.Empty(t, out.Detections)
}

func TestRun_InvalidOptions(t *testing.T) {
	t.Parallel()
	file := writeDemoSnapshot(t)

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"unknown date mode", func(o *Options) { o.DateMode = "fortnight" }},
		{"bad start", func(o *Options) { o.DateMode = "custom"; o.Start = "last tuesday" }},
		{"bad end", func(o *Options) { o.DateMode = "custom"; o.End = "2024-13-45" }},
		{"bad now", func(o *Options) { o.Now = "noon" }},
		{"bad format", func(o *Options) { o.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := baseOptions(file)
			tt.mutate(opts)

			var buf bytes.Buffer
			err := Run(context.Background(), utcSettings(), opts, &buf)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation), err.Error())
		})
	}
}

func TestRun_TableAndYAML(t *testing.T) {
	t.Parallel()
	file := writeDemoSnapshot(t)

	opts := baseOptions(file)
	opts.Format = FormatTable
	opts.Animal = "Fox"
	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), utcSettings(), opts, &buf))
	assert.Contains(t, buf.String(), "DET002")
	assert.Contains(t, buf.String(), "87%")
	assert.Contains(t, buf.String(), "1 of 6 detections")

	opts.Format = FormatYAML
	buf.Reset()
	require.NoError(t, Run(context.Background(), utcSettings(), opts, &buf))
	var out Output
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []string{"DET002"}, ids(&out))
}

func TestRun_FromStore(t *testing.T) {
	t.Parallel()

	settings := utcSettings()
	settings.Output.SQLite = conf.SQLiteSettings{Enabled: true, Path: filepath.Join(t.TempDir(), "wildcam.db")}

	store, err := datastore.New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	require.NoError(t, datastore.SeedDemoData(context.Background(), store))
	require.NoError(t, store.Close())

	opts := baseOptions("")
	opts.Confidence = 90

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), settings, opts, &buf))
	var out Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []string{"DET001", "DET004"}, ids(&out))
}

func TestCommand_DefaultThresholdFromSettings(t *testing.T) {
	t.Parallel()

	settings := utcSettings()
	settings.Engine.DefaultThreshold = 88
	cmd := Command(settings)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--file", writeDemoSnapshot(t), "--output", "json"})
	require.NoError(t, cmd.Execute())

	var out Output
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 88, out.Criteria.ConfidenceThresholdPercent)
	assert.Equal(t, []string{"DET001", "DET004", "DET006"}, ids(&out))
}
