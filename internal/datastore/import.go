package datastore

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wildcam-go/wildcam/internal/alerts"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
)

// Snapshot is the content of a snapshot file.
type Snapshot struct {
	Detections []detection.DetectionEvent `yaml:"detections"`
	Alerts     []alerts.Log               `yaml:"alerts"`
}

// ReadSnapshot decodes a snapshot in YAML or JSON. The document is either a list
// of detections or a mapping with "detections" and optional "alerts" lists.
// The returned slices are never nil.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("operation", "read_snapshot").
			Build()
	}

	snap := &Snapshot{}
	data = bytes.TrimSpace(data)
	if len(data) > 0 {
		if data[0] == '[' || data[0] == '-' {
			err = yaml.Unmarshal(data, &snap.Detections)
		} else {
			err = yaml.Unmarshal(data, snap)
		}
		if err != nil {
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileParsing).
				Context("operation", "parse_snapshot").
				Build()
		}
	}

	if snap.Detections == nil {
		snap.Detections = []detection.DetectionEvent{}
	}
	if snap.Alerts == nil {
		snap.Alerts = []alerts.Log{}
	}
	return snap, nil
}

// ReadSnapshotFile reads a snapshot file; "-" reads standard input.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	if path == "-" {
		return ReadSnapshot(os.Stdin)
	}

	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	return ReadSnapshot(f)
}

// ReadDetections decodes the detections of a snapshot.
func ReadDetections(r io.Reader) ([]detection.DetectionEvent, error) {
	snap, err := ReadSnapshot(r)
	if err != nil {
		return nil, err
	}
	return snap.Detections, nil
}

// ReadDetectionsFile reads the detections of a snapshot file; "-" reads standard input.
func ReadDetectionsFile(path string) ([]detection.DetectionEvent, error) {
	snap, err := ReadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	return snap.Detections, nil
}
