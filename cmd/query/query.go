// Package query implements the command that evaluates filter criteria against a detection snapshot.
package query

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/errors"
)

// Output formats
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Options are the command line selections of a query.
type Options struct {
	File       string // snapshot file, empty to read the configured store
	Confidence int
	Search     string
	Animal     string
	Camera     string
	DateMode   string
	Start      string
	End        string
	Now        string // overrides the clock for "today", ISO-8601
	Format     string
}

// Output is the machine-readable query result.
type Output struct {
	Criteria      detection.FilterCriteria   `json:"criteria" yaml:"-"`
	Total         int                        `json:"total" yaml:"total"`
	Count         int                        `json:"count" yaml:"count"`
	AnimalClasses []string                   `json:"animalClasses" yaml:"animalClasses"`
	CameraNames   []string                   `json:"cameraNames" yaml:"cameraNames"`
	Detections    []detection.DetectionEvent `json:"detections" yaml:"detections"`
}

// Command creates the query command.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter and sort a detection snapshot",
		Long: "Evaluate confidence, animal, camera, search and date filters against a snapshot file " +
			"or the configured store and print the matching detections newest first.",
		Example: "  wildcam query --file detections.yaml --animal Deer --confidence 90\n" +
			"  wildcam query --date-mode custom --start 2024-05-07 --end 2024-05-07T23:59:59",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("confidence") {
				opts.Confidence = settings.Engine.DefaultThreshold
			}
			return Run(cmd.Context(), settings, opts, cmd.OutOrStdout())
		},
	}

	setupFlags(cmd, opts)
	return cmd
}

// setupFlags configures flags specific to the query command.
func setupFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Snapshot file in YAML or JSON, - for stdin (default: configured store)")
	cmd.Flags().IntVar(&opts.Confidence, "confidence", detection.DefaultConfidenceThreshold, "Minimum confidence percent, clamped to 0-100")
	cmd.Flags().StringVarP(&opts.Search, "search", "q", "", "Case-insensitive substring of detection id, animal class or camera name")
	cmd.Flags().StringVar(&opts.Animal, "animal", detection.FilterAll, "Exact animal class or \"all\"")
	cmd.Flags().StringVar(&opts.Camera, "camera", detection.FilterAll, "Exact camera name or \"all\"")
	cmd.Flags().StringVar(&opts.DateMode, "date-mode", "all", "all, today, week, month or custom")
	cmd.Flags().StringVar(&opts.Start, "start", "", "Inclusive lower bound for custom date mode (ISO-8601)")
	cmd.Flags().StringVar(&opts.End, "end", "", "Inclusive upper bound for custom date mode (ISO-8601)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "Evaluate \"today\" as of this time (ISO-8601)")
	cmd.Flags().StringVarP(&opts.Format, "output", "o", FormatTable, "Output format: table, json or yaml")
}

// Run evaluates the query and writes the result to w.
func Run(ctx context.Context, settings *conf.Settings, opts *Options, w io.Writer) error {
	loc, err := settings.Engine.Location()
	if err != nil {
		return err
	}

	engineOpts := []detection.Option{detection.WithLocation(loc)}
	if opts.Now != "" {
		now, ok := detection.ParseTimestamp(opts.Now, loc)
		if !ok {
			return invalidFlag("now", opts.Now)
		}
		engineOpts = append(engineOpts, detection.WithClock(func() time.Time { return now }))
	}

	criteria, err := buildCriteria(opts, loc)
	if err != nil {
		return err
	}

	events, err := loadEvents(ctx, settings, opts.File)
	if err != nil {
		return err
	}

	view := detection.NewView(events, engineOpts...)
	view.SetCriteria(criteria)
	result := view.Result()

	out := Output{
		Criteria:      view.Criteria(),
		Total:         result.Total,
		Count:         result.Count(),
		AnimalClasses: result.AnimalClasses,
		CameraNames:   result.CameraNames,
		Detections:    result.Detections,
	}
	return write(w, opts.Format, &out)
}

// buildCriteria converts command line options into filter criteria.
func buildCriteria(opts *Options, loc *time.Location) (detection.FilterCriteria, error) {
	criteria := detection.DefaultCriteria()
	criteria.ConfidenceThresholdPercent = detection.ClampThreshold(opts.Confidence)
	criteria.SearchQuery = opts.Search
	if opts.Animal != "" {
		criteria.AnimalFilter = opts.Animal
	}
	if opts.Camera != "" {
		criteria.CameraFilter = opts.Camera
	}

	mode, err := detection.ParseDateFilterMode(opts.DateMode)
	if err != nil {
		return criteria, err
	}
	criteria.DateFilterMode = mode
	if mode != detection.DateFilterCustom {
		return criteria, nil
	}

	for _, bound := range []struct {
		flag  string
		value string
		dst   **time.Time
	}{
		{"start", opts.Start, &criteria.StartDate},
		{"end", opts.End, &criteria.EndDate},
	} {
		if bound.value == "" {
			continue
		}
		t, ok := detection.ParseTimestamp(bound.value, loc)
		if !ok {
			return criteria, invalidFlag(bound.flag, bound.value)
		}
		*bound.dst = &t
	}

	return criteria, nil
}

// loadEvents reads the snapshot from file, or from the configured store when file is empty.
func loadEvents(ctx context.Context, settings *conf.Settings, file string) ([]detection.DetectionEvent, error) {
	if file != "" {
		return datastore.ReadDetectionsFile(file)
	}

	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return store.Snapshot(ctx)
}

func write(w io.Writer, format string, out *Output) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		return writeTable(w, out)
	default:
		return invalidFlag("output", format)
	}
}

func writeTable(w io.Writer, out *Output) error {
	if _, err := fmt.Fprintf(w, "%-8s %-10s %5s  %-20s %s\n", "ID", "ANIMAL", "CONF", "TIMESTAMP", "CAMERA"); err != nil {
		return err
	}
	for i := range out.Detections {
		d := &out.Detections[i]
		if _, err := fmt.Fprintf(w, "%-8s %-10s %4.0f%%  %-20s %s\n",
			d.ID, d.AnimalClass, d.ConfidencePercent(), d.Timestamp, d.CameraName); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d of %d detections\n", out.Count, out.Total)
	return err
}

func invalidFlag(flag, value string) error {
	return errors.Newf("invalid --%s value %q", flag, value).
		Component("cli").
		Category(errors.CategoryValidation).
		Context("flag", flag).
		Build()
}
