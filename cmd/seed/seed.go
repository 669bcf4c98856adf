// Package seed implements the command that loads detections into the configured store.
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
)

// Command creates the seed command.
func Command(settings *conf.Settings) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load detections and alert history into the detection store",
		Long: "Upsert detections and alert log entries from a YAML or JSON snapshot file into the configured store. " +
			"Without --file the six demo detections and five demo alerts are loaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, file, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Snapshot file in YAML or JSON, - for stdin")
	return cmd
}

// Run upserts the snapshot of file, or the demo data, and reports the store size.
func Run(ctx context.Context, settings *conf.Settings, file string, w io.Writer) error {
	snap := &datastore.Snapshot{
		Detections: datastore.DemoDetections(),
		Alerts:     datastore.DemoAlertLogs(),
	}
	if file != "" {
		var err error
		if snap, err = datastore.ReadSnapshotFile(file); err != nil {
			return err
		}
	}

	store, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveDetections(ctx, snap.Detections); err != nil {
		return err
	}
	if err := store.SaveAlertLogs(ctx, snap.Alerts); err != nil {
		return err
	}

	events, err := store.Snapshot(ctx)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "upserted %d detections, store now holds %d\n", len(snap.Detections), len(events)); err != nil {
		return err
	}
	if len(snap.Alerts) == 0 {
		return nil
	}

	logs, err := store.ListAlertLogs(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "upserted %d alert logs, store now holds %d\n", len(snap.Alerts), len(logs))
	return err
}
