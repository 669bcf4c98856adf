// Package serve implements the command that runs the detection HTTP API.
package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wildcam-go/wildcam/internal/api"
	"github.com/wildcam-go/wildcam/internal/buildinfo"
	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/httpserver"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/mqtt"
	"github.com/wildcam-go/wildcam/internal/observability"
	"github.com/wildcam-go/wildcam/internal/telemetry"
)

// Command creates the serve command.
func Command(settings *conf.Settings, bi buildinfo.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the detection HTTP API",
		Long:  "Open the detection store and serve the query, facet and feedback API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, bi)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err) // flag names are static
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("host", "", "Interface to listen on")
	cmd.Flags().String("port", "", "Port to listen on")
	cmd.Flags().Bool("seed-demo", false, "Insert the demo detections when the store is empty")

	bindings := map[string]string{
		"webserver.host": "host",
		"webserver.port": "port",
		"seed.demo":      "seed-demo",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run wires the store, metrics and HTTP server and serves until ctx ends.
func Run(ctx context.Context, settings *conf.Settings, bi buildinfo.BuildInfo) error {
	log := logger.Global().Module("main")

	if err := telemetry.InitSentry(settings, bi, nil); err != nil {
		// Error reporting is optional
		log.Warn("Sentry initialization failed", logger.Error(err))
	}
	defer telemetry.Flush(telemetry.DefaultFlushTimeout)

	m, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close detection store", logger.Error(err))
		}
	}()
	store.SetMetrics(m.Datastore)

	serverOpts := []api.ServerOption{
		api.WithDataStore(store),
		api.WithMetrics(m),
		api.WithBuildInfo(bi),
	}

	if settings.MQTT.Enabled {
		client, publisher, err := startMQTT(ctx, settings, store, m)
		if err != nil {
			return err
		}
		defer client.Disconnect()
		if publisher != nil {
			serverOpts = append(serverOpts, api.WithFeedbackNotifier(publisher))
		}
	}

	var server httpserver.Server
	server, err = api.New(settings, serverOpts...)
	if err != nil {
		return err
	}

	log.Info("WildCam starting",
		logger.String("version", bi.GetVersion()),
		logger.String("address", settings.WebServer.Address()))
	return server.StartWithGracefulShutdown(ctx)
}

// startMQTT connects to the broker, subscribes the detection ingestor and
// returns the feedback publisher when a feedback topic is configured.
func startMQTT(ctx context.Context, settings *conf.Settings, store datastore.Interface, m *observability.Metrics) (mqtt.Client, *mqtt.FeedbackPublisher, error) {
	client, err := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT), m.MQTT)
	if err != nil {
		return nil, nil, err
	}

	ingestor := mqtt.NewIngestor(client, store, settings.MQTT.Topic, m.MQTT)
	if err := ingestor.Start(ctx); err != nil {
		client.Disconnect()
		return nil, nil, err
	}
	if err := client.Connect(ctx); err != nil {
		client.Disconnect()
		return nil, nil, err
	}

	var publisher *mqtt.FeedbackPublisher
	if settings.MQTT.FeedbackTopic != "" {
		publisher = mqtt.NewFeedbackPublisher(client, settings.MQTT.FeedbackTopic)
	}
	return client, publisher, nil
}

// openStore opens the configured store and seeds it when requested and empty.
func openStore(ctx context.Context, settings *conf.Settings) (datastore.Interface, error) {
	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}

	if settings.Seed.Demo {
		events, err := store.Snapshot(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if len(events) == 0 {
			if err := datastore.SeedDemoData(ctx, store); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
	}

	return store, nil
}
