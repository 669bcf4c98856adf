package datastore

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

func newTestDatastoreMetrics() (*metrics.DatastoreMetrics, error) {
	return metrics.NewDatastoreMetrics(prometheus.NewRegistry())
}
