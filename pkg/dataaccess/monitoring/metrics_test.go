package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// The metric names carry the service namespace so they cannot collide with
// another exporter on the same Prometheus instance.
func TestMetrics_FullyQualifiedNames(t *testing.T) {
	MongoLatency.WithLabelValues("ticket_dal", "save_ticket", "ticketbot", "tickets").Observe(0.1)
	require.Equal(t, 1, testutil.CollectAndCount(MongoLatency, "ticketbot_dataaccess_mongo_latency"))

	MongoTotalRequests.WithLabelValues("ticket_dal", "save_ticket", "ticketbot", "tickets").Inc()
	require.Equal(t, 1, testutil.CollectAndCount(MongoTotalRequests, "ticketbot_dataaccess_mongo_total_requests"))
}
