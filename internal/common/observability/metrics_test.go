package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordJob(t *testing.T) {
	reader := metric.NewManualReader()
	obs := NewWithReader(reader, "admission-manager")
	defer obs.Shutdown()

	obs.RecordJob(context.Background(), "forward-application", "completed", 120*time.Millisecond)
	obs.RecordJob(context.Background(), "forward-application", "INVALID_TRANSITION", 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "jobs.processed" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			assert.Len(t, sum.DataPoints, 2)
		}
	}
	assert.True(t, names["jobs.processed"])
	assert.True(t, names["jobs.duration"])
}

func TestRecordJob_NilSafe(t *testing.T) {
	var obs *Observability
	obs.RecordJob(context.Background(), "list-audit", "completed", time.Millisecond)
	obs.Shutdown()
}
