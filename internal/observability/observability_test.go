package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.RowsLoaded.WithLabelValues("inserted").Add(3)
	m.RecordsFetched.WithLabelValues("SSEN").Inc()
	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("inserted")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.RowsLoaded)+testutil.CollectAndCount(m.RecordsFetched))
}
