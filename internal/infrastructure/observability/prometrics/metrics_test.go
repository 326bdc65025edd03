package prometrics

import (
	"strings"
	"testing"

	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	c1 := r.Counter("external_requests_total", "Outbound calls.", "peer", "outcome")
	c2 := r.Counter("external_requests_total", "Outbound calls.", "peer", "outcome")

	c1.Add(1, observability.L("peer", "bank"), observability.L("outcome", "success"))
	c2.Bind(observability.L("peer", "bank"), observability.L("outcome", "success")).Add(2)

	expected := `
# HELP external_requests_total Outbound calls.
# TYPE external_requests_total counter
external_requests_total{outcome="success",peer="bank"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "external_requests_total"))
}

func TestHistogramHonoursNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "payment", "")

	h := r.Histogram("observed_duration_seconds", "Observed latency.", []float64{0.1, 1}, "name")
	h.Observe(0.05, observability.L("name", "readiness.check"))
	h.Bind(observability.L("name", "readiness.check")).Observe(0.5)

	count, err := testutil.GatherAndCount(reg, "payment_observed_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
