package observability

import (
	"strings"
	"testing"

	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToNops(t *testing.T) {
	reg := New(nil, nil, nil, nil)

	require.NotNil(t, reg.Tracer())
	require.NotNil(t, reg.Logger())
	assert.NotPanics(t, func() {
		reg.Metrics().Counter(observability.MObservedCalls).Add(1)
		reg.Metrics().Histogram(observability.MObservedDuration).Observe(1)
	})
}

func TestRegistryUnknownKeyIsNop(t *testing.T) {
	reg := NewRegistry(nil, nil, prometrics.New(prometheus.NewRegistry(), "", ""))

	assert.Equal(t, observability.NopCounter(), reg.Metrics().Counter("nope_total"))
	assert.Equal(t, observability.NopHistogram(), reg.Metrics().Histogram("nope_seconds"))
}

func TestNewRegistryRegistersInstruments(t *testing.T) {
	prom := prometheus.NewRegistry()
	reg := NewRegistry(nil, nil, prometrics.New(prom, "", ""))

	reg.Metrics().Counter(observability.MExternalRequests).Add(1,
		observability.L("peer", "bank"),
		observability.L("endpoint", "readiness"),
		observability.L("outcome", "success"),
	)

	expected := `
# HELP external_requests_total Total number of outbound calls to downstream peers.
# TYPE external_requests_total counter
external_requests_total{endpoint="readiness",outcome="success",peer="bank"} 1
`
	require.NoError(t, testutil.GatherAndCompare(prom, strings.NewReader(expected), "external_requests_total"))
}
