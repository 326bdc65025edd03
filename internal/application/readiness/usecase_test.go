package readiness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/payment-service/internal/domain/readiness"
	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/httpclient"
	infraobs "github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/payment-service/internal/observation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAspect(t *testing.T) (*observation.Aspect, *prometheus.Registry) {
	t.Helper()
	prom := prometheus.NewRegistry()
	a, err := observation.NewAspect(infraobs.NewRegistry(nil, nil, prometrics.New(prom, "", "")))
	require.NoError(t, err)
	return a, prom
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type proberFunc func(*http.Request) (*http.Response, error)

func (f proberFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestExecuteWithoutTargetsIsUp(t *testing.T) {
	a, _ := newAspect(t)
	uc := NewCheckReadinessUseCase(nil, httpclient.New(), a)

	report, err := uc.Execute(context.Background(), CheckInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUp, report.Status)
	assert.Empty(t, report.Targets)
}

func TestExecuteAggregatesTargets(t *testing.T) {
	a, prom := newAspect(t)
	bank := statusServer(t, http.StatusOK)
	gateway := statusServer(t, http.StatusServiceUnavailable)

	uc := NewCheckReadinessUseCase([]domain.Target{
		{Name: "bank", URL: bank.URL},
		{Name: "gateway", URL: gateway.URL},
	}, httpclient.New(), a)

	report, err := uc.Execute(context.Background(), CheckInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDown, report.Status)
	require.Len(t, report.Targets, 2)

	assert.Equal(t, "bank", report.Targets[0].Name)
	assert.Equal(t, domain.StatusUp, report.Targets[0].Status)
	assert.Equal(t, http.StatusOK, report.Targets[0].StatusCode)
	assert.Empty(t, report.Targets[0].Error)

	assert.Equal(t, "gateway", report.Targets[1].Name)
	assert.Equal(t, domain.StatusDown, report.Targets[1].Status)
	assert.Equal(t, http.StatusServiceUnavailable, report.Targets[1].StatusCode)
	assert.Contains(t, report.Targets[1].Error, "503")

	expected := `
# HELP external_requests_total Total number of outbound calls to downstream peers.
# TYPE external_requests_total counter
external_requests_total{endpoint="readiness",outcome="error",peer="gateway"} 1
external_requests_total{endpoint="readiness",outcome="success",peer="bank"} 1
`
	require.NoError(t, testutil.GatherAndCompare(prom, strings.NewReader(expected), "external_requests_total"))

	expectedObserved := `
# HELP observed_calls_total Total number of observed invocations.
# TYPE observed_calls_total counter
observed_calls_total{error="errors.errorString",name="readiness.probe",outcome="error"} 1
observed_calls_total{error="none",name="readiness.check",outcome="success"} 1
observed_calls_total{error="none",name="readiness.probe",outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(prom, strings.NewReader(expectedObserved), "observed_calls_total"))
}

func TestExecuteReportsTransportErrors(t *testing.T) {
	a, _ := newAspect(t)
	refused := proberFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	uc := NewCheckReadinessUseCase([]domain.Target{{Name: "bank", URL: "http://bank.invalid/health"}}, refused, a)

	report, err := uc.Execute(context.Background(), CheckInput{})
	require.NoError(t, err)
	assert.False(t, report.Ready())
	assert.Equal(t, "connection refused", report.Targets[0].Error)
	assert.Zero(t, report.Targets[0].StatusCode)
}

func TestExecuteAppliesProbeTimeout(t *testing.T) {
	a, _ := newAspect(t)
	slow := proberFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	uc := NewCheckReadinessUseCase([]domain.Target{{Name: "bank", URL: "http://bank.invalid"}}, slow, a).
		WithTimeout(20 * time.Millisecond)

	report, err := uc.Execute(context.Background(), CheckInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDown, report.Status)
	assert.Contains(t, report.Targets[0].Error, context.DeadlineExceeded.Error())
}

func TestExecuteReturnsCancellation(t *testing.T) {
	a, _ := newAspect(t)
	srv := statusServer(t, http.StatusOK)
	uc := NewCheckReadinessUseCase([]domain.Target{{Name: "bank", URL: srv.URL}}, httpclient.New(), a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := uc.Execute(ctx, CheckInput{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, domain.StatusDown, report.Status)
}
