package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/payment-service/internal/domain/readiness"
	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observation"
)

const (
	useCaseCheck   = "readiness.check"
	useCaseProbe   = "readiness.probe"
	probeEndpoint  = "readiness"
	spanPrefix     = "UC."
	defaultTimeout = 2 * time.Second
	maxDrain       = 4 << 10
)

type CheckInput struct{}

// CheckReadinessUseCase probes every configured downstream target through the
// shared HTTP client, each probe observed by the aspect.
type CheckReadinessUseCase struct {
	targets []domain.Target
	prober  Prober
	aspect  *observation.Aspect
	timeout time.Duration
	now     func() time.Time

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewCheckReadinessUseCase(targets []domain.Target, prober Prober, aspect *observation.Aspect) *CheckReadinessUseCase {
	metrics := aspect.Registry().Metrics()
	return &CheckReadinessUseCase{
		targets:      append([]domain.Target(nil), targets...),
		prober:       prober,
		aspect:       aspect,
		timeout:      defaultTimeout,
		now:          time.Now,
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// WithTimeout overrides the per-target probe timeout.
func (uc *CheckReadinessUseCase) WithTimeout(d time.Duration) *CheckReadinessUseCase {
	if d > 0 {
		uc.timeout = d
	}
	return uc
}

// Execute probes all targets concurrently. Target failures are reported in the
// report, not as an error; only cancellation of ctx is returned.
func (uc *CheckReadinessUseCase) Execute(ctx context.Context, _ CheckInput) (*domain.Report, error) {
	return observation.Call(ctx, uc.aspect, observation.Spec{
		Name:           useCaseCheck,
		ContextualName: spanPrefix + "CheckReadiness",
	}, func(ctx context.Context) (*domain.Report, error) {
		results := make([]domain.TargetResult, len(uc.targets))
		var wg sync.WaitGroup
		for i, t := range uc.targets {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = uc.probe(ctx, t)
			}()
		}
		wg.Wait()

		report := domain.NewReport(results, uc.now())
		if err := ctx.Err(); err != nil {
			return report, err
		}
		return report, nil
	})
}

func (uc *CheckReadinessUseCase) probe(ctx context.Context, t domain.Target) domain.TargetResult {
	res := domain.TargetResult{Name: t.Name, Status: domain.StatusDown}
	start := time.Now()

	err := uc.aspect.Observe(ctx, observation.Spec{
		Name:           useCaseProbe,
		ContextualName: spanPrefix + "Probe " + t.Name,
		LowCardinality: []observability.Label{observability.L("peer", t.Name)},
	}, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, uc.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
		if err != nil {
			return err
		}
		resp, err := uc.prober.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

		res.StatusCode = resp.StatusCode
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("readiness: %s answered %d", t.Name, resp.StatusCode)
		}
		return nil
	})
	res.Latency = time.Since(start)

	outcome := "success"
	switch {
	case err == nil:
		res.Status = domain.StatusUp
	case ctx.Err() != nil:
		outcome = "canceled"
		res.Error = err.Error()
	default:
		outcome = "error"
		res.Error = err.Error()
	}

	uc.extCounter.Add(1,
		observability.L("peer", t.Name),
		observability.L("endpoint", probeEndpoint),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(res.Latency.Seconds(),
		observability.L("peer", t.Name),
		observability.L("endpoint", probeEndpoint),
	)
	return res
}
