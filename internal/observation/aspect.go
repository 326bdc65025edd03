// Package observation instruments operations with timing, tracing, metrics and
// a scoped logger. Operations are decorated explicitly at their call site or,
// for request handlers, through Handler.
package observation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultName names observations whose Spec leaves Name empty.
const DefaultName = "method.observed"

const (
	componentAspect = "observed_aspect"

	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomePanic   = "panic"

	errorNone = "none"
)

var (
	// ErrNilRegistry is returned when the aspect is composed without a registry.
	ErrNilRegistry = errors.New("observation: registry is required")
	// ErrNilOperation is returned when there is nothing to observe.
	ErrNilOperation = errors.New("observation: operation is required")
)

// Spec describes one observed operation.
type Spec struct {
	// Name is the metric-facing name, e.g. "readiness.check".
	Name string
	// ContextualName names the span. Defaults to Name.
	ContextualName string
	// LowCardinality tags are attached to the span and the completion log.
	LowCardinality []observability.Label
}

func (s Spec) name() string {
	if s.Name == "" {
		return DefaultName
	}
	return s.Name
}

func (s Spec) contextualName() string {
	if s.ContextualName == "" {
		return s.name()
	}
	return s.ContextualName
}

// Aspect is immutable after construction and safe for concurrent use.
type Aspect struct {
	registry observability.Observability
	tracer   observability.Tracer
	log      observability.Logger
	calls    observability.Counter   // observed_calls_total{name,outcome,error}
	duration observability.Histogram // observed_duration_seconds{name}
}

// NewAspect wraps registry. A nil registry is a composition error: no aspect is returned.
// A typed nil registry whose accessors panic is reported the same way.
func NewAspect(registry observability.Observability) (a *Aspect, err error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, ErrNilRegistry
		}
	}()

	tracer := registry.Tracer()
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	logger := registry.Logger()
	if logger == nil {
		logger = observability.NopLogger()
	}
	metrics := registry.Metrics()
	if metrics == nil {
		metrics = observability.NopMetrics()
	}

	return &Aspect{
		registry: registry,
		tracer:   tracer,
		log:      logger.With(observability.F("component", componentAspect)),
		calls:    metrics.Counter(observability.MObservedCalls),
		duration: metrics.Histogram(observability.MObservedDuration),
	}, nil
}

// Registry returns the registry the aspect was built with.
func (a *Aspect) Registry() observability.Observability { return a.registry }

// Observe runs fn inside an observation and returns its error unchanged.
// A panic in fn is recorded and re-raised.
func (a *Aspect) Observe(ctx context.Context, spec Spec, fn func(context.Context) error) (err error) {
	if fn == nil {
		return ErrNilOperation
	}
	if ctx == nil {
		ctx = context.Background()
	}

	obs := a.start(ctx, spec)
	defer func() {
		if r := recover(); r != nil {
			obs.stop(outcomePanic, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err = fn(obs.ctx)
	if err != nil {
		obs.stop(outcomeError, err)
		return err
	}
	obs.stop(outcomeSuccess, nil)
	return nil
}

// Wrap returns fn decorated with the observation described by spec.
func (a *Aspect) Wrap(spec Spec, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return a.Observe(ctx, spec, fn)
	}
}

// Call observes fn and passes its result through.
func Call[T any](ctx context.Context, a *Aspect, spec Spec, fn func(context.Context) (T, error)) (T, error) {
	if fn == nil {
		var zero T
		return zero, ErrNilOperation
	}
	var out T
	err := a.Observe(ctx, spec, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

type observation struct {
	a      *Aspect
	spec   Spec
	name   string
	ctx    context.Context
	span   trace.Span
	logger observability.Logger
	start  time.Time
}

func (a *Aspect) start(ctx context.Context, spec Spec) *observation {
	name := spec.name()

	attrs := make([]attribute.KeyValue, 0, len(spec.LowCardinality)+1)
	attrs = append(attrs, attribute.String("observation.name", name))
	for _, l := range spec.LowCardinality {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	ctx, span := a.tracer.Start(ctx, spec.contextualName(), attrs...)

	fields := make([]observability.Field, 0, len(spec.LowCardinality)+3)
	fields = append(fields, observability.F("observation", name))
	for _, l := range spec.LowCardinality {
		fields = append(fields, observability.F(l.Key, l.Value))
	}
	fields = append(fields, logctx.TraceFields(ctx)...)
	logger := logctx.FromOr(ctx, a.log).With(fields...)

	return &observation{
		a:      a,
		spec:   spec,
		name:   name,
		ctx:    logctx.With(ctx, logger),
		span:   span,
		logger: logger,
		start:  time.Now(),
	}
}

func (o *observation) stop(outcome string, err error) {
	latency := time.Since(o.start).Seconds()
	errLabel := errorNone
	if err != nil {
		errLabel = errorKind(err)
	}

	if o.span != nil {
		if err != nil {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, errLabel)
		} else {
			o.span.SetStatus(codes.Ok, "OK")
		}
		o.span.End()
	}

	o.a.calls.Add(1,
		observability.L("name", o.name),
		observability.L("outcome", outcome),
		observability.L("error", errLabel),
	)
	o.a.duration.Observe(latency, observability.L("name", o.name))

	fields := []observability.Field{
		observability.F("contextual_name", o.spec.contextualName()),
		observability.F("outcome", outcome),
		observability.F("latency_seconds", latency),
	}
	if err != nil {
		fields = append(fields,
			observability.F("error_kind", errLabel),
			observability.F("error", err.Error()),
		)
	}
	o.logger.Info("observation_done", fields...)
}

// ErrorKinder lets an error choose its own low-cardinality metric label.
type ErrorKinder interface {
	ErrorKind() string
}

// errorKind classifies err for the "error" label: context errors by name, errors
// implementing ErrorKinder by their kind, anything else by its Go type.
func errorKind(err error) string {
	var kinder ErrorKinder
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.As(err, &kinder):
		return kinder.ErrorKind()
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	}
}
