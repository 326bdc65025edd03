package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/payment-service/internal/application"
	appReadiness "github.com/Zhima-Mochi/payment-service/internal/application/readiness"
	domainReadiness "github.com/Zhima-Mochi/payment-service/internal/domain/readiness"
	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observability/logctx"
	"github.com/Zhima-Mochi/payment-service/internal/observation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ReadinessChecker = application.UseCase[appReadiness.CheckInput, *domainReadiness.Report]

type Handler struct {
	readiness ReadinessChecker
	aspect    *observation.Aspect
	metrics   http.Handler
	log       observability.Logger
	reqs      observability.Counter   // http_requests_total{method,route,status}
	durations observability.Histogram // http_request_duration_seconds{method,route,status}
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	tracerName           = "payment-service.http"
)

// NewHandler serves the operational endpoints. metrics may be nil to disable /metrics.
func NewHandler(readiness ReadinessChecker, aspect *observation.Aspect, metrics http.Handler) *Handler {
	registry := aspect.Registry()
	return &Handler{
		readiness: readiness,
		aspect:    aspect,
		metrics:   metrics,
		log:       registry.Logger().With(observability.F("component", componentHTTPHandler)),
		reqs:      registry.Metrics().Counter(observability.MHTTPRequests),
		durations: registry.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → request logger → HTTP metrics → access log → observed handler
	h.muxHandle(mux, http.MethodGet, "/health", "http.health", http.HandlerFunc(h.handleHealth))
	h.muxHandle(mux, http.MethodGet, "/ready", "http.ready", http.HandlerFunc(h.handleReady))
	if h.metrics != nil {
		h.muxHandle(mux, http.MethodGet, "/metrics", "http.metrics", h.metrics)
	}

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route, observationName string, handler http.Handler) {
	observed := h.aspect.Handler(observation.Spec{
		Name:           observationName,
		ContextualName: method + " " + route,
		LowCardinality: []observability.Label{observability.L("http.route", route)},
	}, handler)

	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
		)(
			h.withHTTPMetrics(
				h.withAccessLog(observed),
			),
		),
	)

	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
			return
		}
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type targetResponse struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
}

type readinessResponse struct {
	Status    string           `json:"status"`
	CheckedAt time.Time        `json:"checked_at"`
	Targets   []targetResponse `json:"targets"`
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.readiness == nil {
		writeJSON(w, http.StatusOK, readinessResponse{Status: string(domainReadiness.StatusUp), Targets: []targetResponse{}})
		return
	}

	report, err := h.readiness.Execute(r.Context(), appReadiness.CheckInput{})
	if report == nil {
		msg := "readiness check failed"
		if err != nil {
			msg = err.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}

	resp := readinessResponse{
		Status:    string(report.Status),
		CheckedAt: report.CheckedAt,
		Targets:   make([]targetResponse, 0, len(report.Targets)),
	}
	for _, t := range report.Targets {
		resp.Targets = append(resp.Targets, targetResponse{
			Name:       t.Name,
			Status:     string(t.Status),
			StatusCode: t.StatusCode,
			Error:      t.Error,
			LatencyMS:  t.Latency.Milliseconds(),
		})
	}

	status := http.StatusOK
	if !report.Ready() || err != nil {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := r.Method + " " + route
		if route == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqs.Add(1, labels...)
		h.durations.Observe(time.Since(start).Seconds(), labels...)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(msg)})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
