package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/payment-service/internal/app"
	appReadiness "github.com/Zhima-Mochi/payment-service/internal/application/readiness"
	"github.com/Zhima-Mochi/payment-service/internal/config"
	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/httpclient"
	infraobs "github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observation"
	"github.com/Zhima-Mochi/payment-service/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/payment-service/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	serviceVersion = "1.0.0"
	startTimeout   = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env, cfg.LogFile)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	fxApp := fx.New(
		fx.WithLogger(func() fxevent.Logger { return &fxevent.ZapLogger{Logger: systemLogger} }),
		fx.Supply(cfg, baseLogger),
		fx.Provide(
			newTracerProvider,
			newPrometheusRegistry,
			newObservability,
		),
		app.Module,
		fx.Provide(
			newReadiness,
			newHandler,
			newServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startTimeout)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		systemLogger.Error("app_start_failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := fxApp.Stop(shutdownCtx); err != nil {
		systemLogger.Error("app_stop_error", zap.Error(err))
	}
}

func newTracerProvider(lc fx.Lifecycle, cfg config.Config) (*sdktrace.TracerProvider, error) {
	tp, err := oteltrace.NewProvider(context.Background(), oteltrace.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRatio:    cfg.SampleRatio,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	return tp, nil
}

func newPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newObservability is the observation registry the aspect wraps.
func newObservability(cfg config.Config, base *zap.Logger, tp *sdktrace.TracerProvider, reg *prometheus.Registry) observability.Observability {
	return infraobs.NewRegistry(
		oteltrace.NewWithProvider(tp, cfg.ServiceName),
		zaplogger.New(base),
		prometrics.New(reg, cfg.MetricsNamespace, ""),
	)
}

func newReadiness(cfg config.Config, client *httpclient.Client, aspect *observation.Aspect) httppresentation.ReadinessChecker {
	return appReadiness.NewCheckReadinessUseCase(cfg.ReadinessTargets, client, aspect)
}

func newHandler(checker httppresentation.ReadinessChecker, aspect *observation.Aspect, reg *prometheus.Registry) *httppresentation.Handler {
	return httppresentation.NewHandler(checker, aspect, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
}

func newServer(lc fx.Lifecycle, cfg config.Config, handler *httppresentation.Handler, base *zap.Logger) *http.Server {
	logger := logging.WithTrace(base, logging.SystemTraceID, logging.SystemSpanID)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("http_server_start", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http_server_error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("http_server_shutdown_error", zap.Error(err))
				return err
			}
			logger.Info("http_server_stopped")
			return nil
		},
	})
	return server
}
