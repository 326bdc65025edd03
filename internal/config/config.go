// Package config loads process settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Zhima-Mochi/payment-service/internal/domain/readiness"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	keyServiceName      = "SERVICE_NAME"
	keyEnv              = "ENV"
	keyHTTPAddr         = "HTTP_ADDR"
	keyLogFile          = "LOG_FILE"
	keyMetricsNamespace = "METRICS_NAMESPACE"
	keyOTLPEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	keyOTLPInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"
	keySampleRatio      = "OTEL_TRACES_SAMPLER_RATIO"
	keyReadiness        = "READINESS_TARGETS"
	keyShutdownTimeout  = "SHUTDOWN_TIMEOUT"
)

type Config struct {
	ServiceName      string
	Env              string
	HTTPAddr         string
	LogFile          string
	MetricsNamespace string

	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64

	ReadinessTargets []readiness.Target
	ShutdownTimeout  time.Duration
}

// Load reads the given env files (".env" when none is given, skipped when missing)
// and then resolves the configuration from the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper resolves the configuration from v, applying defaults for unset keys.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	targets, err := ParseTargets(v.GetString(keyReadiness))
	if err != nil {
		return Config{}, err
	}

	insecure, err := cast.ToBoolE(v.Get(keyOTLPInsecure))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", keyOTLPInsecure, err)
	}
	ratio, err := cast.ToFloat64E(v.Get(keySampleRatio))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", keySampleRatio, err)
	}
	shutdown, err := cast.ToDurationE(v.Get(keyShutdownTimeout))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", keyShutdownTimeout, err)
	}

	cfg := Config{
		ServiceName:      v.GetString(keyServiceName),
		Env:              v.GetString(keyEnv),
		HTTPAddr:         v.GetString(keyHTTPAddr),
		LogFile:          v.GetString(keyLogFile),
		MetricsNamespace: v.GetString(keyMetricsNamespace),
		OTLPEndpoint:     v.GetString(keyOTLPEndpoint),
		OTLPInsecure:     insecure,
		SampleRatio:      ratio,
		ReadinessTargets: targets,
		ShutdownTimeout:  shutdown,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyServiceName, "payment-service")
	v.SetDefault(keyEnv, "dev")
	v.SetDefault(keyHTTPAddr, ":8080")
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyMetricsNamespace, "")
	v.SetDefault(keyOTLPEndpoint, "")
	v.SetDefault(keyOTLPInsecure, true)
	v.SetDefault(keySampleRatio, 1.0)
	v.SetDefault(keyReadiness, "")
	v.SetDefault(keyShutdownTimeout, 10*time.Second)
}

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("config: SERVICE_NAME must not be empty")
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("config: %s must be within [0,1], got %v", keySampleRatio, c.SampleRatio)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", keyShutdownTimeout, c.ShutdownTimeout)
	}
	return nil
}

// ParseTargets parses a comma separated "name=url" list.
func ParseTargets(raw string) ([]readiness.Target, error) {
	var targets []readiness.Target
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rawURL, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("config: %s entry %q: want name=url", keyReadiness, part)
		}
		t := readiness.Target{Name: strings.TrimSpace(name), URL: strings.TrimSpace(rawURL)}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s entry %q: %w", keyReadiness, part, err)
		}
		targets = append(targets, t)
	}
	return targets, nil
}
