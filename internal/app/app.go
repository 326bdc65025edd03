// Package app is the composition root of the payment service's shared handles:
// the outbound HTTP client and the observation aspect.
package app

import (
	"fmt"

	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observation"
	"go.uber.org/fx"
)

// Components holds the process-lifetime handles handed to the rest of the service.
type Components struct {
	HTTPClient *httpclient.Client
	Aspect     *observation.Aspect
}

// Compose builds both handles once. It fails when registry is nil.
func Compose(registry observability.Observability) (*Components, error) {
	aspect, err := observation.NewAspect(registry)
	if err != nil {
		return nil, fmt.Errorf("app: compose: %w", err)
	}
	return &Components{
		HTTPClient: httpclient.New(),
		Aspect:     aspect,
	}, nil
}

// Module provides *httpclient.Client and *observation.Aspect to an fx container.
// The container must supply an observability.Observability; without one, the
// application fails to start with fx's missing-type error.
var Module = fx.Module("payment",
	fx.Provide(
		httpclient.New,
		observation.NewAspect,
	),
)
