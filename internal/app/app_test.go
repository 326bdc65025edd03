package app

import (
	"testing"

	"github.com/Zhima-Mochi/payment-service/internal/infrastructure/httpclient"
	infraobs "github.com/Zhima-Mochi/payment-service/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observability"
	"github.com/Zhima-Mochi/payment-service/internal/observation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestComposeBuildsBothHandles(t *testing.T) {
	reg := infraobs.New(nil, nil, nil, nil)

	c, err := Compose(reg)
	require.NoError(t, err)
	require.NotNil(t, c.HTTPClient)
	require.NotNil(t, c.Aspect)
	assert.Same(t, reg, c.Aspect.Registry())
}

func TestComposeTwiceGivesIndependentClients(t *testing.T) {
	reg := infraobs.New(nil, nil, nil, nil)

	c1, err := Compose(reg)
	require.NoError(t, err)
	c2, err := Compose(reg)
	require.NoError(t, err)

	assert.NotSame(t, c1.HTTPClient, c2.HTTPClient)
	assert.NotSame(t, c1.HTTPClient.HTTPClient().Transport, c2.HTTPClient.HTTPClient().Transport)
}

func TestComposeFailsWithoutRegistry(t *testing.T) {
	c, err := Compose(nil)

	assert.ErrorIs(t, err, observation.ErrNilRegistry)
	assert.Nil(t, c)
}

func TestModuleProvidesHandlesByType(t *testing.T) {
	reg := infraobs.New(nil, nil, nil, nil)

	var (
		client *httpclient.Client
		aspect *observation.Aspect
		again  *httpclient.Client
	)
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Provide(func() observability.Observability { return reg }),
		Module,
		fx.Populate(&client, &aspect),
		fx.Populate(&again),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, client)
	require.NotNil(t, aspect)
	assert.Same(t, reg, aspect.Registry())
	assert.Same(t, client, again, "the container hands out a single shared client")
}

func TestModuleFailsWithoutRegistry(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		Module,
		fx.Invoke(func(*observation.Aspect) {}),
	)

	err := app.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observability.Observability")
}

func TestModuleFailsWithNilRegistry(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Provide(func() observability.Observability { return nil }),
		Module,
		fx.Invoke(func(*observation.Aspect) {}),
	)

	err := app.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), observation.ErrNilRegistry.Error())
}

func TestModuleDoesNotRequireRegistryForClientOnly(t *testing.T) {
	var client *httpclient.Client
	app := fx.New(
		fx.NopLogger,
		Module,
		fx.Populate(&client),
	)

	require.NoError(t, app.Err())
	assert.NotNil(t, client)
}
