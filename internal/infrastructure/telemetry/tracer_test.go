package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/harvestpay/backend/internal/infrastructure/telemetry"
)

func newDisabledProvider(t *testing.T, ratio float64) *telemetry.TracerProvider {
	t.Helper()

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     ratio,
		ServiceName:       "harvestpay-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)
	return tp
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp := newDisabledProvider(t, 1.0)

	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	// needs a listening collector, only runs outside -short
	if testing.Short() {
		t.Skip("requires an OTLP collector")
	}

	ctx := context.Background()
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "harvestpay-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("posting").Start(ctx, "post_batch")
	span.End()

	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_SamplingRatios(t *testing.T) {
	// sampler construction must not fail for any ratio
	for _, ratio := range []float64{0.0, 0.5, 1.0} {
		tp := newDisabledProvider(t, ratio)
		assert.False(t, tp.IsEnabled())
		assert.NoError(t, tp.Shutdown(context.Background()))
	}
}

func TestTracerProvider_TracerWhenDisabled(t *testing.T) {
	tp := newDisabledProvider(t, 1.0)

	tracer := tp.Tracer("posting")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "post_batch")
	span.End()
}

func TestTracerProvider_ForceFlushDisabled(t *testing.T) {
	tp := newDisabledProvider(t, 1.0)
	assert.NoError(t, tp.ForceFlush(context.Background()))
}

func TestTracerProvider_ShutdownWithCancelledContext(t *testing.T) {
	tp := newDisabledProvider(t, 1.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, tp.Shutdown(ctx))
}

func TestConfig_ZeroValue(t *testing.T) {
	var cfg telemetry.Config

	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.CollectorEndpoint)
	assert.Zero(t, cfg.SamplingRatio)
	assert.Empty(t, cfg.ServiceName)
}

func TestNewTracerProvider_UnreachableEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("may attempt a network dial")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "invalid-host:99999",
		SamplingRatio:     1.0,
		ServiceName:       "harvestpay-test",
		Insecure:          true,
	}, zaptest.NewLogger(t, zaptest.Level(zap.ErrorLevel)))
	if err != nil {
		// the gRPC exporter dials lazily, so an error here is also fine
		return
	}

	_ = tp.Shutdown(context.Background())
}
