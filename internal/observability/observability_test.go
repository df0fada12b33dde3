package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davidbz/tollbooth/internal/observability"
)

func TestFromContext_AddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	observability.SetLogger(zap.New(core))
	t.Cleanup(func() { observability.SetLogger(zap.NewNop()) })

	ctx := observability.WithTraceID(context.Background(), "trace-1")
	ctx = observability.WithRequestID(ctx, "req-1")
	ctx = observability.WithServiceID(ctx, "llm")
	ctx = observability.WithAssetID(ctx, "0x3::gas_coin::RGas")

	observability.FromContext(ctx).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "trace-1", fields["trace_id"])
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "llm", fields["service_id"])
	require.Equal(t, "0x3::gas_coin::RGas", fields["asset_id"])
	require.NotContains(t, fields, "span_id")
}

func TestGenerateIDs(t *testing.T) {
	require.NotEqual(t, observability.GenerateTraceID(), observability.GenerateTraceID())
	require.NotEqual(t, observability.GenerateRequestID(), observability.GenerateRequestID())
	require.NotEmpty(t, observability.GenerateSpanID())
}

func TestEventBus_Publish(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bus := observability.NewEventBus(zap.New(core))

	ctx := observability.WithRequestID(context.Background(), "req-9")
	bus.Publish(ctx, "billing.cost_calculated", map[string]interface{}{"rule_id": "chat"})

	entries := logs.FilterMessage("audit event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "billing.cost_calculated", fields["event"])
	require.Equal(t, "chat", fields["rule_id"])
	require.Equal(t, "req-9", fields["request_id"])

	var nilBus *observability.EventBus
	require.NotPanics(t, func() { nilBus.Publish(ctx, "x", nil) })
}

func TestMetrics(t *testing.T) {
	t.Run("should record into its own registry", func(t *testing.T) {
		m := observability.NewMetrics()
		m.RecordCostCalculation("llm", "PerToken", "success", time.Millisecond)
		m.RecordCostCalculation("llm", "PerToken", "success", time.Millisecond)
		m.RecordConfigInvalidation("")

		families, err := m.Registry().Gather()
		require.NoError(t, err)

		byName := map[string]float64{}
		labels := map[string]string{}
		for _, f := range families {
			for _, metric := range f.GetMetric() {
				if c := metric.GetCounter(); c != nil {
					byName[f.GetName()] += c.GetValue()
				}
				for _, l := range metric.GetLabel() {
					labels[f.GetName()+"/"+l.GetName()] = l.GetValue()
				}
			}
		}

		require.InDelta(t, 2, byName["billing_cost_calculations_total"], 0)
		require.InDelta(t, 1, byName["billing_config_invalidations_total"], 0)
		require.Equal(t, "*", labels["billing_config_invalidations_total/service_id"])
	})

	t.Run("should tolerate a nil receiver", func(t *testing.T) {
		var m *observability.Metrics
		require.NotPanics(t, func() {
			m.RecordCostCalculation("s", "t", "o", 0)
			m.RecordRateFetch("a", "o", 0)
			m.RecordRateCacheHit("a")
			m.RecordStaleFallback("a")
			m.RecordConfigLoad("s", "o")
			m.RecordConfigInvalidation("s")
		})
	})
}
