package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"

	"github.com/hyperledger-labs/yui-wasm-relayer/log"
)

const (
	namespaceRoot = "relayer"
)

var (
	ProcessedBlockHeightGauge *Int64SyncGauge
	ChainHealthyGauge         *Int64SyncGauge
	SupportingHeadersHist     api.Int64Histogram
	VerifyFailuresCounter     api.Int64Counter
	MonitorBatchesCounter     api.Int64Counter

	meter = otel.Meter(name)
)

func InitializeMetrics() error {
	var err error

	// create the instrument "relayer.processed_block_height"
	name := fmt.Sprintf("%s.processed_block_height", namespaceRoot)
	if ProcessedBlockHeightGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("latest height published by the event monitor"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.chain.healthy"
	name = fmt.Sprintf("%s.chain.healthy", namespaceRoot)
	if ChainHealthyGauge, err = NewInt64SyncGauge(
		meter,
		name,
		api.WithUnit("1"),
		api.WithDescription("1 if the last health check of the chain succeeded, 0 otherwise"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.light.supporting_headers"
	name = fmt.Sprintf("%s.light.supporting_headers", namespaceRoot)
	if SupportingHeadersHist, err = meter.Int64Histogram(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of supporting headers fetched per verification"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.light.verify_failures"
	name = fmt.Sprintf("%s.light.verify_failures", namespaceRoot)
	if VerifyFailuresCounter, err = meter.Int64Counter(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of failed verifications"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	// create the instrument "relayer.monitor.batches"
	name = fmt.Sprintf("%s.monitor.batches", namespaceRoot)
	if MonitorBatchesCounter, err = meter.Int64Counter(
		name,
		api.WithUnit("1"),
		api.WithDescription("number of event batches published by the event monitor"),
	); err != nil {
		return fmt.Errorf("failed to create the instrument %s: %v", name, err)
	}

	return nil
}

// The Record helpers below are no-ops until InitializeMetrics has run.

func RecordSupportingHeaders(ctx context.Context, chainID string, n int) {
	if SupportingHeadersHist == nil {
		return
	}
	SupportingHeadersHist.Record(ctx, int64(n), api.WithAttributes(attribute.String("chain_id", chainID)))
}

func RecordVerifyFailure(ctx context.Context, chainID, kind string) {
	if VerifyFailuresCounter == nil {
		return
	}
	VerifyFailuresCounter.Add(ctx, 1, api.WithAttributes(
		attribute.String("chain_id", chainID),
		attribute.String("failure_kind", kind),
	))
}

func RecordMonitorBatch(ctx context.Context, chainID string, height uint64) {
	if MonitorBatchesCounter != nil {
		MonitorBatchesCounter.Add(ctx, 1, api.WithAttributes(attribute.String("chain_id", chainID)))
	}
	if ProcessedBlockHeightGauge != nil {
		ProcessedBlockHeightGauge.Set(int64(height), attribute.String("chain_id", chainID))
	}
}

func RecordHealth(chainID string, healthy bool) {
	if ChainHealthyGauge == nil {
		return
	}
	var v int64
	if healthy {
		v = 1
	}
	ChainHealthyGauge.Set(v, attribute.String("chain_id", chainID))
}

// ForgetChain stops reporting the gauges of a chain whose endpoint was shut down.
func ForgetChain(chainID string) {
	attr := attribute.String("chain_id", chainID)
	if ChainHealthyGauge != nil {
		ChainHealthyGauge.Delete(attr)
	}
	if ProcessedBlockHeightGauge != nil {
		ProcessedBlockHeightGauge.Delete(attr)
	}
}

func NewPrometheusExporter(addr string) (*prometheus.Exporter, error) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", otelhttp.NewHandler(promhttp.Handler(), "metrics"))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger := log.GetLogger().WithModule("telemetry")
			logger.Fatal("Prometheus exporter server failed", err)
		}
	}()

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create the Prometheus Exporter: %v", err)
	}

	return exporter, nil
}
