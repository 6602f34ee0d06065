package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

const (
	name        = "github.com/hyperledger-labs/yui-wasm-relayer"
	serviceName = "yui-wasm-relayer"

	propagatorsKey     = "OTEL_PROPAGATORS"
	defaultPropagators = "tracecontext,baggage"

	// cf. https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/#exporter-selection
	tracesExporterKey  = "OTEL_TRACES_EXPORTER"
	metricsExporterKey = "OTEL_METRICS_EXPORTER"
	logsExporterKey    = "OTEL_LOGS_EXPORTER"
	defaultExporter    = "otlp"

	prometheusHostKey     = "OTEL_EXPORTER_PROMETHEUS_HOST"
	prometheusPortKey     = "OTEL_EXPORTER_PROMETHEUS_PORT"
	defaultPrometheusHost = "localhost"
	defaultPrometheusPort = "9464"

	// console exporters write to stdout unless these name stderr
	consoleTracesWriterKey  = "OTEL_EXPORTER_CONSOLE_TRACES_WRITER"
	consoleLogsWriterKey    = "OTEL_EXPORTER_CONSOLE_LOGS_WRITER"
	consoleMetricsWriterKey = "OTEL_EXPORTER_CONSOLE_METRICS_WRITER"
)

// SetupOTelSDK installs the global propagator and the tracer, meter and
// logger providers selected by the OTEL_* environment variables. Unknown
// exporter names are an error. Call shutdown to flush the exporters.
func SetupOTelSDK(ctx context.Context) (shutdown func(context.Context) error, err error) {
	var closers []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for i := len(closers) - 1; i >= 0; i-- {
			err = errors.Join(err, closers[i](ctx))
		}
		closers = nil
		return err
	}
	fail := func(err error) (func(context.Context) error, error) {
		return nil, errors.Join(err, shutdown(ctx))
	}

	prop, err := newPropagator()
	if err != nil {
		return fail(err)
	}
	otel.SetTextMapPropagator(prop)

	res, err := newResource(ctx)
	if err != nil {
		return fail(err)
	}

	tp, err := newTracerProvider(ctx, res)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mp, err := newMeterProvider(ctx, res)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, mp.Shutdown)
	otel.SetMeterProvider(mp)

	lp, err := newLoggerProvider(ctx, res)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, lp.Shutdown)
	global.SetLoggerProvider(lp)

	return shutdown, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// forEachExporter calls fn with every exporter named in key. "none" is skipped.
func forEachExporter(key string, fn func(kind string) error) error {
	for _, kind := range strings.Split(getEnv(key, defaultExporter), ",") {
		kind = strings.TrimSpace(kind)
		if kind == "none" {
			continue
		}
		if err := fn(kind); err != nil {
			return err
		}
	}
	return nil
}

func unsupportedExporter(key, kind string) error {
	return fmt.Errorf("unsupported exporter %q from %s=%q", kind, key, os.Getenv(key))
}

func consoleWriter(key string) (io.Writer, error) {
	switch v := getEnv(key, "stdout"); v {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("unknown writer %q from %s", v, key)
	}
}

func newPropagator() (propagation.TextMapPropagator, error) {
	var props []propagation.TextMapPropagator
	for _, p := range strings.Split(getEnv(propagatorsKey, defaultPropagators), ",") {
		switch strings.TrimSpace(p) {
		case "tracecontext":
			props = append(props, propagation.TraceContext{})
		case "baggage":
			props = append(props, propagation.Baggage{})
		default:
			return nil, fmt.Errorf("unsupported propagator %q from %s=%q", p, propagatorsKey, os.Getenv(propagatorsKey))
		}
	}
	return propagation.NewCompositeTextMapPropagator(props...), nil
}

// newResource names the service. OTEL_SERVICE_NAME and OTEL_RESOURCE_ATTRIBUTES override it.
func newResource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attribute.String("service.name", serviceName)),
		resource.WithFromEnv(),
	)
}

func newTracerProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	err := forEachExporter(tracesExporterKey, func(kind string) error {
		var (
			exp sdktrace.SpanExporter
			err error
		)
		switch kind {
		case "otlp":
			exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithDialOption(grpc.WithUserAgent(serviceName)))
		case "console":
			var w io.Writer
			if w, err = consoleWriter(consoleTracesWriterKey); err == nil {
				exp, err = stdouttrace.New(stdouttrace.WithWriter(w))
			}
		default:
			return unsupportedExporter(tracesExporterKey, kind)
		}
		if err != nil {
			return err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	err := forEachExporter(metricsExporterKey, func(kind string) error {
		switch kind {
		case "otlp":
			exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithDialOption(grpc.WithUserAgent(serviceName)))
			if err != nil {
				return err
			}
			opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		case "console":
			w, err := consoleWriter(consoleMetricsWriterKey)
			if err != nil {
				return err
			}
			exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
			if err != nil {
				return err
			}
			opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		case "prometheus":
			addr := getEnv(prometheusHostKey, defaultPrometheusHost) + ":" + getEnv(prometheusPortKey, defaultPrometheusPort)
			exp, err := NewPrometheusExporter(addr)
			if err != nil {
				return err
			}
			opts = append(opts, sdkmetric.WithReader(exp))
		default:
			return unsupportedExporter(metricsExporterKey, kind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	err := forEachExporter(logsExporterKey, func(kind string) error {
		var (
			exp sdklog.Exporter
			err error
		)
		switch kind {
		case "otlp":
			exp, err = otlploggrpc.New(ctx, otlploggrpc.WithDialOption(grpc.WithUserAgent(serviceName)))
		case "console":
			var w io.Writer
			if w, err = consoleWriter(consoleLogsWriterKey); err == nil {
				exp, err = stdoutlog.New(stdoutlog.WithWriter(w))
			}
		default:
			return unsupportedExporter(logsExporterKey, kind)
		}
		if err != nil {
			return err
		}
		opts = append(opts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(opts...), nil
}
