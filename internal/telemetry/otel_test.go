package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupOTelSDK(t *testing.T) {
	t.Setenv(tracesExporterKey, "none")
	t.Setenv(metricsExporterKey, "console")
	t.Setenv(consoleMetricsWriterKey, "stderr")
	t.Setenv(logsExporterKey, "none")

	shutdown, err := SetupOTelSDK(context.TODO())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.TODO()))
}

func TestSetupOTelSDKRejectsUnknownExporters(t *testing.T) {
	cases := map[string]string{
		tracesExporterKey:  "zipkin",
		metricsExporterKey: "statsd",
		logsExporterKey:    "syslog",
		propagatorsKey:     "b3",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(tracesExporterKey, "none")
			t.Setenv(metricsExporterKey, "none")
			t.Setenv(logsExporterKey, "none")
			t.Setenv(key, value)

			_, err := SetupOTelSDK(context.TODO())
			require.ErrorContains(t, err, value)
		})
	}
}

func TestConsoleWriter(t *testing.T) {
	t.Setenv(consoleTracesWriterKey, "file")
	_, err := consoleWriter(consoleTracesWriterKey)
	require.Error(t, err)
}
