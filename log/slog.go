package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const otelScopeName = "github.com/hyperledger-labs/yui-wasm-relayer"

type RelayLogger struct {
	*slog.Logger
}

var relayLogger *RelayLogger

func InitLogger(logLevel, format, output string, enableTelemetry bool) error {
	// output
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		return errors.New("invalid log output")
	}
	return InitLoggerWithWriter(logLevel, format, writer, enableTelemetry)
}

func InitLoggerWithWriter(logLevel, format string, writer io.Writer, enableTelemetry bool) error {
	// level
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return errors.Wrapf(err, "invalid log level %q", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	}

	var handler slog.Handler
	// format
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return errors.New("invalid log format")
	}

	if enableTelemetry {
		handler = slogmulti.Fanout(
			handler,
			otelslog.NewHandler(otelScopeName),
		)
	}

	// set global logger
	relayLogger = &RelayLogger{
		slog.New(handler),
	}
	return nil
}

// GetLogger returns the global logger. It falls back to the slog default
// logger until InitLogger has been called.
func GetLogger() *RelayLogger {
	if relayLogger == nil {
		return &RelayLogger{slog.Default()}
	}
	return relayLogger
}

func (rl *RelayLogger) log(level slog.Level, skip int, msg string, args ...any) {
	ctx := context.Background()
	if !rl.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, log]
	runtime.Callers(2+skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = rl.Handler().Handle(ctx, r)
}

// Error logs err under the "error" key.
func (rl *RelayLogger) Error(msg string, err error, otherArgs ...any) {
	args := append([]any{"error", err}, otherArgs...)
	rl.log(slog.LevelError, 1, msg, args...)
}

func (rl *RelayLogger) ErrorWithStack(msg string, err error, otherArgs ...any) {
	cError := errors.WithStackDepth(err, 1)
	args := append([]any{"error", err, "stack", fmt.Sprintf("%+v", cError)}, otherArgs...)
	rl.log(slog.LevelError, 1, msg, args...)
}

// Fatal logs err and terminates the process.
func (rl *RelayLogger) Fatal(msg string, err error, otherArgs ...any) {
	args := append([]any{"error", err}, otherArgs...)
	rl.log(slog.LevelError, 1, msg, args...)
	os.Exit(1)
}

func (rl *RelayLogger) WithChainID(chainID string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"chain_id", chainID,
		),
	}
}

func (rl *RelayLogger) WithClientID(chainID, clientID string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"chain_id", chainID,
			"client_id", clientID,
		),
	}
}

func (rl *RelayLogger) WithModule(
	moduleName string,
) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"module", moduleName,
		),
	}
}
