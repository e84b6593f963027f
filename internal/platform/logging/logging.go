// Package logging wraps logrus with the file/console output policy
// shared by every connectivity-core service.
package logging

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/platform/redaction"
)

// contextKey namespaces this package's context values against those of
// other packages using plain strings.
type contextKey string

// traceIDKey is the context key a trace ID travels under, letting
// every log line emitted while handling one discovery run or one
// signed request cycle carry the same correlation ID.
const traceIDKey contextKey = "trace_id"

// NewTraceID generates a fresh correlation ID.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext retrieves the trace ID stashed by WithTraceID, or
// "" if none was ever attached.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// WithTraceFields returns a *logrus.Entry carrying ctx's trace ID as a
// field, or the bare Logger entry if ctx has none.
func (l *Logger) WithTraceFields(ctx context.Context) *logrus.Entry {
	if id := TraceIDFromContext(ctx); id != "" {
		return l.WithField("trace_id", id)
	}
	return logrus.NewEntry(l.Logger)
}

// Logger wraps *logrus.Logger so call sites can keep using the
// familiar logrus entry API while the output/format policy lives here.
type Logger struct {
	*logrus.Logger
}

// Config controls level, formatter, and output destination.
type Config struct {
	Level       string
	Format      string
	Output      string // "stdout" (default) or "file"
	ServiceName string // used to name ./logs/{ServiceName}.log when Output == "file"

	// ManagedByMonitor suppresses the console writer when Output ==
	// "file", so a process supervisor tailing the file doesn't also
	// get a duplicate stream on its own stdout capture.
	ManagedByMonitor bool
}

// New builds a Logger from an explicit Config.
func New(cfg Config) *Logger {
	logger := logrus.New()
	logger.AddHook(redaction.NewHook(redaction.DefaultConfig()))

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		name := cfg.ServiceName
		if name == "" {
			name = "connectivity-core"
		}
		configureFileOutput(logger, name, cfg.ManagedByMonitor)
	default:
		logger.SetOutput(os.Stdout)
	}

	return &Logger{Logger: logger}
}

// configureFileOutput truncates ./logs/{name}.log on every start (so a
// restart doesn't inherit an unbounded append log) and multiplexes to
// stdout unless ManagedByMonitor suppresses the console writer.
func configureFileOutput(logger *logrus.Logger, name string, managedByMonitor bool) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logger.Errorf("failed to create logs directory: %v", err)
		logger.SetOutput(os.Stdout)
		return
	}

	logPath := filepath.Join(logDir, name+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		logger.Errorf("failed to open log file: %v", err)
		logger.SetOutput(os.Stdout)
		return
	}

	if managedByMonitor {
		logger.SetOutput(file)
		return
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
}

// NewFromEnv builds a Logger from LOG_LEVEL/LOG_FORMAT/LOG_OUTPUT and
// MANAGED_BY_MONITOR, naming the file after service.
func NewFromEnv(service string) *Logger {
	return New(Config{
		Level:            envOrDefault("LOG_LEVEL", "info"),
		Format:           envOrDefault("LOG_FORMAT", "text"),
		Output:           envOrDefault("LOG_OUTPUT", "stdout"),
		ServiceName:      service,
		ManagedByMonitor: isManagedByMonitor(),
	})
}

func isManagedByMonitor() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MANAGED_BY_MONITOR")))
	return v == "1" || v == "true" || v == "yes"
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// SilenceThirdPartyLoggers quiets the stdlib log package, which is
// where net/http's transport-level diagnostics (TLS handshake
// failures, connection resets) surface by default in Go — the
// equivalent of the teacher's urllib3/redis/websockets loggers pinned
// to WARN. Our own components never log through the stdlib logger, so
// this does not affect their ambient logrus output.
// SESSION_TRACKING_LOG_LEVEL overrides the threshold for local
// debugging: any parseable level re-enables stdlib log output by
// routing it back through logrus at that level.
func SilenceThirdPartyLoggers() {
	if raw := strings.TrimSpace(os.Getenv("SESSION_TRACKING_LOG_LEVEL")); raw != "" {
		if level, err := logrus.ParseLevel(raw); err == nil {
			stdlog.SetOutput(logrus.StandardLogger().WriterLevel(level))
			return
		}
	}
	stdlog.SetOutput(io.Discard)
}
