// Package zap backs observability.StructuredLogger with go.uber.org/zap. Error entries
// can additionally be delivered to an ErrorNotifier such as an SNS topic.
package zap

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theory-cloud/bulktransition"
	"github.com/theory-cloud/bulktransition/pkg/observability"
	"github.com/theory-cloud/bulktransition/pkg/sanitization"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"

	defaultAlertBuffer     = 64
	defaultAlertAttempts   = 3
	defaultAlertRetryDelay = 200 * time.Millisecond
)

type Option func(*loggerOptions)

type loggerOptions struct {
	base      *ubzap.Logger
	sanitizer observability.SanitizerFunc
	notifier  observability.ErrorNotifier
}

// WithZapLogger replaces the stdout core built from LoggerConfig.
func WithZapLogger(logger *ubzap.Logger) Option {
	return func(opts *loggerOptions) {
		opts.base = logger
	}
}

func WithSanitizer(fn observability.SanitizerFunc) Option {
	return func(opts *loggerOptions) {
		opts.sanitizer = fn
	}
}

func WithErrorNotifier(notifier observability.ErrorNotifier) Option {
	return func(opts *loggerOptions) {
		opts.notifier = notifier
	}
}

// Logger is a zap-backed StructuredLogger. Loggers derived through the With* methods
// share the underlying core and alert queue.
type Logger struct {
	log      *ubzap.Logger
	root     *ubzap.Logger
	alerts   *alertQueue
	sanitize observability.SanitizerFunc
	closed   *atomic.Bool

	fields       map[string]any
	requestID    string
	invocationID string
	service      string
}

var _ observability.StructuredLogger = (*Logger)(nil)

func NewZapLogger(config observability.LoggerConfig, options ...Option) (observability.StructuredLogger, error) {
	cfg := normalizeLoggerConfig(config)

	opts := &loggerOptions{sanitizer: sanitization.SanitizeFieldValue}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	base := opts.base
	if base == nil {
		var err error
		if base, err = newStdoutLogger(cfg); err != nil {
			return nil, err
		}
	}

	sanitize := opts.sanitizer
	if sanitize == nil {
		sanitize = sanitization.SanitizeFieldValue
	}

	l := &Logger{
		log:      base,
		root:     base,
		sanitize: sanitize,
		closed:   &atomic.Bool{},
		fields:   map[string]any{},
	}
	if opts.notifier != nil {
		l.alerts = startAlertQueue(opts.notifier, cfg, base)
	}
	return l, nil
}

func normalizeLoggerConfig(config observability.LoggerConfig) observability.LoggerConfig {
	cfg := config
	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = "console"
		if bulktransition.IsLambda() {
			cfg.Format = "json"
		}
	}
	if strings.TrimSpace(cfg.Level) == "" {
		cfg.Level = levelInfo
	}
	if cfg.AlertBuffer <= 0 {
		cfg.AlertBuffer = defaultAlertBuffer
	}
	if cfg.AlertAttempts <= 0 {
		cfg.AlertAttempts = defaultAlertAttempts
	}
	if cfg.AlertRetryDelay <= 0 {
		cfg.AlertRetryDelay = defaultAlertRetryDelay
	}
	return cfg
}

func newStdoutLogger(cfg observability.LoggerConfig) (*ubzap.Logger, error) {
	level, err := parseZapLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if cfg.EnableCaller {
		enc.CallerKey = "caller"
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "console":
		encoder = zapcore.NewConsoleEncoder(enc)
	case "json":
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, errors.New("observability/zap: unsupported log format")
	}

	logger := ubzap.New(zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	if cfg.EnableCaller {
		logger = logger.WithOptions(ubzap.AddCaller(), ubzap.AddCallerSkip(2))
	}
	return logger, nil
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case levelDebug:
		return zapcore.DebugLevel, nil
	case levelInfo:
		return zapcore.InfoLevel, nil
	case levelWarn, "warning":
		return zapcore.WarnLevel, nil
	case levelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, errors.New("observability/zap: unsupported log level")
	}
}

func (l *Logger) Debug(message string, fields ...map[string]any) {
	l.emit(levelDebug, message, fields)
}
func (l *Logger) Info(message string, fields ...map[string]any) {
	l.emit(levelInfo, message, fields)
}
func (l *Logger) Warn(message string, fields ...map[string]any) {
	l.emit(levelWarn, message, fields)
}
func (l *Logger) Error(message string, fields ...map[string]any) {
	l.emit(levelError, message, fields)
}

func (l *Logger) WithField(key string, value any) observability.StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *Logger) WithFields(fields map[string]any) observability.StructuredLogger {
	next := l.derive()
	for k, v := range fields {
		next.fields[k] = v
	}
	next.log = next.log.With(l.zapFields(fields)...)
	return next
}

func (l *Logger) WithRequestID(requestID string) observability.StructuredLogger {
	next := l.derive()
	next.requestID = requestID
	next.log = next.log.With(ubzap.String("request_id", sanitization.SanitizeLogString(requestID)))
	return next
}

func (l *Logger) WithInvocationID(invocationID string) observability.StructuredLogger {
	next := l.derive()
	next.invocationID = invocationID
	next.log = next.log.With(ubzap.String("invocation_id", sanitization.SanitizeLogString(invocationID)))
	return next
}

func (l *Logger) WithService(service string) observability.StructuredLogger {
	next := l.derive()
	next.service = service
	next.log = next.log.With(ubzap.String("service", sanitization.SanitizeLogString(service)))
	return next
}

// Flush syncs the zap core and waits for queued alerts until ctx is done.
func (l *Logger) Flush(ctx context.Context) error {
	if l == nil || l.log == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := ignoreStdoutSync(l.root.Sync())
	if l.alerts != nil {
		if waitErr := l.alerts.wait(ctx); waitErr != nil && err == nil {
			err = waitErr
		}
	}
	return err
}

// Close stops accepting entries, delivers queued alerts and syncs the core.
func (l *Logger) Close() error {
	if l == nil || l.log == nil {
		return nil
	}
	if l.closed.Swap(true) {
		return nil
	}
	if l.alerts != nil {
		l.alerts.close()
	}
	return ignoreStdoutSync(l.root.Sync())
}

func (l *Logger) derive() *Logger {
	next := *l
	next.fields = make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		next.fields[k] = v
	}
	return &next
}

func (l *Logger) emit(level, message string, fieldSets []map[string]any) {
	if l == nil || l.log == nil || l.closed.Load() {
		return
	}

	message = sanitization.SanitizeLogString(message)
	call := map[string]any{}
	for _, set := range fieldSets {
		for k, v := range set {
			call[k] = v
		}
	}
	zfields := l.zapFields(call)

	switch level {
	case levelDebug:
		l.log.Debug(message, zfields...)
	case levelWarn:
		l.log.Warn(message, zfields...)
	case levelError:
		l.log.Error(message, zfields...)
		if l.alerts != nil {
			l.alerts.push(l.alertEntry(message, call))
		}
	default:
		l.log.Info(message, zfields...)
	}
}

func (l *Logger) zapFields(fields map[string]any) []ubzap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]ubzap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, ubzap.Any(k, l.sanitize(k, v)))
	}
	return out
}

// alertEntry merges scoped and call fields, call fields winning.
func (l *Logger) alertEntry(message string, call map[string]any) observability.LogEntry {
	fields := make(map[string]any, len(l.fields)+len(call))
	for k, v := range l.fields {
		fields[k] = l.sanitize(k, v)
	}
	for k, v := range call {
		fields[k] = l.sanitize(k, v)
	}
	return observability.LogEntry{
		Timestamp:    time.Now().UTC(),
		Level:        levelError,
		Message:      message,
		Fields:       fields,
		RequestID:    l.requestID,
		InvocationID: l.invocationID,
		Service:      l.service,
	}
}

// ignoreStdoutSync drops the EINVAL/ENOTTY that syncing a pipe or terminal reports.
func ignoreStdoutSync(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
