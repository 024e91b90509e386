package zap

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Entry keys of the fields carried by a context.
const (
	RequestIDKey = "request_id"
	OrderIDKey   = "order_id"
	TickKey      = "tick"
	EndpointKey  = "endpoint"
)

type fieldKey string

// ctxFields lists the context fields in the order they are written.
var ctxFields = []fieldKey{RequestIDKey, TickKey, OrderIDKey, EndpointKey}

var (
	current atomic.Pointer[Log]
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Until Init, warnings and errors go to stderr.
func init() {
	current.Store(New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.WarnLevel,
	)))
}

// Log writes entries enriched with the fields stored in the context.
type Log struct {
	base *zap.Logger
}

type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init replaces the process logger. Format is "json" or "console".
func Init(options Options) error {
	parsed, err := zapcore.ParseLevel(options.Level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	var encoder zapcore.Encoder
	switch options.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	case "console", "":
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	default:
		return fmt.Errorf("logger: unknown format %q", options.Format)
	}

	output := options.Output
	if output == nil {
		output = os.Stdout
	}

	level.SetLevel(parsed)
	Replace(New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(output)), level)))

	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()
	config.TimeKey = "ts"
	config.MessageKey = "msg"
	config.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	config.EncodeLevel = zapcore.LowercaseLevelEncoder
	config.EncodeDuration = zapcore.MillisDurationEncoder

	return config
}

// New wraps core. Callers are reported as the code calling Info, Warn and
// friends.
func New(core zapcore.Core) *Log {
	return &Log{base: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))}
}

func nop() *Log {
	return &Log{base: zap.NewNop()}
}

func Replace(log *Log) {
	if log == nil {
		log = nop()
	}
	current.Store(log)
}

func SetNopLogger() {
	Replace(nil)
}

// SetLevel changes the level of a logger built by Init. Unknown names are
// ignored.
func SetLevel(name string) {
	if parsed, err := zapcore.ParseLevel(name); err == nil {
		level.SetLevel(parsed)
	}
}

func Logger() *Log {
	return current.Load()
}

func Sync() error {
	return current.Load().base.Sync()
}

func With(fields ...zap.Field) *Log {
	return &Log{base: current.Load().base.With(fields...)}
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, RequestIDKey, zap.String(RequestIDKey, requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if field, ok := ctx.Value(fieldKey(RequestIDKey)).(zap.Field); ok {
		return field.String
	}
	return ""
}

func ContextWithOrderID(ctx context.Context, orderID string) context.Context {
	return withField(ctx, OrderIDKey, zap.String(OrderIDKey, orderID))
}

func ContextWithTick(ctx context.Context, tick uint64) context.Context {
	return withField(ctx, TickKey, zap.Uint64(TickKey, tick))
}

func ContextWithEndpoint(ctx context.Context, url string) context.Context {
	return withField(ctx, EndpointKey, zap.String(EndpointKey, url))
}

func withField(ctx context.Context, key fieldKey, field zap.Field) context.Context {
	if field.Type == zapcore.StringType && field.String == "" {
		return ctx
	}
	return context.WithValue(ctx, key, field)
}

func contextFields(ctx context.Context, extra []zap.Field) []zap.Field {
	fields := make([]zap.Field, 0, len(ctxFields)+len(extra))
	for _, key := range ctxFields {
		if field, ok := ctx.Value(key).(zap.Field); ok {
			fields = append(fields, field)
		}
	}

	return append(fields, extra...)
}

func (l *Log) write(ctx context.Context, lvl zapcore.Level, message string, fields []zap.Field) {
	if entry := l.base.Check(lvl, message); entry != nil {
		entry.Write(contextFields(ctx, fields)...)
	}
}

func Debug(ctx context.Context, message string, fields ...zap.Field) {
	current.Load().write(ctx, zapcore.DebugLevel, message, fields)
}

func Info(ctx context.Context, message string, fields ...zap.Field) {
	current.Load().write(ctx, zapcore.InfoLevel, message, fields)
}

func Warn(ctx context.Context, message string, fields ...zap.Field) {
	current.Load().write(ctx, zapcore.WarnLevel, message, fields)
}

func Error(ctx context.Context, message string, fields ...zap.Field) {
	current.Load().write(ctx, zapcore.ErrorLevel, message, fields)
}

func Fatal(ctx context.Context, message string, fields ...zap.Field) {
	current.Load().write(ctx, zapcore.FatalLevel, message, fields)
}

func (l *Log) Debug(ctx context.Context, message string, fields ...zap.Field) {
	l.write(ctx, zapcore.DebugLevel, message, fields)
}

func (l *Log) Info(ctx context.Context, message string, fields ...zap.Field) {
	l.write(ctx, zapcore.InfoLevel, message, fields)
}

func (l *Log) Warn(ctx context.Context, message string, fields ...zap.Field) {
	l.write(ctx, zapcore.WarnLevel, message, fields)
}

func (l *Log) Error(ctx context.Context, message string, fields ...zap.Field) {
	l.write(ctx, zapcore.ErrorLevel, message, fields)
}

func (l *Log) Fatal(ctx context.Context, message string, fields ...zap.Field) {
	l.write(ctx, zapcore.FatalLevel, message, fields)
}
