package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry as the "service" field.
const ServiceName = "agroweb-products"

// New creates the process logger writing to stdout. Production emits JSON at
// info level; other environments emit colored console output at debug level.
// A non-empty level overrides the environment default.
func New(env, level string) (*zap.Logger, error) {
	return NewWithWriter(env, level, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(env, level string, w io.Writer) (*zap.Logger, error) {
	production := env == "production"

	minLevel := zapcore.DebugLevel
	if production {
		minLevel = zapcore.InfoLevel
	}
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		minLevel = parsed
	}

	core := zapcore.NewCore(newEncoder(production), zapcore.Lock(zapcore.AddSync(w)), minLevel)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(zap.String("service", ServiceName)),
	), nil
}

func newEncoder(production bool) zapcore.Encoder {
	if production {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.MessageKey = "message"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
