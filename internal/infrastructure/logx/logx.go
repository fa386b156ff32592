package logx

import (
	"context"
	"strings"

	"cryptoprice-service/internal/application"
	"cryptoprice-service/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
)

func init() {
	appCfg := config.Load()
	l, err := New(appCfg.Env, appCfg.LogLevel)
	if err != nil {
		// an invalid LOG_LEVEL is reported by config.Validate
		if l, err = New(appCfg.Env, "info"); err != nil {
			panic(err)
		}
	}
	logger = l
}

// New builds a JSON logger at level. Outside production the console
// encoder is used.
func New(env, level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if env == "local" || env == "dev" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{"service": "cryptoprice"}

	if level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, err
		}
	}
	return zapCfg.Build(zap.AddCaller())
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

// WithRequestID stores the request correlation id on ctx for WithFields and
// the application layer.
func WithRequestID(ctx context.Context, id string) context.Context {
	return application.WithRequestID(ctx, id)
}

// WithFields returns the package logger tagged with the request id on ctx.
func WithFields(ctx context.Context) *zap.Logger {
	if rid := application.RequestID(ctx); rid != "" {
		return logger.With(zap.String("request_id", rid))
	}
	return logger
}
