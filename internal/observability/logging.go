package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helpdesk-labs/ticket-portal/internal/config"
)

// NewLogger builds the JSON logger shared by both binaries. Every entry
// carries the service name, environment and version from app so lines from
// the API and the accounts CLI can be told apart once aggregated.
func NewLogger(cfg config.LoggerConfig, app config.AppConfig, opts ...zap.Option) (*zap.Logger, error) {
	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development: cfg.Development,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			LevelKey:       "level",
			TimeKey:        "ts",
			NameKey:        "logger",
			CallerKey:      "caller",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return logger.With(serviceFields(app)...), nil
}

func parseLevel(raw string) zapcore.Level {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(strings.TrimSpace(raw))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func serviceFields(app config.AppConfig) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if app.Name != "" {
		fields = append(fields, zap.String("service", app.Name))
	}
	if app.Env != "" {
		fields = append(fields, zap.String("env", app.Env))
	}
	if app.Version != "" {
		fields = append(fields, zap.String("version", app.Version))
	}
	return fields
}
