package logger

import (
	"license-server/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: human-readable in development, JSON in
// production.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg == nil || !cfg.IsProduction() {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return withService(log, cfg), nil
	}

	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.StacktraceKey = "stacktrace"
	zc.EncoderConfig.LevelKey = "severity"
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zc.Encoding = "json"
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return withService(log, cfg), nil
}

func withService(log *zap.Logger, cfg *config.Config) *zap.Logger {
	if cfg == nil {
		return log
	}
	return log.With(
		zap.String("env", cfg.AppEnv),
		zap.String("service_name", cfg.AppName),
		zap.String("version", cfg.AppVersion),
	)
}
