package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

// NewLogger builds a zap logger with the service identity attached to every
// entry. Unknown level strings fall back to info.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(c.Level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(
		zap.String("service", c.App),
		zap.String("env", c.Env),
		zap.String("version", c.Ver),
	))
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.Set(s); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
