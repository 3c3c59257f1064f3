package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config содержит настройки логгера.
type Config struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`         // debug, info, warn, error
	Encoding   string `env:"LOG_ENCODING" env-default:"json"`      // json или console
	OutputPath string `env:"LOG_OUTPUT_PATH" env-default:"stdout"` // путь к файлу или stdout

	// Service попадает в каждую запись полем "service".
	Service string `env:"LOG_SERVICE" env-default:"storyreel"`
	// Development: консольный вывод с цветными уровнями, caller и стектрейсы с warn.
	// Выставляется из APP_ENV, а не из отдельной переменной.
	Development bool
}

// New создает zap.Logger по конфигурации.
func New(cfg Config) (*zap.Logger, error) {
	zapConfig := zap.Config{
		Level:             parseLevel(cfg.Level, cfg.Development),
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          encoding(cfg),
		EncoderConfig:     encoderConfig(cfg.Development),
		OutputPaths:       []string{outputPath(cfg.OutputPath)},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if cfg.Service != "" {
		zapConfig.InitialFields = map[string]any{"service": cfg.Service}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// parseLevel: пустой уровень - info, в development - debug. Неизвестный уровень - info.
func parseLevel(raw string, development bool) zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		name = "info"
		if development {
			name = "debug"
		}
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		// логгер еще не создан, пишем в stderr
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", raw, err)
		level.SetLevel(zap.InfoLevel)
	}
	return level
}

func encoding(cfg Config) string {
	switch enc := strings.ToLower(cfg.Encoding); {
	case enc == "console" || enc == "json":
		return enc
	case cfg.Development:
		return "console"
	default:
		return "json"
	}
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	if development {
		ec = zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}

func outputPath(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
