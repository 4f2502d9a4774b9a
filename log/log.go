// Package log builds the zap logger shared by ragchat's packages.
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/ragchat/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file written inside LogConfig.OutputPath.
const FileName = "ragchat.log"

// New builds a logger from cfg. The "console" format uses zap's development
// encoder, anything else the production JSON encoder. An unparsable level
// falls back to info.
//
// Logs go to stderr unless cfg.OutputPath names a directory, in which case
// they go to FileName inside it and nowhere else, so the terminal UI stays
// clean.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zc, err := zapConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// zapConfig translates cfg. zap's own errors follow the log entries, so
// nothing reaches stderr when a file is configured.
func zapConfig(cfg config.LogConfig) (zap.Config, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if cfg.OutputPath != "" {
		if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
			return zap.Config{}, fmt.Errorf("create log directory: %w", err)
		}
		path := filepath.Join(cfg.OutputPath, FileName)
		zc.OutputPaths = []string{path}
		zc.ErrorOutputPaths = []string{path}
	}
	return zc, nil
}

// Sync flushes buffered entries. Errors from syncing terminals are ignored.
func Sync(l *zap.Logger) {
	_ = l.Sync()
}
