package log

import (
	"github.com/fwojciec/ragchat/config"
	"go.uber.org/zap"
)

// ZapConfig exposes zapConfig for testing.
func ZapConfig(cfg config.LogConfig) (zap.Config, error) {
	return zapConfig(cfg)
}
