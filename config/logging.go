package config

import (
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/logging"
)

// setLogger picks the zap logger flavour for the running environment
func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}
