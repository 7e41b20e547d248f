package logging

import "go.uber.org/zap"

// New creates a new zap logger for the given environment. development gets a
// verbose console logger, production a JSON logger at info level and
// anything else the example logger.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "development":
		return zap.NewDevelopment()
	case "production":
		return zap.NewProduction()
	default:
		return zap.NewExample(), nil
	}
}
