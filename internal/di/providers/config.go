// Package providers contains dependency injection providers for the mihcsme CLI.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/screendata/mihcsme/internal/config"
	"github.com/screendata/mihcsme/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	return log, nil
}
