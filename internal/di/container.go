// Package di provides dependency injection configuration for the mihcsme CLI.
package di

import (
	"github.com/samber/do/v2"

	"github.com/screendata/mihcsme/internal/config"
	"github.com/screendata/mihcsme/internal/di/providers"
)

// NewContainer creates and configures the DI container for one command
// invocation. Construction is lazy: commands that never touch the
// server never open a session.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Spreadsheet layer
	do.Provide(injector, providers.ProvideParser)

	// Server layer
	do.Provide(injector, providers.ProvideGateway)
	do.Provide(injector, providers.ProvideSyncService)

	return injector
}
