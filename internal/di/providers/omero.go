package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/screendata/mihcsme/internal/config"
	"github.com/screendata/mihcsme/internal/excel"
	"github.com/screendata/mihcsme/internal/logger"
	"github.com/screendata/mihcsme/internal/omero"
)

// ProvideParser provides the spreadsheet parser.
func ProvideParser(i do.Injector) (*excel.Parser, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return excel.New(log.Logger), nil
}

// GatewayHandle wraps the server gateway so the container logs the
// session out on shutdown.
type GatewayHandle struct {
	omero.Gateway
}

// Shutdown implements do.Shutdownable.
func (h *GatewayHandle) Shutdown() error {
	return h.Close()
}

// ProvideGateway opens an authenticated server session. Invoking this
// provider is what triggers the connection, so commands that work on
// local files only must not depend on it.
func ProvideGateway(i do.Injector) (*GatewayHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	client, err := omero.Connect(context.Background(), omero.ConnectParams{
		Host:     cfg.OMERO.Host,
		Port:     cfg.OMERO.Port,
		User:     cfg.OMERO.User,
		Password: cfg.OMERO.Password,
		Group:    cfg.OMERO.Group,
		Secure:   cfg.OMERO.Secure,
		Timeout:  cfg.OMERO.Timeout,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	return &GatewayHandle{Gateway: client}, nil
}

// ProvideSyncService provides the annotation sync service.
func ProvideSyncService(i do.Injector) (*omero.SyncService, error) {
	gw := do.MustInvoke[*GatewayHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return omero.NewSyncService(gw.Gateway, log.Logger), nil
}
