package push

import (
	"context"
	"log/slog"

	"farmlink/config"
	"farmlink/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Provider names accepted in configuration.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// TransportParams holds dependencies for the push transport, injected by Fx.
type TransportParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewTransport creates a PushTransport based on configuration. A missing push
// section yields the local transport in simulator mode, so the notification
// stack keeps working without a push service.
func NewTransport(params TransportParams) (service.PushTransport, error) {
	cfg := params.Config.Push
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" {
		logger.Info("push not configured, using local simulator transport")
		cfg = &config.PushConfig{Provider: ProviderLocal, Simulator: true}
	}

	switch cfg.Provider {
	case ProviderLocal:
		transport := newLocalTransport(cfg, logger)
		if cfg.LocalPort > 0 {
			params.Lc.Append(fx.Hook{
				OnStart: func(context.Context) error { return transport.Start() },
				OnStop:  transport.Stop,
			})
		}

		return transport, nil

	case ProviderGoogle:
		transport, err := newGoogleTransport(params.Ctx, cfg, params.Config.Firebase, logger)
		if err != nil {
			return nil, err
		}
		params.Lc.Append(fx.Hook{
			OnStart: transport.Start,
			OnStop:  transport.Stop,
		})

		return transport, nil
	}

	return nil, errors.Errorf("unknown push provider: %s", cfg.Provider)
}
