package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"farmlink/config"
	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/service"
	"farmlink/internal/infra/api"
	"farmlink/internal/infra/auth"
	"farmlink/internal/infra/chart"
	"farmlink/internal/infra/export"
	logs "farmlink/internal/infra/log"
	"farmlink/internal/infra/persistence/blobstore"
	"farmlink/internal/infra/push"
	"farmlink/internal/usecase"
	"farmlink/internal/usecase/impl"

	"go.uber.org/fx"
)

const appVersion = "1.0.0"

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		fx.Invoke(
			startSession,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		blobstore.New,
		push.NewTransport,
		chart.NewRenderer,
		export.NewArtifactStore,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			blobstore.NewCredentialRepository,
			blobstore.NewNotificationCache,
			blobstore.NewPreferenceCache,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewPayloadDecoder,
			newBackend,
			newDeviceInfo,
		),
	)
}

func newBackend(cfg *config.Config, logger *slog.Logger) service.FarmBackend {
	return api.NewClient(cfg, logger)
}

// newDeviceInfo describes this installation for push-token registration.
func newDeviceInfo() entity.DeviceInfo {
	host, _ := os.Hostname()

	return entity.DeviceInfo{
		Platform:   runtime.GOOS,
		DeviceName: host,
		AppVersion: appVersion,
	}.Normalize()
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewRegistrationCoordinator,
			impl.NewPreferenceService,
			impl.NewAnomalyService,
			impl.NewExportService,
			impl.NewSessionService,
		),
	)
}

type sessionParams struct {
	fx.In
	fx.Lifecycle

	Session usecase.SessionUsecase
	Logger  *slog.Logger
}

func startSession(params sessionParams) {
	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Logger.Info("starting notification sync")

			return params.Session.Start(ctx)
		},
		OnStop: func(context.Context) error {
			params.Session.Stop()

			return nil
		},
	})
}
