// Package impl provides the use case implementations of the sync layer.
package impl

import (
	"context"
	"log/slog"
	"sync"

	"farmlink/config"
	"farmlink/internal/domain/entity"
	farmerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/usecase"
)

type registrationCoordinator struct {
	credRepo  repository.CredentialRepository
	transport service.PushTransport
	backend   service.FarmBackend
	decoder   service.TokenDecoder
	device    entity.DeviceInfo
	projectID string
	logger    *slog.Logger

	mu sync.Mutex
	// state is the last reached state; registeredPair remembers the
	// (userID, deviceToken) pair that succeeded so repeated EnsureRegistered
	// calls skip the network.
	state          usecase.RegistrationState
	registeredPair string
	serverProbed   bool
	channelsReady  bool
}

// NewRegistrationCoordinator creates the push-registration state machine.
func NewRegistrationCoordinator(
	cfg *config.Config,
	credRepo repository.CredentialRepository,
	transport service.PushTransport,
	backend service.FarmBackend,
	decoder service.TokenDecoder,
	device entity.DeviceInfo,
	logger *slog.Logger,
) usecase.RegistrationUsecase {
	projectID := ""
	if cfg.Push != nil {
		projectID = cfg.Push.ProjectID
	}

	return &registrationCoordinator{
		credRepo:  credRepo,
		transport: transport,
		backend:   backend,
		decoder:   decoder,
		device:    device.Normalize(),
		projectID: projectID,
		logger:    logger,
		state:     usecase.StateUnknown,
	}
}

func (c *registrationCoordinator) EnsureRegistered(ctx context.Context) (usecase.RegistrationState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.advance(ctx)
	c.state = state

	return state, err
}

// advance runs the transitions as far as the current credential and
// permission state allow. Caller holds c.mu.
func (c *registrationCoordinator) advance(ctx context.Context) (usecase.RegistrationState, error) {
	token, err := c.credRepo.Token(ctx)
	if err != nil {
		return usecase.StateUnknown, farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token == "" {
		return usecase.StateUnauthenticated, nil
	}

	granted, err := c.ensurePermission(ctx)
	if err != nil {
		return usecase.StateNeedPermission, err
	}
	if !granted {
		return usecase.StateNeedPermission, nil
	}

	if !c.channelsReady {
		if err := c.transport.EnsureChannels(ctx); err != nil {
			c.logger.Warn("notification channel setup failed", slog.Any("error", err))
		} else {
			c.channelsReady = true
		}
	}

	deviceToken, err := c.ensureDeviceToken(ctx)
	if err != nil {
		return usecase.StateNeedDeviceToken, err
	}
	if deviceToken == "" {
		return usecase.StateNeedDeviceToken, nil
	}

	userID, err := c.ensureUserID(ctx, token)
	if err != nil {
		return usecase.StateNeedBackendRegister, err
	}

	pair := userID + "\x00" + deviceToken
	if c.registeredPair == pair {
		return usecase.StateRegistered, nil
	}

	// The memo does not survive a restart, so before re-posting ask the
	// backend whether it already knows this device: a successful preference
	// read means the registration is in place. Probed once per identity;
	// after Invalidate the post happens unconditionally.
	if !c.serverProbed {
		c.serverProbed = true
		if _, err := c.backend.FetchPreferences(ctx, token); err == nil {
			c.registeredPair = pair
			c.logger.Debug("push registration confirmed by server", slog.String("userId", userID))

			return usecase.StateRegistered, nil
		}
	}

	req := service.RegisterTokenRequest{
		UserID:      userID,
		DeviceToken: deviceToken,
		Device:      c.device,
	}
	if err := c.backend.RegisterPushToken(ctx, token, req); err != nil {
		c.logger.Warn("push token registration failed",
			slog.String("kind", string(farmerrors.KindOf(err))),
			slog.Any("error", err))

		return usecase.StateNeedBackendRegister, err
	}

	c.registeredPair = pair
	c.logger.Info("push token registered", slog.String("userId", userID))

	return usecase.StateRegistered, nil
}

func (c *registrationCoordinator) ensurePermission(ctx context.Context) (bool, error) {
	status, err := c.transport.QueryPermission(ctx)
	if err != nil {
		return false, farmerrors.Wrap(farmerrors.KindLocal, "query notification permission", err)
	}
	if status.Granted {
		return true, nil
	}
	if !status.CanAskAgain {
		return false, nil
	}

	granted, err := c.transport.RequestPermission(ctx)
	if err != nil {
		return false, farmerrors.Wrap(farmerrors.KindLocal, "request notification permission", err)
	}

	return granted, nil
}

func (c *registrationCoordinator) ensureDeviceToken(ctx context.Context) (string, error) {
	deviceToken, err := c.credRepo.DeviceToken(ctx)
	if err != nil {
		return "", farmerrors.Wrap(farmerrors.KindLocal, "read device token", err)
	}
	if deviceToken != "" {
		return deviceToken, nil
	}

	deviceToken = c.transport.ObtainDeviceToken(ctx, c.projectID)
	if deviceToken == "" {
		return "", nil
	}

	if err := c.credRepo.SaveDeviceToken(ctx, deviceToken); err != nil {
		return "", farmerrors.Wrap(farmerrors.KindLocal, "save device token", err)
	}

	return deviceToken, nil
}

// ensureUserID prefers the stored user id and falls back to decoding the
// bearer token's payload, caching the result.
func (c *registrationCoordinator) ensureUserID(ctx context.Context, token string) (string, error) {
	userID, err := c.credRepo.UserID(ctx)
	if err != nil {
		return "", farmerrors.Wrap(farmerrors.KindLocal, "read user id", err)
	}
	if userID != "" {
		return userID, nil
	}

	userID = c.decoder.UserID(token)
	if userID == "" {
		return "", farmerrors.New(farmerrors.KindAuthInvalid, "token payload carries no user id")
	}

	if err := c.credRepo.SaveUserID(ctx, userID); err != nil {
		return "", farmerrors.Wrap(farmerrors.KindLocal, "save user id", err)
	}

	return userID, nil
}

func (c *registrationCoordinator) State() usecase.RegistrationState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *registrationCoordinator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registeredPair = ""
	// The backend just told us the registration is gone; skip the probe and
	// post directly on the next pass.
	c.serverProbed = true
	if c.state == usecase.StateRegistered {
		c.state = usecase.StateNeedBackendRegister
	}
}

func (c *registrationCoordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registeredPair = ""
	c.serverProbed = false
	c.state = usecase.StateUnknown
}
