package impl

import (
	"context"
	"testing"

	"farmlink/config"
	"farmlink/internal/domain/entity"
	farmerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type coordinatorFixture struct {
	credRepo  repository.CredentialRepository
	transport *fakeTransport
	backend   *mockBackend
	coord     usecase.RegistrationUsecase
}

func newCoordinatorFixture(t *testing.T, transport *fakeTransport, userID string) *coordinatorFixture {
	t.Helper()

	credRepo, _, _ := testRepos(t)
	backend := &mockBackend{}
	cfg := &config.Config{Push: &config.PushConfig{ProjectID: "farm-project"}}

	coord := NewRegistrationCoordinator(
		cfg, credRepo, transport, backend,
		stubDecoder{id: userID}, entity.DeviceInfo{Platform: "android"}, testLogger(),
	)

	return &coordinatorFixture{credRepo: credRepo, transport: transport, backend: backend, coord: coord}
}

func TestRegistrationCoordinator_UnauthenticatedWithoutToken(t *testing.T) {
	f := newCoordinatorFixture(t, &fakeTransport{}, "user-1")
	ctx := context.Background()

	state, err := f.coord.EnsureRegistered(ctx)

	require.NoError(t, err)
	assert.Equal(t, usecase.StateUnauthenticated, state)
	assert.Equal(t, usecase.StateUnauthenticated, f.coord.State())
	f.backend.AssertNotCalled(t, "RegisterPushToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistrationCoordinator_StopsAtPermissionWhenDeniedForGood(t *testing.T) {
	transport := &fakeTransport{
		permission: service.PermissionStatus{Granted: false, CanAskAgain: false},
	}
	f := newCoordinatorFixture(t, transport, "user-1")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))

	state, err := f.coord.EnsureRegistered(ctx)

	require.NoError(t, err)
	assert.Equal(t, usecase.StateNeedPermission, state)
	assert.Zero(t, transport.permissionRequests)
}

func TestRegistrationCoordinator_PromptsWhenAskable(t *testing.T) {
	transport := &fakeTransport{
		permission: service.PermissionStatus{Granted: false, CanAskAgain: true},
		grantOnAsk: true,
	}
	f := newCoordinatorFixture(t, transport, "user-1")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))

	// Granted after the prompt, but no device token is obtainable.
	state, err := f.coord.EnsureRegistered(ctx)

	require.NoError(t, err)
	assert.Equal(t, usecase.StateNeedDeviceToken, state)
	assert.Equal(t, 1, transport.permissionRequests)
	assert.Equal(t, 1, transport.channelCalls)
}

// expectUnregisteredProbe scripts the pre-register preference probe to report
// that the backend does not know this device yet.
func expectUnregisteredProbe(backend *mockBackend) {
	backend.On("FetchPreferences", mock.Anything, "jwt-token").
		Return(nil, farmerrors.New(farmerrors.KindNotRegistered, "unregistered")).Once()
}

func TestRegistrationCoordinator_RegistersOncePerPair(t *testing.T) {
	transport := &fakeTransport{
		permission:  service.PermissionStatus{Granted: true},
		deviceToken: "expo-token-1",
	}
	f := newCoordinatorFixture(t, transport, "user-1")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))

	expectUnregisteredProbe(f.backend)
	f.backend.On("RegisterPushToken", mock.Anything, "jwt-token", mock.MatchedBy(func(req service.RegisterTokenRequest) bool {
		return req.UserID == "user-1" &&
			req.DeviceToken == "expo-token-1" &&
			req.Device.Platform == "android" &&
			req.Device.DeviceName == "unknown"
	})).Return(nil).Once()

	state, err := f.coord.EnsureRegistered(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)

	// The device token and decoded user id are now persisted.
	deviceToken, err := f.credRepo.DeviceToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "expo-token-1", deviceToken)
	userID, err := f.credRepo.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// A second pass reuses the remembered pair without another register.
	state, err = f.coord.EnsureRegistered(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)
	f.backend.AssertExpectations(t)
}

func TestRegistrationCoordinator_InvalidateForcesReRegister(t *testing.T) {
	transport := &fakeTransport{
		permission:  service.PermissionStatus{Granted: true},
		deviceToken: "expo-token-1",
	}
	f := newCoordinatorFixture(t, transport, "user-1")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))

	expectUnregisteredProbe(f.backend)
	f.backend.On("RegisterPushToken", mock.Anything, "jwt-token", mock.Anything).Return(nil).Twice()

	_, err := f.coord.EnsureRegistered(ctx)
	require.NoError(t, err)

	f.coord.Invalidate()
	assert.Equal(t, usecase.StateNeedBackendRegister, f.coord.State())

	state, err := f.coord.EnsureRegistered(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)
	f.backend.AssertExpectations(t)
}

func TestRegistrationCoordinator_RetriesAfterBackendFailure(t *testing.T) {
	transport := &fakeTransport{
		permission:  service.PermissionStatus{Granted: true},
		deviceToken: "expo-token-1",
	}
	f := newCoordinatorFixture(t, transport, "user-1")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))

	expectUnregisteredProbe(f.backend)
	f.backend.On("RegisterPushToken", mock.Anything, "jwt-token", mock.Anything).
		Return(errors.New("boom")).Once()
	f.backend.On("RegisterPushToken", mock.Anything, "jwt-token", mock.Anything).
		Return(nil).Once()

	state, err := f.coord.EnsureRegistered(ctx)
	require.Error(t, err)
	assert.Equal(t, usecase.StateNeedBackendRegister, state)

	state, err = f.coord.EnsureRegistered(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)
	f.backend.AssertExpectations(t)
}

func TestRegistrationCoordinator_SkipsPostWhenServerKnowsDevice(t *testing.T) {
	transport := &fakeTransport{
		permission:  service.PermissionStatus{Granted: true},
		deviceToken: "expo-token-1",
	}
	f := newCoordinatorFixture(t, transport, "user-1")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))

	// A fresh process has no in-memory memo, but a successful preference
	// read proves the backend still holds the registration.
	f.backend.On("FetchPreferences", mock.Anything, "jwt-token").
		Return(map[string]any{"enabled": true}, nil).Once()

	state, err := f.coord.EnsureRegistered(ctx)

	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)
	f.backend.AssertNotCalled(t, "RegisterPushToken", mock.Anything, mock.Anything, mock.Anything)

	// Invalidate drops the confirmation and forces a real post.
	f.coord.Invalidate()
	f.backend.On("RegisterPushToken", mock.Anything, "jwt-token", mock.Anything).Return(nil).Once()

	state, err = f.coord.EnsureRegistered(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)
	f.backend.AssertExpectations(t)
}

func TestRegistrationCoordinator_PrefersStoredUserID(t *testing.T) {
	transport := &fakeTransport{
		permission:  service.PermissionStatus{Granted: true},
		deviceToken: "expo-token-1",
	}
	f := newCoordinatorFixture(t, transport, "decoded-user")
	ctx := context.Background()
	require.NoError(t, f.credRepo.SaveToken(ctx, "jwt-token"))
	require.NoError(t, f.credRepo.SaveUserID(ctx, "stored-user"))

	expectUnregisteredProbe(f.backend)
	f.backend.On("RegisterPushToken", mock.Anything, "jwt-token", mock.MatchedBy(func(req service.RegisterTokenRequest) bool {
		return req.UserID == "stored-user"
	})).Return(nil).Once()

	state, err := f.coord.EnsureRegistered(ctx)

	require.NoError(t, err)
	assert.Equal(t, usecase.StateRegistered, state)
	f.backend.AssertExpectations(t)
}
