package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/infra/persistence/blobstore"
	"farmlink/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStore backs the repository interfaces with a real fileblob bucket in a
// temporary directory.
func testStore(t *testing.T) *blobstore.Store {
	t.Helper()

	bucket, err := fileblob.OpenBucket(t.TempDir(), &fileblob.Options{CreateDir: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })

	return blobstore.NewWithBucket(bucket)
}

func testRepos(t *testing.T) (repository.CredentialRepository, repository.NotificationCache, repository.PreferenceCache) {
	t.Helper()

	store := testStore(t)

	return blobstore.NewCredentialRepository(store),
		blobstore.NewNotificationCache(store),
		blobstore.NewPreferenceCache(store)
}

// mockBackend is a testify mock of the platform REST API.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) SignIn(ctx context.Context, email, password string) (service.SignInResult, error) {
	args := m.Called(ctx, email, password)

	return args.Get(0).(service.SignInResult), args.Error(1)
}

func (m *mockBackend) RegisterPushToken(ctx context.Context, bearer string, req service.RegisterTokenRequest) error {
	args := m.Called(ctx, bearer, req)

	return args.Error(0)
}

func (m *mockBackend) FetchPreferences(ctx context.Context, bearer string) (map[string]any, error) {
	args := m.Called(ctx, bearer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockBackend) SavePreferences(ctx context.Context, bearer string, prefs entity.PreferenceSet) error {
	args := m.Called(ctx, bearer, prefs)

	return args.Error(0)
}

func (m *mockBackend) SendTestNotification(ctx context.Context, bearer string) error {
	args := m.Called(ctx, bearer)

	return args.Error(0)
}

func (m *mockBackend) AnomalyHistory(ctx context.Context, bearer string, q service.AnomalyQuery) ([]map[string]any, error) {
	args := m.Called(ctx, bearer, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]map[string]any), args.Error(1)
}

func (m *mockBackend) AnomalyStats(ctx context.Context, bearer string, days int) (entity.AnomalyStats, error) {
	args := m.Called(ctx, bearer, days)

	return args.Get(0).(entity.AnomalyStats), args.Error(1)
}

func (m *mockBackend) ResolveAnomaly(ctx context.Context, bearer, id, notes string) error {
	args := m.Called(ctx, bearer, id, notes)

	return args.Error(0)
}

func (m *mockBackend) DeviceData(ctx context.Context, bearer, deviceID string, start, end time.Time, limit int) ([]entity.TimeSeriesRow, error) {
	args := m.Called(ctx, bearer, deviceID, start, end, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]entity.TimeSeriesRow), args.Error(1)
}

// fakeTransport is a scripted push transport that records interactions and
// hands the installed handlers back to the test.
type fakeTransport struct {
	mu sync.Mutex

	permission  service.PermissionStatus
	grantOnAsk  bool
	deviceToken string

	permissionRequests int
	channelCalls       int
	cancelCalls        int
	scheduled          []service.LocalPush

	onReceive      service.ReceiveHandler
	onUserResponse service.ReceiveHandler
}

func (f *fakeTransport) QueryPermission(context.Context) (service.PermissionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.permission, nil
}

func (f *fakeTransport) RequestPermission(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.permissionRequests++
	if f.grantOnAsk {
		f.permission = service.PermissionStatus{Granted: true}
	}

	return f.permission.Granted, nil
}

func (f *fakeTransport) ObtainDeviceToken(context.Context, string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.deviceToken
}

func (f *fakeTransport) Subscribe(onReceive, onUserResponse service.ReceiveHandler) (service.CancelFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onReceive = onReceive
	f.onUserResponse = onUserResponse

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelCalls++
	}, nil
}

func (f *fakeTransport) ScheduleLocal(_ context.Context, push service.LocalPush) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scheduled = append(f.scheduled, push)

	return nil
}

func (f *fakeTransport) EnsureChannels(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.channelCalls++

	return nil
}

func (f *fakeTransport) deliver(n service.InboundNotification) {
	f.mu.Lock()
	handler := f.onReceive
	f.mu.Unlock()

	if handler != nil {
		handler(n)
	}
}

func (f *fakeTransport) respond(n service.InboundNotification) {
	f.mu.Lock()
	handler := f.onUserResponse
	f.mu.Unlock()

	if handler != nil {
		handler(n)
	}
}

// stubDecoder returns a fixed user id for every token.
type stubDecoder struct {
	id string
}

func (d stubDecoder) UserID(string) string { return d.id }

// stubRegistration is a scripted registration machine.
type stubRegistration struct {
	mu sync.Mutex

	state usecase.RegistrationState
	err   error

	ensureCalls     int
	invalidateCalls int
	resetCalls      int
}

func (s *stubRegistration) EnsureRegistered(context.Context) (usecase.RegistrationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureCalls++

	return s.state, s.err
}

func (s *stubRegistration) State() usecase.RegistrationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *stubRegistration) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidateCalls++
}

func (s *stubRegistration) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetCalls++
}

// stubRenderer returns fixed PNG bytes.
type stubRenderer struct {
	png   []byte
	specs []service.ChartSpec
}

func (r *stubRenderer) RenderPNG(spec service.ChartSpec) ([]byte, error) {
	r.specs = append(r.specs, spec)

	return r.png, nil
}

// recordingStore captures delivered artifacts.
type recordingStore struct {
	saved []entity.ExportArtifact
}

func (s *recordingStore) SaveDownload(_ context.Context, artifact entity.ExportArtifact) (string, error) {
	s.saved = append(s.saved, artifact)

	return "/downloads/" + artifact.Name, nil
}
