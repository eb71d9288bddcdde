package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"farmlink/internal/domain/entity"
	farmerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/usecase"

	"github.com/google/uuid"
)

type sessionService struct {
	credRepo     repository.CredentialRepository
	notifCache   repository.NotificationCache
	prefCache    repository.PreferenceCache
	backend      service.FarmBackend
	transport    service.PushTransport
	decoder      service.TokenDecoder
	registration usecase.RegistrationUsecase
	logger       *slog.Logger

	mu     sync.Mutex
	cancel service.CancelFunc
}

// NewSessionService creates the session orchestrator.
func NewSessionService(
	credRepo repository.CredentialRepository,
	notifCache repository.NotificationCache,
	prefCache repository.PreferenceCache,
	backend service.FarmBackend,
	transport service.PushTransport,
	decoder service.TokenDecoder,
	registration usecase.RegistrationUsecase,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		credRepo:     credRepo,
		notifCache:   notifCache,
		prefCache:    prefCache,
		backend:      backend,
		transport:    transport,
		decoder:      decoder,
		registration: registration,
		logger:       logger,
	}
}

// Start installs the push listeners and opportunistically drives registration
// when a credential is already stored. Registration failures are logged, not
// returned; the app must come up offline.
func (s *sessionService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()

		return nil
	}

	// Listener callbacks outlive the Start call.
	background := context.WithoutCancel(ctx)
	cancel, err := s.transport.Subscribe(
		func(n service.InboundNotification) { s.onReceive(background, n) },
		func(n service.InboundNotification) { s.onUserResponse(background, n) },
	)
	if err != nil {
		s.mu.Unlock()

		return farmerrors.Wrap(farmerrors.KindLocal, "subscribe to push transport", err)
	}
	s.cancel = cancel
	s.mu.Unlock()

	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token != "" {
		state, err := s.registration.EnsureRegistered(ctx)
		if err != nil {
			s.logger.Warn("startup registration incomplete",
				slog.String("state", string(state)),
				slog.Any("error", err))
		} else {
			s.logger.Info("startup registration", slog.String("state", string(state)))
		}
	}

	return nil
}

// onReceive journals an inbound push, gated by the notification preferences.
// Critical severities bypass every switch including quiet hours.
func (s *sessionService) onReceive(ctx context.Context, n service.InboundNotification) {
	severity := entity.MapSeverity(n.Data["alertLevel"], n.Data["severity"])

	prefs, found, err := s.prefCache.Load(ctx)
	if err != nil || !found {
		prefs = entity.DefaultPreferences()
	}
	if !prefs.ShouldEmit(severity, time.Now()) {
		s.logger.Debug("notification suppressed by preferences",
			slog.String("severity", string(severity)))

		return
	}

	entry := entity.LocalNotification{
		ID:        notificationID(n),
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		Timestamp: time.Now(),
	}
	if err := s.notifCache.Append(ctx, entry); err != nil {
		s.logger.Warn("journaling notification failed", slog.Any("error", err))
	}
}

// onUserResponse marks the tapped notification read.
func (s *sessionService) onUserResponse(ctx context.Context, n service.InboundNotification) {
	id := notificationID(n)
	if err := s.notifCache.MarkRead(ctx, id); err != nil {
		s.logger.Debug("mark-read on response failed",
			slog.String("id", id), slog.Any("error", err))
	}
}

// notificationID prefers the backend's anomaly id so journal entries line up
// with server history; pushes without one get a fresh id.
func notificationID(n service.InboundNotification) string {
	if id := n.Data["anomalyId"]; id != "" {
		return id
	}
	if id := n.Data["id"]; id != "" {
		return id
	}

	return uuid.NewString()
}

// SignIn exchanges credentials for a token and re-initializes the push stack
// for the new identity. Registration failures do not fail the sign-in.
func (s *sessionService) SignIn(ctx context.Context, email, password string) error {
	result, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	if err := s.credRepo.SaveToken(ctx, result.Token); err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "save token", err)
	}

	userID := result.UserID
	if userID == "" {
		userID = s.decoder.UserID(result.Token)
	}
	if userID != "" {
		if err := s.credRepo.SaveUserID(ctx, userID); err != nil {
			return farmerrors.Wrap(farmerrors.KindLocal, "save user id", err)
		}
	}

	s.registration.Reset()
	if state, err := s.registration.EnsureRegistered(ctx); err != nil {
		s.logger.Warn("post-sign-in registration incomplete",
			slog.String("state", string(state)),
			slog.Any("error", err))
	}

	return nil
}

// SignOut clears the stored identity and cancels listeners. The device token
// is kept so the next sign-in skips the token fetch.
func (s *sessionService) SignOut(ctx context.Context) error {
	if err := s.credRepo.DeleteToken(ctx); err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "delete token", err)
	}
	if err := s.credRepo.DeleteUserID(ctx); err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "delete user id", err)
	}

	s.registration.Reset()
	s.Stop()

	return nil
}

func (s *sessionService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
