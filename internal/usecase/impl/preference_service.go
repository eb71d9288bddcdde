package impl

import (
	"context"
	"encoding/json"
	"log/slog"

	"farmlink/internal/domain/entity"
	farmerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/usecase"
)

type preferenceService struct {
	prefCache    repository.PreferenceCache
	credRepo     repository.CredentialRepository
	backend      service.FarmBackend
	registration usecase.RegistrationUsecase
	logger       *slog.Logger
}

// NewPreferenceService creates the preference reconciler.
func NewPreferenceService(
	prefCache repository.PreferenceCache,
	credRepo repository.CredentialRepository,
	backend service.FarmBackend,
	registration usecase.RegistrationUsecase,
	logger *slog.Logger,
) usecase.PreferenceUsecase {
	return &preferenceService{
		prefCache:    prefCache,
		credRepo:     credRepo,
		backend:      backend,
		registration: registration,
		logger:       logger,
	}
}

// Read returns the server preferences merged onto defaults when reachable,
// the local cache otherwise. A missing push registration is surfaced on the
// result rather than as an error so callers can re-drive registration.
func (s *preferenceService) Read(ctx context.Context) (usecase.PreferenceRead, error) {
	local, found, err := s.prefCache.Load(ctx)
	if err != nil {
		return usecase.PreferenceRead{}, farmerrors.Wrap(farmerrors.KindLocal, "load cached preferences", err)
	}
	if !found {
		local = entity.DefaultPreferences()
	}

	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return usecase.PreferenceRead{}, farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token == "" {
		return usecase.PreferenceRead{Prefs: local}, nil
	}

	raw, err := s.backend.FetchPreferences(ctx, token)
	if err != nil {
		if farmerrors.IsKind(err, farmerrors.KindNotRegistered) {
			raw, err = s.reRegisterAndRefetch(ctx, token)
		}
		if err != nil {
			read := usecase.PreferenceRead{Prefs: local}
			if farmerrors.IsKind(err, farmerrors.KindNotRegistered) {
				read.NeedsTokenRegistration = true
			}
			s.logger.Debug("preference fetch fell back to local",
				slog.String("kind", string(farmerrors.KindOf(err))))

			return read, nil
		}
	}

	// An empty server record means the backend has nothing stored yet; keep
	// the local values instead of resetting to defaults.
	if len(raw) == 0 {
		return usecase.PreferenceRead{Prefs: local, FromServer: true}, nil
	}

	merged := entity.MergeOntoDefaults(raw)
	if err := s.prefCache.Save(ctx, merged); err != nil {
		s.logger.Warn("caching fetched preferences failed", slog.Any("error", err))
	}

	return usecase.PreferenceRead{Prefs: merged, FromServer: true}, nil
}

// reRegisterAndRefetch handles the backend losing this device's registration:
// re-drive the state machine once, then retry the read.
func (s *preferenceService) reRegisterAndRefetch(ctx context.Context, token string) (map[string]any, error) {
	s.registration.Invalidate()
	state, err := s.registration.EnsureRegistered(ctx)
	if err != nil {
		return nil, err
	}
	if state != usecase.StateRegistered {
		return nil, farmerrors.New(farmerrors.KindNotRegistered, "push token not registered")
	}

	return s.backend.FetchPreferences(ctx, token)
}

// Save commits locally first; the server write is best-effort and a failure
// degrades to LocalOnly instead of rolling back.
func (s *preferenceService) Save(ctx context.Context, prefs entity.PreferenceSet) (usecase.SaveResult, error) {
	if err := s.prefCache.Save(ctx, prefs); err != nil {
		return usecase.SaveResult{}, farmerrors.Wrap(farmerrors.KindLocal, "save preferences", err)
	}

	token, err := s.credRepo.Token(ctx)
	if err != nil || token == "" {
		return usecase.SaveResult{LocalOnly: true}, nil
	}

	if err := s.backend.SavePreferences(ctx, token, prefs); err != nil {
		if farmerrors.IsKind(err, farmerrors.KindNotRegistered) {
			s.registration.Invalidate()
			if state, rerr := s.registration.EnsureRegistered(ctx); rerr == nil && state == usecase.StateRegistered {
				err = s.backend.SavePreferences(ctx, token, prefs)
			}
		}
		if err != nil {
			s.logger.Debug("preference push deferred",
				slog.String("kind", string(farmerrors.KindOf(err))))

			return usecase.SaveResult{LocalOnly: true}, nil
		}
	}

	return usecase.SaveResult{}, nil
}

// SaveKey updates one recognized key and persists the full set. Unknown keys
// are rejected so typos do not silently vanish into the JSON round trip.
func (s *preferenceService) SaveKey(ctx context.Context, key string, value any) (usecase.SaveResult, error) {
	read, err := s.Read(ctx)
	if err != nil {
		return usecase.SaveResult{}, err
	}

	raw, err := toRawPreferences(read.Prefs)
	if err != nil {
		return usecase.SaveResult{}, err
	}
	if _, ok := raw[key]; !ok {
		return usecase.SaveResult{}, farmerrors.New(farmerrors.KindLocal, "unknown preference key: "+key)
	}
	raw[key] = value

	return s.Save(ctx, entity.MergeOntoDefaults(raw))
}

// SendTest asks the backend to push a test notification to this device.
// Registration must have completed; a missing registration is re-driven once.
func (s *preferenceService) SendTest(ctx context.Context) error {
	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token == "" {
		return farmerrors.New(farmerrors.KindAuthRequired, "sign in to send a test notification")
	}

	if err := s.backend.SendTestNotification(ctx, token); err != nil {
		if !farmerrors.IsKind(err, farmerrors.KindNotRegistered) {
			return err
		}

		s.registration.Invalidate()
		state, rerr := s.registration.EnsureRegistered(ctx)
		if rerr != nil {
			return rerr
		}
		if state != usecase.StateRegistered {
			return farmerrors.New(farmerrors.KindNotRegistered, "push token not registered")
		}

		return s.backend.SendTestNotification(ctx, token)
	}

	return nil
}

func toRawPreferences(prefs entity.PreferenceSet) (map[string]any, error) {
	buf, err := json.Marshal(prefs)
	if err != nil {
		return nil, farmerrors.Wrap(farmerrors.KindLocal, "encode preferences", err)
	}

	raw := make(map[string]any)
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, farmerrors.Wrap(farmerrors.KindLocal, "decode preferences", err)
	}

	return raw, nil
}
