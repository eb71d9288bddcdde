package impl

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"farmlink/internal/domain/entity"
	farmerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/usecase"

	"github.com/google/uuid"
)

const anomalyPageSize = 100

// resolveNote accompanies resolutions initiated from this client.
const resolveNote = "Resolved from mobile app"

// anomalyFieldPaths maps each canonical field to the record paths that have
// carried it across backend versions, probed in order. Dots descend into
// nested objects.
var anomalyFieldPaths = map[string][]string{
	"id":                {"id", "_id", "anomalyId"},
	"type":              {"anomalyType", "type"},
	"message":           {"message", "alertMessage.message", "details"},
	"alertLevel":        {"alertLevel", "alert_level", "summary.alertLevel"},
	"severity":          {"severity"},
	"deviceLabel":       {"deviceName", "device_name", "deviceId", "device_id"},
	"timestamp":         {"timestamp", "createdAt", "created_at"},
	"detectionMethod":   {"detectionMethod", "detection_method"},
	"recommendedAction": {"recommendedAction", "recommended_action"},
	"snapshot":          {"sensorData", "sensor_data", "data"},
}

type anomalyService struct {
	backend    service.FarmBackend
	credRepo   repository.CredentialRepository
	notifCache repository.NotificationCache
	logger     *slog.Logger

	mu   sync.Mutex
	feed []entity.AnomalyEvent
}

// NewAnomalyService creates the merged anomaly feed.
func NewAnomalyService(
	backend service.FarmBackend,
	credRepo repository.CredentialRepository,
	notifCache repository.NotificationCache,
	logger *slog.Logger,
) usecase.AnomalyUsecase {
	return &anomalyService{
		backend:    backend,
		credRepo:   credRepo,
		notifCache: notifCache,
		logger:     logger,
	}
}

// Load merges server anomaly history with the local journal. Server records
// win over journal entries with the same id. A server failure degrades to the
// journal alone; only local storage failures are errors.
func (s *anomalyService) Load(ctx context.Context) ([]entity.AnomalyEvent, error) {
	journal, err := s.notifCache.List(ctx)
	if err != nil {
		return nil, farmerrors.Wrap(farmerrors.KindLocal, "list notification journal", err)
	}

	local := make([]entity.AnomalyEvent, 0, len(journal))
	for _, n := range journal {
		local = append(local, n.ToAnomalyEvent())
	}

	var server []entity.AnomalyEvent
	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return nil, farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token != "" {
		records, err := s.backend.AnomalyHistory(ctx, token, service.AnomalyQuery{
			Limit: anomalyPageSize,
			Page:  1,
			Sort:  "desc",
		})
		if err != nil {
			s.logger.Debug("anomaly history unavailable, using local journal",
				slog.String("kind", string(farmerrors.KindOf(err))))
		} else {
			server = make([]entity.AnomalyEvent, 0, len(records))
			for _, record := range records {
				server = append(server, normalizeAnomaly(record))
			}
		}
	}

	feed := mergeFeed(server, local)

	s.mu.Lock()
	s.feed = feed
	s.mu.Unlock()

	return feed, nil
}

func (s *anomalyService) Filter(filter usecase.SeverityFilter) []entity.AnomalyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter == "" || filter == usecase.FilterAll {
		return append([]entity.AnomalyEvent(nil), s.feed...)
	}

	out := make([]entity.AnomalyEvent, 0, len(s.feed))
	for _, e := range s.feed {
		if string(e.Severity) == string(filter) {
			out = append(out, e)
		}
	}

	return out
}

// Resolve marks the event resolved. Local events are marked read in the
// journal; server events are resolved on the backend with a note. The feed
// updates optimistically; a backend failure surfaces the error but keeps the
// optimistic state, and the next Load restores server truth.
func (s *anomalyService) Resolve(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()

		return farmerrors.New(farmerrors.KindLocal, "unknown anomaly: "+id)
	}
	if s.feed[idx].Resolved {
		s.mu.Unlock()

		return nil
	}
	source := s.feed[idx].Source
	s.feed[idx].Resolved = true
	s.feed[idx].Read = true
	s.mu.Unlock()

	if source == entity.SourceLocal {
		if err := s.notifCache.MarkRead(ctx, id); err != nil {
			return farmerrors.Wrap(farmerrors.KindLocal, "mark notification read", err)
		}

		return nil
	}

	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token == "" {
		return farmerrors.New(farmerrors.KindAuthRequired, "sign in to resolve anomalies")
	}

	return s.backend.ResolveAnomaly(ctx, token, id, resolveNote)
}

// DeleteOne removes the event from the feed. Local events leave the journal;
// server events leave only the projection and re-surface on the next load.
func (s *anomalyService) DeleteOne(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()

		return nil
	}
	source := s.feed[idx].Source
	s.feed = append(s.feed[:idx], s.feed[idx+1:]...)
	s.mu.Unlock()

	if source == entity.SourceLocal {
		if err := s.notifCache.Remove(ctx, id); err != nil {
			return farmerrors.Wrap(farmerrors.KindLocal, "remove notification", err)
		}
	}

	return nil
}

func (s *anomalyService) DeleteAll(ctx context.Context) error {
	if err := s.notifCache.Clear(ctx); err != nil {
		return farmerrors.Wrap(farmerrors.KindLocal, "clear notification journal", err)
	}

	s.mu.Lock()
	s.feed = nil
	s.mu.Unlock()

	return nil
}

func (s *anomalyService) Stats(ctx context.Context, days int) (entity.AnomalyStats, error) {
	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return entity.AnomalyStats{}, farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token == "" {
		return entity.AnomalyStats{}, farmerrors.New(farmerrors.KindAuthRequired, "sign in to view anomaly statistics")
	}

	return s.backend.AnomalyStats(ctx, token, days)
}

// indexOf requires c.mu held.
func (s *anomalyService) indexOf(id string) int {
	for i, e := range s.feed {
		if e.ID == id {
			return i
		}
	}

	return -1
}

// mergeFeed de-duplicates by id with server records winning, then sorts by
// timestamp descending. The sort is stable so records sharing a timestamp
// keep their arrival order.
func mergeFeed(server, local []entity.AnomalyEvent) []entity.AnomalyEvent {
	seen := make(map[string]struct{}, len(server))
	feed := make([]entity.AnomalyEvent, 0, len(server)+len(local))
	for _, e := range server {
		seen[e.ID] = struct{}{}
		feed = append(feed, e)
	}
	for _, e := range local {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		feed = append(feed, e)
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})

	return feed
}

// normalizeAnomaly maps one raw history record to the canonical event shape,
// tolerating the field-name drift across backend versions.
func normalizeAnomaly(record map[string]any) entity.AnomalyEvent {
	id := pickString(record, "id")
	if id == "" {
		id = uuid.NewString()
	}

	anomalyType := pickString(record, "type")
	confidence := pickFloat(record, "confidence")
	method := strings.ToLower(pickString(record, "detectionMethod"))

	e := entity.AnomalyEvent{
		ID:                id,
		Title:             entity.TitleForAnomalyType(anomalyType),
		Message:           pickString(record, "message"),
		DeviceLabel:       pickString(record, "deviceLabel"),
		Severity:          entity.MapSeverity(pickString(record, "alertLevel"), pickString(record, "severity")),
		Timestamp:         pickTime(record, "timestamp"),
		Resolved:          pickBool(record, "resolved", "isResolved", "is_resolved"),
		Confidence:        confidence,
		DetectionMethod:   method,
		MLBacked:          method == "ml_based" || method == "hybrid" || confidence > 0 || strings.EqualFold(anomalyType, "ml_detected"),
		RecommendedAction: pickString(record, "recommendedAction"),
		Source:            entity.SourceServer,
	}
	e.Read = e.Resolved

	if snapshot := pickSnapshot(record); !snapshot.Empty() {
		e.Snapshot = &snapshot
	}

	return e
}

// lookupPath walks a dot-separated path through nested maps.
func lookupPath(record map[string]any, path string) (any, bool) {
	cur := any(record)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

func pickString(record map[string]any, field string) string {
	for _, path := range anomalyFieldPaths[field] {
		if v, ok := lookupPath(record, path); ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		}
	}

	return ""
}

func pickFloat(record map[string]any, key string) float64 {
	if v, ok := record[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}

	return 0
}

func pickBool(record map[string]any, keys ...string) bool {
	for _, key := range keys {
		if v, ok := record[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}

	return false
}

func pickTime(record map[string]any, field string) time.Time {
	for _, path := range anomalyFieldPaths[field] {
		v, ok := lookupPath(record, path)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}

func pickSnapshot(record map[string]any) entity.SensorSnapshot {
	var snapshot entity.SensorSnapshot
	for _, path := range anomalyFieldPaths["snapshot"] {
		v, ok := lookupPath(record, path)
		if !ok {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		snapshot.Temperature = floatField(m, "temperature")
		snapshot.Humidity = floatField(m, "humidity")
		snapshot.VPD = floatField(m, "vpd")
		snapshot.DewPoint = floatField(m, "dewPoint")
		if snapshot.DewPoint == nil {
			snapshot.DewPoint = floatField(m, "dew_point")
		}

		break
	}

	return snapshot
}

func floatField(m map[string]any, key string) *float64 {
	if v, ok := m[key].(float64); ok {
		return &v
	}

	return nil
}
