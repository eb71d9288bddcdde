package usecase

import (
	"context"
	"time"

	"farmlink/internal/domain/entity"
)

// ExportRequest describes one export run. Validation requires at least one
// sensor, at least one metric, and a non-empty day range.
type ExportRequest struct {
	Sensors []entity.Sensor     `validate:"required,min=1"`
	Metrics []entity.Metric     `validate:"required,min=1"`
	Start   time.Time           `validate:"required"`
	End     time.Time           `validate:"required"`
	Format  entity.ExportFormat `validate:"required,oneof=CSV Excel PDF"`
}

// ExportResult reports the produced artifact and its delivery location.
type ExportResult struct {
	Artifact entity.ExportArtifact
	Location string

	// SensorsFetched counts sensors whose data arrived; failed sensors are
	// substituted with empty series rather than aborting the export.
	SensorsFetched int
}

// ExportUsecase fetches multi-sensor time series, aligns them on a shared
// timestamp axis, and produces CSV or PDF artifacts.
type ExportUsecase interface {
	Export(ctx context.Context, req ExportRequest) (ExportResult, error)
}
