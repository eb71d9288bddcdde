package service

import (
	"context"

	"farmlink/internal/domain/entity"
)

// ChartSeries is one plotted line of aligned values.
type ChartSeries struct {
	Name   string
	Values []float64
}

// ChartSpec describes the chart embedded in PDF reports. Labels and every
// series share one index space.
type ChartSpec struct {
	Title  string
	Labels []string
	Series []ChartSeries
	Width  int
}

// ChartRenderer rasterizes a chart to PNG.
type ChartRenderer interface {
	RenderPNG(spec ChartSpec) ([]byte, error)
}

// ArtifactStore delivers export artifacts to the user's downloads area,
// creating it when absent. It returns the stored location.
type ArtifactStore interface {
	SaveDownload(ctx context.Context, artifact entity.ExportArtifact) (string, error)
}
