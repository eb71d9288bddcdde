package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"farmlink/config"
	"farmlink/internal/domain/entity"
	farmerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/repository"
	"farmlink/internal/domain/service"
	"farmlink/internal/infra/export"
	"farmlink/internal/usecase"
	"farmlink/internal/util"

	"github.com/go-playground/validator/v10"
)

// deviceDataLimit is the per-sensor sample cap for export fetches.
const deviceDataLimit = 10000

// shortRange is the widest day range still labelled with clock times; wider
// ranges switch to day/month labels.
const shortRange = 48 * time.Hour

type exportService struct {
	backend  service.FarmBackend
	credRepo repository.CredentialRepository
	renderer service.ChartRenderer
	store    service.ArtifactStore
	validate *validator.Validate
	logger   *slog.Logger

	dashboardBaseURL string
	chartWidth       int
}

// NewExportService creates the sensor-data export engine.
func NewExportService(
	cfg *config.Config,
	backend service.FarmBackend,
	credRepo repository.CredentialRepository,
	renderer service.ChartRenderer,
	store service.ArtifactStore,
	logger *slog.Logger,
) usecase.ExportUsecase {
	s := &exportService{
		backend:  backend,
		credRepo: credRepo,
		renderer: renderer,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
	if cfg.Export != nil {
		s.dashboardBaseURL = cfg.Export.DashboardBaseURL
		s.chartWidth = cfg.Export.ChartWidth
	}

	return s
}

func (s *exportService) Export(ctx context.Context, req usecase.ExportRequest) (usecase.ExportResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return usecase.ExportResult{}, farmerrors.Wrap(farmerrors.KindLocal, "invalid export request", err)
	}
	if req.End.Before(req.Start) {
		return usecase.ExportResult{}, farmerrors.New(farmerrors.KindLocal, "export range ends before it starts")
	}

	token, err := s.credRepo.Token(ctx)
	if err != nil {
		return usecase.ExportResult{}, farmerrors.Wrap(farmerrors.KindLocal, "read token", err)
	}
	if token == "" {
		return usecase.ExportResult{}, farmerrors.New(farmerrors.KindAuthRequired, "sign in to export sensor data")
	}

	start := startOfDay(req.Start)
	end := endOfDay(req.End)

	series, fetched := s.fetchSeries(ctx, token, req.Sensors, start, end)

	var artifact entity.ExportArtifact
	switch req.Format {
	case entity.FormatPDF:
		artifact, err = s.composeReport(req, series, start, end)
	default:
		// CSV and Excel share bytes; only the requested label differs.
		artifact, err = composeCSV(req, series, start, end)
	}
	if err != nil {
		return usecase.ExportResult{}, err
	}

	location, err := s.store.SaveDownload(ctx, artifact)
	if err != nil {
		return usecase.ExportResult{}, farmerrors.Wrap(farmerrors.KindLocal, "deliver export artifact", err)
	}

	s.logger.Info("export complete",
		slog.String("format", string(req.Format)),
		slog.String("location", location),
		slog.String("size", util.FormatBytes(int64(len(artifact.Content)))),
		slog.Int("sensors", len(req.Sensors)),
		slog.Int("fetched", fetched))

	return usecase.ExportResult{Artifact: artifact, Location: location, SensorsFetched: fetched}, nil
}

// fetchSeries pulls each sensor's samples. A failed sensor becomes an empty
// series so one offline device does not sink the whole export.
func (s *exportService) fetchSeries(
	ctx context.Context,
	token string,
	sensors []entity.Sensor,
	start, end time.Time,
) ([]entity.SensorSeries, int) {
	series := make([]entity.SensorSeries, 0, len(sensors))
	fetched := 0
	for _, sensor := range sensors {
		rows, err := s.backend.DeviceData(ctx, token, sensor.ID, start, end, deviceDataLimit)
		if err != nil {
			s.logger.Warn("sensor data fetch failed, exporting empty series",
				slog.String("sensorId", sensor.ID),
				slog.String("kind", string(farmerrors.KindOf(err))))
			rows = nil
		} else {
			fetched++
		}
		series = append(series, entity.SensorSeries{
			SensorID:   sensor.ID,
			SensorName: sensor.Name,
			Rows:       rows,
		})
	}

	return series, fetched
}

func composeCSV(req usecase.ExportRequest, series []entity.SensorSeries, start, end time.Time) (entity.ExportArtifact, error) {
	content, err := export.WriteCSV(series, req.Metrics)
	if err != nil {
		return entity.ExportArtifact{}, farmerrors.Wrap(farmerrors.KindLocal, "write csv", err)
	}

	return entity.ExportArtifact{
		Name:     fmt.Sprintf("export_%s_%s.%s", start.Format("2006-01-02"), end.Format("2006-01-02"), req.Format.Extension()),
		MIMEType: "text/csv",
		Content:  content,
	}, nil
}

func (s *exportService) composeReport(req usecase.ExportRequest, series []entity.SensorSeries, start, end time.Time) (entity.ExportArtifact, error) {
	labels, chartSeries := alignForChart(series, req.Metrics, end.Sub(start) <= shortRange)

	chartPNG, err := s.renderer.RenderPNG(service.ChartSpec{
		Title:  "Sensor Data",
		Labels: labels,
		Series: chartSeries,
		Width:  s.chartWidth,
	})
	if err != nil {
		return entity.ExportArtifact{}, farmerrors.Wrap(farmerrors.KindLocal, "render chart", err)
	}

	content, err := export.ComposePDF(export.ReportMeta{
		Sensors:   req.Sensors,
		Metrics:   req.Metrics,
		Start:     start,
		End:       end,
		Generated: time.Now(),
	}, chartPNG, s.dashboardBaseURL)
	if err != nil {
		return entity.ExportArtifact{}, farmerrors.Wrap(farmerrors.KindLocal, "compose pdf", err)
	}

	return entity.ExportArtifact{
		Name:     fmt.Sprintf("report_%s_%s.pdf", start.Format("2006-01-02"), end.Format("2006-01-02")),
		MIMEType: "application/pdf",
		Content:  content,
	}, nil
}

// alignForChart projects every sensor's samples onto the union of observed
// timestamps. Missing readings plot as zero so all series share one axis.
func alignForChart(series []entity.SensorSeries, metrics []entity.Metric, clockLabels bool) ([]string, []service.ChartSeries) {
	stampSet := make(map[time.Time]struct{})
	for _, sensor := range series {
		for _, row := range sensor.Rows {
			stampSet[row.Timestamp] = struct{}{}
		}
	}

	stamps := make([]time.Time, 0, len(stampSet))
	for t := range stampSet {
		stamps = append(stamps, t)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	layout := "02/01"
	if clockLabels {
		layout = "15:04"
	}
	labels := make([]string, len(stamps))
	index := make(map[time.Time]int, len(stamps))
	for i, t := range stamps {
		labels[i] = t.Format(layout)
		index[t] = i
	}

	var chartSeries []service.ChartSeries
	for _, sensor := range series {
		for _, metric := range metrics {
			values := make([]float64, len(stamps))
			for _, row := range sensor.Rows {
				if v := row.Value(metric); v != nil {
					values[index[row.Timestamp]] = *v
				}
			}
			chartSeries = append(chartSeries, service.ChartSeries{
				Name:   fmt.Sprintf("%s %s", sensor.SensorName, metric),
				Values: values,
			})
		}
	}

	return labels, chartSeries
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
