package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"farmlink/internal/domain/entity"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// ReportMeta is the metadata block printed at the top of a PDF report.
type ReportMeta struct {
	Sensors   []entity.Sensor
	Metrics   []entity.Metric
	Start     time.Time
	End       time.Time
	Generated time.Time
}

// ComposePDF lays out the report: title, metadata, the rasterized chart, and
// a QR deep link into the dashboard when a base URL is configured.
func ComposePDF(meta ReportMeta, chartPNG []byte, dashboardURL string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sensor Data Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Sensor Data Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	names := make([]string, len(meta.Sensors))
	for i, s := range meta.Sensors {
		names[i] = s.Name
	}
	metricNames := make([]string, len(meta.Metrics))
	for i, m := range meta.Metrics {
		metricNames[i] = string(m)
	}

	pdf.SetFont("Helvetica", "", 10)
	writeMetaLine(pdf, "Zones", strings.Join(names, ", "))
	writeMetaLine(pdf, "Date range", fmt.Sprintf("%s - %s",
		meta.Start.Format("2006-01-02"), meta.End.Format("2006-01-02")))
	writeMetaLine(pdf, "Metrics", strings.Join(metricNames, ", "))
	writeMetaLine(pdf, "Generated", meta.Generated.Format(time.RFC3339))
	pdf.Ln(4)

	if len(chartPNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("chart", opts, bytes.NewReader(chartPNG))
		// Full content width, aspect ratio preserved by zero height.
		pdf.ImageOptions("chart", 10, pdf.GetY(), 190, 0, true, opts, 0, "")
		pdf.Ln(6)
	}

	if dashboardURL != "" {
		qr, err := qrcode.Encode(dashboardURL, qrcode.Medium, 256)
		if err != nil {
			return nil, errors.Wrap(err, "encode dashboard qr")
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
		pdf.ImageOptions("qr", 10, pdf.GetY(), 28, 28, true, opts, 0, dashboardURL)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, "Scan to open this report in the dashboard", "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}

	return buf.Bytes(), nil
}

func writeMetaLine(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(30, 6, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}
