// Package chart rasterizes aligned sensor series for PDF reports.
package chart

import (
	"bytes"

	"farmlink/internal/domain/service"

	"github.com/pkg/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
)

const (
	minWidth       = 900
	pixelsPerPoint = 6
	height         = 420
	maxTicks       = 12
)

type renderer struct{}

// NewRenderer creates the PNG chart renderer.
func NewRenderer() service.ChartRenderer {
	return &renderer{}
}

// RenderPNG draws every series over a shared label axis. The raster width
// grows with the number of aligned timestamps so dense ranges stay readable.
func (r *renderer) RenderPNG(spec service.ChartSpec) ([]byte, error) {
	if len(spec.Series) == 0 {
		return nil, errors.New("chart needs at least one series")
	}

	width := spec.Width
	if computed := len(spec.Labels) * pixelsPerPoint; computed > width {
		width = computed
	}
	if width < minWidth {
		width = minWidth
	}

	series := make([]gochart.Series, 0, len(spec.Series))
	for _, s := range spec.Series {
		xs := make([]float64, len(s.Values))
		for i := range s.Values {
			xs[i] = float64(i)
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Values,
		})
	}

	graph := gochart.Chart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		XAxis: gochart.XAxis{
			Ticks: labelTicks(spec.Labels),
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "render chart")
	}

	return buf.Bytes(), nil
}

// labelTicks thins the label axis down to at most maxTicks ticks.
func labelTicks(labels []string) []gochart.Tick {
	if len(labels) == 0 {
		return nil
	}

	step := (len(labels) + maxTicks - 1) / maxTicks
	if step < 1 {
		step = 1
	}

	ticks := make([]gochart.Tick, 0, maxTicks+1)
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: labels[i]})
	}

	last := len(labels) - 1
	if len(ticks) == 0 || ticks[len(ticks)-1].Value != float64(last) {
		ticks = append(ticks, gochart.Tick{Value: float64(last), Label: labels[last]})
	}

	return ticks
}
