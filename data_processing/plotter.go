package data_processing

import (
	"errors"
	"fmt"
	"os"

	"github.com/UNH-DistSyS/UNH-SEM/measurement"
	"github.com/wcharczuk/go-chart"
	"github.com/wcharczuk/go-chart/drawing"
)

var ErrNoRows = errors.New("nothing to plot")

// PlotPermits renders one bar per completed task with the permits that were free while it held its own.
// Bars are labelled with the worker that ran the task.
func PlotPermits(rows []measurement.Row, capacity int64, filename, title string) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	width := 100 * (len(rows) + 2)
	if width < 800 {
		width = 800
	}
	barStyle := chart.Style{
		FillColor:   drawing.ColorFromHex("13c158"),
		StrokeColor: drawing.ColorFromHex("c19641"),
		StrokeWidth: 1,
	}

	values := make([]chart.Value, 0, len(rows))
	for i, row := range rows {
		values = append(values, chart.Value{
			Value: float64(row.AvailablePermits),
			Label: fmt.Sprintf("%d %v", i+1, row.Worker),
			Style: barStyle,
		})
	}

	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.StyleShow(),
		Background: chart.Style{
			Padding: chart.Box{
				Top:   100,
				Right: 20,
			},
		},
		Width:      width,
		Height:     700,
		BarWidth:   (width / len(rows)) - 20,
		BarSpacing: 20,
		Bars:       values,
	}

	ticks := make([]chart.Tick, 0, capacity+1)
	for i := int64(0); i <= capacity; i++ {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
	}
	graph.YAxis.Range = &chart.ContinuousRange{
		Min: 0,
		Max: float64(capacity),
	}
	graph.YAxis.Ticks = ticks
	graph.YAxis.Style.Show = true
	graph.YAxis.GridMajorStyle.Show = true
	graph.YAxis.GridMinorStyle.Show = false

	graph.XAxis.Show = true
	graph.XAxis.FontSize = 8
	graph.XAxis.TextRotationDegrees = 45

	// Save the chart as a PNG file
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
