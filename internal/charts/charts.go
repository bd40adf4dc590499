// Package charts renders report images.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"wealthplanner/internal/finance"
)

// SavingsTrendPNG draws the twelve monthly savings totals of r as a bar chart.
func SavingsTrendPNG(r finance.SavingsReport, currency string) ([]byte, error) {
	values := r.ChartValues()
	top := 1.0
	bars := make([]chart.Value, 0, len(values))
	for i, v := range values {
		if v > top {
			top = v
		}
		bars = append(bars, chart.Value{
			Label: finance.MonthLabels[i],
			Value: v,
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				FillColor:   chart.ColorGreen.WithAlpha(180),
			},
		})
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Savings %d", r.Year),
		TitleStyle: chart.Style{FontSize: 14, FontColor: chart.ColorBlack},
		Width:      960,
		Height:     400,
		BarWidth:   50,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			// A fixed range keeps an all-zero year renderable.
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%s%.0f", currency, f)
				}
				return ""
			},
			Style: chart.Style{FontSize: 10, FontColor: chart.ColorBlack},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render savings chart: %w", err)
	}
	return buffer.Bytes(), nil
}
