package dashboard

import (
	"fmt"
	"slices"

	"github.com/soyeahso/agentdash/internal/warehouse"
)

// Chart geometry, in SVG user units.
const (
	chartWidth   = 720
	chartHeight  = 260
	chartPadLeft = 48
	chartPadTop  = 16
	chartPadBot  = 40
)

var chartPalette = []string{"#29b5e8", "#ff9f36", "#7d44cf", "#5dcc8d", "#d45b90"}

// Bar is one rectangle of the chart.
type Bar struct {
	X, Y, W, H float64
	Color      string
	Title      string
}

// AxisLabel is a label under a group of bars.
type AxisLabel struct {
	X, Y float64
	Text string
}

// LegendEntry maps a series to its color.
type LegendEntry struct {
	Name  string
	Color string
}

// Chart is a grouped bar chart of market share per week and retailer.
type Chart struct {
	Width, Height int
	BaseY         float64
	Bars          []Bar
	Labels        []AxisLabel
	Legend        []LegendEntry
	MaxLabel      string
}

// buildChart lays out the trend series. Bar heights scale to the largest
// share in the series.
func buildChart(s *warehouse.TrendSeries) *Chart {
	c := &Chart{Width: chartWidth, Height: chartHeight, BaseY: chartHeight - chartPadBot}
	if s.Empty() {
		return c
	}

	weeks := s.Weeks()
	var retailers []string
	maxShare := 0.0
	for _, p := range s.Points {
		if !slices.Contains(retailers, p.Retailer) {
			retailers = append(retailers, p.Retailer)
		}
		maxShare = max(maxShare, p.MarketShare)
	}
	if maxShare <= 0 {
		maxShare = 1
	}
	c.MaxLabel = formatPercent(maxShare)

	for i, r := range retailers {
		c.Legend = append(c.Legend, LegendEntry{Name: r, Color: chartPalette[i%len(chartPalette)]})
	}

	plotW := float64(chartWidth - chartPadLeft)
	plotH := float64(chartHeight - chartPadTop - chartPadBot)
	groupW := plotW / float64(len(weeks))
	barW := groupW * 0.8 / float64(len(retailers))

	for wi, week := range weeks {
		groupX := float64(chartPadLeft) + float64(wi)*groupW
		c.Labels = append(c.Labels, AxisLabel{X: groupX + groupW/2, Y: c.BaseY + 16, Text: week})
		for _, p := range s.Points {
			if p.Week != week {
				continue
			}
			ri := slices.Index(retailers, p.Retailer)
			h := p.MarketShare / maxShare * plotH
			c.Bars = append(c.Bars, Bar{
				X:     groupX + groupW*0.1 + float64(ri)*barW,
				Y:     c.BaseY - h,
				W:     barW,
				H:     h,
				Color: chartPalette[ri%len(chartPalette)],
				Title: fmt.Sprintf("%s %s: %s", p.Retailer, week, formatPercent(p.MarketShare)),
			})
		}
	}
	return c
}
