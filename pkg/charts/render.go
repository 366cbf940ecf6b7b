package charts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/procsight/procsight/pkg/present"
)

// Default chart dimensions.
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

// RenderCycleTime renders per-case cycle times as a scatter chart. The
// X axis is the case index in sorted order; the label of each point is
// not drawn, labels belong in the accompanying data table.
func RenderCycleTime(points []present.Point) string {
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, pt := range points {
		x[i] = float64(i)
		y[i] = pt.Value
	}
	p := NewSVGPlotter(DefaultWidth, DefaultHeight)
	p.Scatter = true
	p.SetTitle("Cycle Time per Case").SetXLabel("Case").SetYLabel("Hours")
	p.AddSeries(x, y, "", "")
	return p.Render()
}

// RenderFrequencyBars renders activity frequencies as a bar chart.
func RenderFrequencyBars(points []present.Point) string {
	return renderBars(points, "Activity Frequency", "Activity", "Events")
}

// RenderResourceBars renders resource utilization as a bar chart.
func RenderResourceBars(points []present.Point) string {
	return renderBars(points, "Resource Utilization", "Resource", "Events")
}

// renderBars draws labeled vertical bars. Bars are drawn directly
// rather than through the series plotter because each bar carries a
// categorical label.
func renderBars(points []present.Point, title, xlabel, ylabel string) string {
	width, height := float64(DefaultWidth), float64(DefaultHeight)
	margin := map[string]float64{"top": 40, "right": 30, "bottom": 70, "left": 60}
	pw := width - margin["left"] - margin["right"]
	ph := height - margin["top"] - margin["bottom"]

	ymax := 0.0
	for _, pt := range points {
		if pt.Value > ymax {
			ymax = pt.Value
		}
	}
	if ymax == 0 {
		ymax = 1
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`,
		int(width), int(height)))
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="#f8f9fa" rx="8"/>`,
		int(width), int(height)))
	sb.WriteString(fmt.Sprintf(`<text x="%f" y="25" text-anchor="middle" font-family="Arial, sans-serif" font-size="16" font-weight="bold">%s</text>`,
		width/2, escape(title)))

	sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="2"/>`,
		margin["left"], margin["top"], margin["left"], margin["top"]+ph))
	sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="2"/>`,
		margin["left"], margin["top"]+ph, margin["left"]+pw, margin["top"]+ph))
	sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12">%s</text>`,
		margin["left"]+pw/2, height-10, escape(xlabel)))
	sb.WriteString(fmt.Sprintf(`<text x="15" y="%f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" transform="rotate(-90, 15, %f)">%s</text>`,
		margin["top"]+ph/2, margin["top"]+ph/2, escape(ylabel)))

	if n := len(points); n > 0 {
		slot := pw / float64(n)
		barWidth := slot * 0.7
		for i, pt := range points {
			barHeight := (pt.Value / (ymax * 1.1)) * ph
			bx := margin["left"] + float64(i)*slot + (slot-barWidth)/2
			by := margin["top"] + ph - barHeight
			sb.WriteString(fmt.Sprintf(`<rect x="%f" y="%f" width="%f" height="%f" fill="%s"/>`,
				bx, by, barWidth, barHeight, palette[1]))
			sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="middle" font-family="Arial, sans-serif" font-size="10">%s</text>`,
				bx+barWidth/2, by-5, formatValue(pt.Value)))
			cx := bx + barWidth/2
			sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="end" font-family="Arial, sans-serif" font-size="10" transform="rotate(-40, %f, %f)">%s</text>`,
				cx, margin["top"]+ph+15, cx, margin["top"]+ph+15, escape(pt.Label)))
		}
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

// RenderTimeline renders case spans as horizontal bars ordered top to
// bottom by start time.
func RenderTimeline(rows []present.TimelineRow) string {
	width, height := float64(DefaultWidth), float64(DefaultHeight)
	margin := map[string]float64{"top": 40, "right": 30, "bottom": 50, "left": 100}
	pw := width - margin["left"] - margin["right"]
	ph := height - margin["top"] - margin["bottom"]

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`,
		int(width), int(height)))
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="#f8f9fa" rx="8"/>`,
		int(width), int(height)))
	sb.WriteString(fmt.Sprintf(`<text x="%f" y="25" text-anchor="middle" font-family="Arial, sans-serif" font-size="16" font-weight="bold">Case Timeline</text>`,
		width/2))

	if len(rows) == 0 {
		sb.WriteString(`</svg>`)
		return sb.String()
	}

	tmin, tmax := rows[0].Start, rows[0].End
	for _, r := range rows {
		if r.Start.Before(tmin) {
			tmin = r.Start
		}
		if r.End.After(tmax) {
			tmax = r.End
		}
	}
	span := tmax.Sub(tmin).Seconds()
	if span == 0 {
		span = 1
	}

	sx := func(t time.Time) float64 {
		return margin["left"] + (t.Sub(tmin).Seconds()/span)*pw
	}

	slot := ph / float64(len(rows))
	barHeight := math.Min(slot*0.7, 18)
	for i, r := range rows {
		by := margin["top"] + float64(i)*slot + (slot-barHeight)/2
		bw := sx(r.End) - sx(r.Start)
		if bw < 2 {
			bw = 2
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%f" y="%f" width="%f" height="%f" fill="%s" rx="2"/>`,
			sx(r.Start), by, bw, barHeight, palette[i%len(palette)]))
		sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="end" font-family="Arial, sans-serif" font-size="10">%s</text>`,
			margin["left"]-5, by+barHeight/2+4, escape(r.CaseID)))
	}

	// Time axis with range endpoints
	sb.WriteString(fmt.Sprintf(`<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="#333" stroke-width="2"/>`,
		margin["left"], margin["top"]+ph, margin["left"]+pw, margin["top"]+ph))
	sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="start" font-family="Arial, sans-serif" font-size="10">%s</text>`,
		margin["left"], margin["top"]+ph+20, tmin.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf(`<text x="%f" y="%f" text-anchor="end" font-family="Arial, sans-serif" font-size="10">%s</text>`,
		margin["left"]+pw, margin["top"]+ph+20, tmax.Format("2006-01-02 15:04")))

	sb.WriteString(`</svg>`)
	return sb.String()
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
