package charts

import (
	"strings"
	"testing"
	"time"

	"github.com/procsight/procsight/pkg/present"
)

func TestRenderCycleTimeScatter(t *testing.T) {
	svg := RenderCycleTime([]present.Point{
		{Label: "A", Value: 3.0},
		{Label: "B", Value: 1.0},
	})
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("output is not an SVG document")
	}
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("got %d markers, want 2", strings.Count(svg, "<circle"))
	}
	if !strings.Contains(svg, "Cycle Time per Case") {
		t.Error("title missing")
	}
}

func TestRenderFrequencyBars(t *testing.T) {
	svg := RenderFrequencyBars([]present.Point{
		{Label: "Submit", Value: 3},
		{Label: "Review", Value: 2},
		{Label: "Approve & Close", Value: 1},
	})
	if !strings.Contains(svg, "Submit") || !strings.Contains(svg, "Review") {
		t.Error("bar labels missing")
	}
	// XML special characters in labels must be escaped.
	if strings.Contains(svg, "Approve & Close") {
		t.Error("unescaped ampersand in output")
	}
	if !strings.Contains(svg, "Approve &amp; Close") {
		t.Error("escaped label missing")
	}
}

func TestRenderBarsEmpty(t *testing.T) {
	svg := RenderResourceBars(nil)
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("empty input must still produce a document")
	}
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	svg := RenderTimeline([]present.TimelineRow{
		{CaseID: "A", Start: base, End: base.Add(3 * time.Hour)},
		{CaseID: "B", Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
	})
	if strings.Count(svg, `rx="2"`) != 2 {
		t.Errorf("got %d case bars, want 2", strings.Count(svg, `rx="2"`))
	}
	if !strings.Contains(svg, "2024-05-10 09:00") {
		t.Error("time range start missing")
	}
}

func TestRenderTimelineEmpty(t *testing.T) {
	svg := RenderTimeline(nil)
	if !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("empty timeline must close the document")
	}
}

func TestPlotterLineSeries(t *testing.T) {
	p := NewSVGPlotter(400, 300)
	p.SetTitle("t").SetXLabel("x").SetYLabel("y")
	p.AddSeries([]float64{0, 1, 2}, []float64{1, 4, 9}, "squares", "")
	svg := p.Render()
	if !strings.Contains(svg, "<path") {
		t.Error("line series must render a path")
	}
	if !strings.Contains(svg, "squares") {
		t.Error("legend entry missing")
	}
}

func TestPlotterConstantSeries(t *testing.T) {
	// A flat series exercises the zero-range guard.
	p := NewSVGPlotter(400, 300)
	p.AddSeries([]float64{0, 1}, []float64{5, 5}, "", "")
	svg := p.Render()
	if !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("render failed on constant series")
	}
	if strings.Contains(svg, "NaN") {
		t.Error("output contains NaN coordinates")
	}
}
