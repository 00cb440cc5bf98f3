package plotting

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gait.report/internal/gait"
)

// WriteComparisonHTML renders one line chart per compared feature showing both
// subjects over frame index, with the feature similarity in each subtitle.
func WriteComparisonHTML(w io.Writer, a, b gait.FeatureSequence, labelA, labelB string, report *gait.SimilarityReport) error {
	if report == nil {
		return fmt.Errorf("nil similarity report")
	}

	page := components.NewPage()
	page.PageTitle = ComparisonTitle

	frames := make([]int, max(a.Len(), b.Len()))
	for i := range frames {
		frames[i] = i
	}

	for _, f := range report.Ordered() {
		score, _ := report.Score(f)
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: ComparisonTitle, Width: "900px", Height: "360px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    f.Name(),
				Subtitle: fmt.Sprintf("similarity %.2f%% over %d frames (overall %.2f%%)", score, report.Compared, report.Overall),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: featureUnit(f), NameLocation: "middle", NameGap: 40}),
		)
		line.SetXAxis(frames).
			AddSeries(labelA, lineData(a.Column(f))).
			AddSeries(labelB, lineData(b.Column(f)))
		page.AddCharts(line)
	}

	return page.Render(w)
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}
