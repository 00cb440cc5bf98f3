// Package plotting renders gait comparisons, keypoint frames and frame strips as PNG images
// (gonum/plot) and interactive HTML reports (go-echarts).
package plotting

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

// ComparisonTitle heads the comparison figure.
const ComparisonTitle = "Gait Pattern Comparison"

var (
	colorA = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorB = color.RGBA{R: 255, G: 127, B: 14, A: 255}

	skeletonColor = color.NRGBA{B: 255, A: 180}
	pointColor    = color.RGBA{R: 255, A: 255}
)

// Skeleton segments connect consecutive keypoints from index 11 to 16 (hips,
// knees and ankles of the 17-point pose layout).
const (
	skeletonFirst = 11
	skeletonLast  = 16
)

// WriteComparisonPNG draws each feature of a and b over frame index as a 2x2 grid
// and writes the PNG to path.
func WriteComparisonPNG(fsys fsutil.FileSystem, path string, a, b gait.FeatureSequence, labelA, labelB string) error {
	const rows, cols = 2, 2
	features := gait.AllFeatures()

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
		for c := range plots[r] {
			f := features[r*cols+c]
			p, err := featurePlot(f, a, b, labelA, labelB)
			if err != nil {
				return fmt.Errorf("plot %s: %w", f.Name(), err)
			}
			plots[r][c] = p
		}
	}

	img := vgimg.New(15*vg.Inch, 10*vg.Inch)
	dc := draw.New(img)
	drawFigureTitle(dc, ComparisonTitle)

	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Points(36),
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}

	return writePNG(fsys, path, vgimg.PngCanvas{Canvas: img})
}

func featurePlot(f gait.Feature, a, b gait.FeatureSequence, labelA, labelB string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = f.Name()
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = featureUnit(f)
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		label string
		seq   gait.FeatureSequence
		color color.Color
	}{
		{labelA, a, colorA},
		{labelB, b, colorB},
	} {
		if s.seq.Len() == 0 {
			continue
		}
		line, err := plotter.NewLine(seriesXYs(s.seq.Column(f)))
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func featureUnit(f gait.Feature) string {
	switch f {
	case gait.LeftKneeAngle, gait.RightKneeAngle:
		return "Angle (deg)"
	default:
		return "Distance (normalized)"
	}
}

func seriesXYs(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	return pts
}

// SequenceTitle heads the keypoint sequence strip.
const SequenceTitle = "Keypoint Sequence Verification"

// WriteKeypointFramePNG plots every keypoint of frame, joins the lower-body skeleton
// and labels its points.
func WriteKeypointFramePNG(fsys fsutil.FileSystem, path string, frame gait.RawFrame, index, metadataLen int) error {
	p, err := keypointPlot(frame, index, metadataLen, true)
	if err != nil {
		return err
	}
	p.Title.Text = fmt.Sprintf("Frame %d Keypoint Verification", index)

	wt, err := p.WriterTo(12*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return err
	}
	return writePNG(fsys, path, wt)
}

// WriteKeypointSequencePNG draws up to count consecutive frames of seq starting at
// start, one panel per frame in a single row.
func WriteKeypointSequencePNG(fsys fsutil.FileSystem, path string, seq gait.RawSequence, start, count, metadataLen int) error {
	if start < 0 || start >= len(seq) {
		return fmt.Errorf("start frame %d outside sequence of %d frames", start, len(seq))
	}
	count = min(count, len(seq)-start)
	if count <= 0 {
		return fmt.Errorf("no frames to draw from %d", start)
	}

	row := make([]*plot.Plot, count)
	for i := range row {
		idx := start + i
		p, err := keypointPlot(seq[idx], idx, metadataLen, false)
		if err != nil {
			return err
		}
		p.Title.Text = fmt.Sprintf("Frame %d", idx)
		row[i] = p
	}
	plots := [][]*plot.Plot{row}

	img := vgimg.New(20*vg.Inch, 4*vg.Inch)
	dc := draw.New(img)
	drawFigureTitle(dc, SequenceTitle)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      count,
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Points(30),
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for c, p := range row {
		p.Draw(canvases[0][c])
	}

	return writePNG(fsys, path, vgimg.PngCanvas{Canvas: img})
}

// keypointPlot scatters the keypoints of frame and joins points 11 to 16.
// withLabels adds the legend and per-point annotations.
func keypointPlot(frame gait.RawFrame, index, metadataLen int, withLabels bool) (*plot.Plot, error) {
	var kp []float64
	if len(frame) > metadataLen {
		kp = frame[metadataLen:]
	}
	n := len(kp) / 2
	if n == 0 {
		return nil, fmt.Errorf("frame %d has no keypoints", index)
	}

	pts := make(plotter.XYs, n)
	for i := range pts {
		pts[i] = plotter.XY{X: kp[2*i], Y: kp[2*i+1]}
	}

	p := plot.New()
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(3)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)

	for i := skeletonFirst; i < min(skeletonLast, n-1); i++ {
		seg, err := plotter.NewLine(plotter.XYs{pts[i], pts[i+1]})
		if err != nil {
			return nil, err
		}
		seg.Color = skeletonColor
		seg.Width = vg.Points(2)
		p.Add(seg)
	}

	if !withLabels {
		return p, nil
	}
	p.Legend.Add("Keypoints", sc)
	if n > skeletonFirst {
		last := min(skeletonLast+1, n)
		lbl := plotter.XYLabels{XYs: pts[skeletonFirst:last]}
		for i := skeletonFirst; i < last; i++ {
			lbl.Labels = append(lbl.Labels, fmt.Sprintf("Point %d", i))
		}
		labels, err := plotter.NewLabels(lbl)
		if err != nil {
			return nil, err
		}
		labels.Offset = vg.Point{X: vg.Points(5), Y: vg.Points(5)}
		p.Add(labels)
	}
	return p, nil
}

func drawFigureTitle(dc draw.Canvas, title string) {
	style := text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, 16),
		XAlign:  text.XCenter,
		YAlign:  text.YTop,
		Handler: plot.DefaultTextHandler,
	}
	top := dc.Max.Y - vg.Points(8)
	dc.FillText(style, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: top}, title)
}

func writePNG(fsys fsutil.FileSystem, path string, wt io.WriterTo) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
