package plotting

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/testutil"
)

func featureSequences(t *testing.T) (gait.FeatureSequence, gait.FeatureSequence, *gait.SimilarityReport) {
	t.Helper()
	p, err := gait.NewPipeline(gait.DefaultOptions(), nil)
	require.NoError(t, err)
	res, err := p.Run(testutil.WalkingSequence(24, 0.08, 0.4), testutil.WalkingSequence(20, 0.06, 0.5))
	require.NoError(t, err)
	return res.A.Sequence, res.B.Sequence, res.Report
}

func TestWriteComparisonPNG(t *testing.T) {
	t.Parallel()

	a, b, _ := featureSequences(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gait_comparison.png")

	require.NoError(t, WriteComparisonPNG(fsutil.OSFileSystem{}, path, a, b, "Person 1", "Person 2"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height, "2x2 grid is wider than tall")
}

func TestWriteComparisonPNG_EmptySide(t *testing.T) {
	t.Parallel()

	a, _, _ := featureSequences(t)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteComparisonPNG(mfs, "/plots/cmp.png", a, nil, "A", "B"))

	data, err := mfs.ReadFile("/plots/cmp.png")
	require.NoError(t, err)
	_, err = png.DecodeConfig(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestWriteKeypointFramePNG(t *testing.T) {
	t.Parallel()

	frame := testutil.RawFrame(testutil.StridePose(0.3, 0.08))
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteKeypointFramePNG(mfs, "/verify/frame_0.png", frame, 0, 7))

	data, err := mfs.ReadFile("/verify/frame_0.png")
	require.NoError(t, err)
	_, err = png.DecodeConfig(bytes.NewReader(data))
	assert.NoError(t, err)

	t.Run("short frame without skeleton", func(t *testing.T) {
		require.NoError(t, WriteKeypointFramePNG(mfs, "/verify/short.png", gait.RawFrame{0, 0, 0, 0, 0, 0, 0, 0.1, 0.2, 0.3, 0.4, 0.5}, 1, 7))
	})

	t.Run("no keypoints", func(t *testing.T) {
		err := WriteKeypointFramePNG(mfs, "/verify/empty.png", gait.RawFrame{1, 2, 3}, 2, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "frame 2")
	})
}

func TestWriteKeypointSequencePNG(t *testing.T) {
	t.Parallel()

	seq := testutil.WalkingSequence(8, 0.08, 0.4)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, WriteKeypointSequencePNG(mfs, "/verify/sequence.png", seq, 0, 5, 7))

	data, err := mfs.ReadFile("/verify/sequence.png")
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, 3*cfg.Height, "frames are laid out in one row")

	t.Run("clamps to sequence end", func(t *testing.T) {
		require.NoError(t, WriteKeypointSequencePNG(mfs, "/verify/tail.png", seq, 6, 5, 7))
		assert.True(t, mfs.Exists("/verify/tail.png"))
	})

	t.Run("start out of range", func(t *testing.T) {
		assert.Error(t, WriteKeypointSequencePNG(mfs, "/verify/bad.png", seq, 8, 5, 7))
		assert.Error(t, WriteKeypointSequencePNG(mfs, "/verify/bad.png", seq, -1, 5, 7))
	})

	t.Run("frame without keypoints", func(t *testing.T) {
		broken := append(gait.RawSequence{}, seq[:3]...)
		broken[1] = gait.RawFrame{1, 2, 3}
		err := WriteKeypointSequencePNG(mfs, "/verify/broken.png", broken, 0, 3, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "frame 1")
	})
}

func TestWriteComparisonHTML(t *testing.T) {
	t.Parallel()

	a, b, report := featureSequences(t)
	var buf bytes.Buffer
	require.NoError(t, WriteComparisonHTML(&buf, a, b, "Person 1", "Person 2", report))

	html := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(html), "<!DOCTYPE html>") || strings.Contains(html, "<html"))
	for _, f := range gait.AllFeatures() {
		assert.Contains(t, html, f.Name())
	}
	assert.Contains(t, html, "Person 1")
	assert.Contains(t, html, "Person 2")
}

func TestWriteComparisonHTML_FeatureSubset(t *testing.T) {
	t.Parallel()

	a, b, _ := featureSequences(t)
	report, err := gait.Compare(a, b, gait.CompareOptions{Features: []gait.Feature{gait.StepLength}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteComparisonHTML(&buf, a, b, "A", "B", report))
	assert.Contains(t, buf.String(), "Step Length")
	assert.NotContains(t, buf.String(), "Right Knee Angle")

	assert.Error(t, WriteComparisonHTML(&buf, a, b, "A", "B", nil))
}
