package monitoring

import (
	"fmt"
	"strings"
	"testing"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestLogObserver_Summaries(t *testing.T) {
	lines := captureLogs(t)
	obs := NewLogObserver("A")

	obs.SequenceExtracted(gait.ExtractSummary{Total: 10, Extracted: 9, Malformed: 1, FirstFrameLen: 58, FirstKeypointLen: 51})
	obs.FeaturesComputed(gait.FeatureSummary{Valid: 3, Dropped: 1})
	obs.SequencesTruncated(10, 7, 7)

	joined := strings.Join(*lines, "\n")
	assert.Contains(t, joined, "[A] frames=10 first_frame_len=58")
	assert.Contains(t, joined, "75.00% valid")
	assert.Contains(t, joined, "Right Knee Angle - mean")
	assert.Contains(t, joined, "comparing first 7 frames")
}

func TestLogObserver_VerboseSkips(t *testing.T) {
	lines := captureLogs(t)

	t.Cleanup(func() { SetVerbose(false) })

	obs := NewLogObserver("")
	SetVerbose(false)
	obs.FrameSkipped(gait.StageFeatures, 4, gait.ErrDegenerateGeometry)
	assert.Empty(t, *lines)

	SetVerbose(true)
	obs.FrameSkipped(gait.StageFeatures, 4, gait.ErrDegenerateGeometry)
	assert.Equal(t, []string{"skipping frame 4 at features: gait: degenerate geometry"}, *lines)
}

func TestLogObserver_ImplementsObserver(t *testing.T) {
	var _ gait.Observer = (*LogObserver)(nil)
}
