package monitoring

import (
	"github.com/banshee-data/gait.report/internal/gait"
)

// LogObserver writes pipeline diagnostics through Logf. Label prefixes every line so
// the two sides of a comparison can be told apart. Skipped frames are logged with
// their offending values through Debugf.
type LogObserver struct {
	Label string
}

// NewLogObserver returns a LogObserver for the given subject label.
func NewLogObserver(label string) *LogObserver {
	return &LogObserver{Label: label}
}

func (o *LogObserver) prefix() string {
	if o.Label == "" {
		return ""
	}
	return "[" + o.Label + "] "
}

func (o *LogObserver) FrameSkipped(stage gait.Stage, index int, err error) {
	Debugf("%sskipping frame %d at %s: %v", o.prefix(), index, stage, err)
}

func (o *LogObserver) SequenceExtracted(s gait.ExtractSummary) {
	Logf("%sframes=%d first_frame_len=%d first_keypoint_len=%d extracted=%d malformed=%d",
		o.prefix(), s.Total, s.FirstFrameLen, s.FirstKeypointLen, s.Extracted, s.Malformed)
}

func (o *LogObserver) FeaturesComputed(s gait.FeatureSummary) {
	Logf("%svalid frames: %d, invalid frames: %d (%.2f%% valid)",
		o.prefix(), s.Valid, s.Dropped, s.ValidPercent())
	for _, f := range gait.AllFeatures() {
		st := s.Stats[f]
		Logf("%s%s - mean: %.4f std: %.4f", o.prefix(), f.Name(), st.Mean, st.Std)
	}
}

func (o *LogObserver) SequencesTruncated(lenA, lenB, n int) {
	Logf("%ssequence lengths differ (%d vs %d); comparing first %d frames", o.prefix(), lenA, lenB, n)
}
