package labels

import (
	"math"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Range is a closed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary describes the keypoint content of a label sequence.
type Summary struct {
	Frames            int   `json:"frames"`
	KeypointsPerFrame int   `json:"keypoints_per_frame"`
	FrameLen          int   `json:"frame_len"`
	X                 Range `json:"x"`
	Y                 Range `json:"y"`
}

// SplitCoordinates splits a keypoint block into x and y coordinates. A trailing odd
// value is ignored.
func SplitCoordinates(kp []float64) (xs, ys []float64) {
	n := len(kp) / 2
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = kp[2*i]
		ys[i] = kp[2*i+1]
	}
	return xs, ys
}

// Summarize reports frame count, keypoints per frame (from the first frame) and the
// coordinate ranges over every frame. Ranges are zero when no keypoints are present.
func Summarize(seq gait.RawSequence, metadataLen int) Summary {
	s := Summary{Frames: len(seq)}
	if len(seq) == 0 {
		return s
	}
	s.FrameLen = len(seq[0])
	if len(seq[0]) > metadataLen {
		s.KeypointsPerFrame = (len(seq[0]) - metadataLen) / 2
	}

	x := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	y := x
	seen := false
	for _, frame := range seq {
		if len(frame) <= metadataLen {
			continue
		}
		xs, ys := SplitCoordinates(frame[metadataLen:])
		for i := range xs {
			seen = true
			x.Min, x.Max = math.Min(x.Min, xs[i]), math.Max(x.Max, xs[i])
			y.Min, y.Max = math.Min(y.Min, ys[i]), math.Max(y.Max, ys[i])
		}
	}
	if seen {
		s.X, s.Y = x, y
	}
	return s
}
