package gait

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// zeroTol is the absolute tolerance below which a vector component counts as zero.
const zeroTol = 1e-8

// Feature indexes one column of a FeatureVector.
type Feature int

const (
	StepLength Feature = iota
	StanceWidth
	LeftKneeAngle
	RightKneeAngle

	NumFeatures = 4
)

var (
	featureNames = [NumFeatures]string{"Step Length", "Stance Width", "Left Knee Angle", "Right Knee Angle"}
	featureKeys  = [NumFeatures]string{"step_length", "stance_width", "left_knee_angle", "right_knee_angle"}
)

// AllFeatures lists the features in column order.
func AllFeatures() []Feature {
	return []Feature{StepLength, StanceWidth, LeftKneeAngle, RightKneeAngle}
}

// Name is the human-readable label used in reports.
func (f Feature) Name() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// Key is the snake_case identifier used in config and tabular output.
func (f Feature) Key() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("feature_%d", int(f))
	}
	return featureKeys[f]
}

func (f Feature) String() string { return f.Key() }

// ParseFeature accepts either the key or the display name.
func ParseFeature(s string) (Feature, error) {
	for i := 0; i < NumFeatures; i++ {
		if s == featureKeys[i] || s == featureNames[i] {
			return Feature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feature %q", s)
}

// FeatureVector holds step length, stance width and both knee angles for one frame.
type FeatureVector [NumFeatures]float64

// FeatureSequence is an ordered list of per-frame feature vectors.
type FeatureSequence []FeatureVector

// Len returns the number of frames.
func (s FeatureSequence) Len() int { return len(s) }

// Column copies feature f across all frames.
func (s FeatureSequence) Column(f Feature) []float64 {
	col := make([]float64, len(s))
	for i, v := range s {
		col[i] = v[f]
	}
	return col
}

// Table returns the sequence as a rows=frames by NumFeatures matrix.
// An empty sequence yields nil.
func (s FeatureSequence) Table() *mat.Dense {
	if len(s) == 0 {
		return nil
	}
	data := make([]float64, 0, len(s)*NumFeatures)
	for _, v := range s {
		data = append(data, v[:]...)
	}
	return mat.NewDense(len(s), NumFeatures, data)
}

// DegeneratePolicy controls what happens to a frame with an undefined feature.
type DegeneratePolicy string

const (
	// DegenerateDrop excludes the frame from the FeatureSequence.
	DegenerateDrop DegeneratePolicy = "drop"
	// DegenerateSentinelZero keeps the frame with the undefined feature set to 0.
	DegenerateSentinelZero DegeneratePolicy = "sentinel_zero"
)

// Valid reports whether p is a known policy.
func (p DegeneratePolicy) Valid() bool {
	return p == DegenerateDrop || p == DegenerateSentinelZero
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func isZeroVector(v Point) bool {
	return math.Abs(v.X) <= zeroTol && math.Abs(v.Y) <= zeroTol
}

// Distance is the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Angle returns the angle at p2 formed by p1 and p3, in degrees within [0, 180].
// ok is false when the angle is undefined: a non-finite coordinate, or p1 or p3
// coinciding with p2.
func Angle(p1, p2, p3 Point) (deg float64, ok bool) {
	if !finite(p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y) {
		return 0, false
	}
	v1 := p1.Sub(p2)
	v2 := p3.Sub(p2)
	if isZeroVector(v1) || isZeroVector(v2) {
		return 0, false
	}
	cos := (v1.X*v2.X + v1.Y*v2.Y) / (math.Hypot(v1.X, v1.Y) * math.Hypot(v2.X, v2.Y))
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// KneeAngle is the flexion angle at knee between the thigh and shank.
func KneeAngle(hip, knee, ankle Point) (float64, bool) {
	return Angle(hip, knee, ankle)
}

// Features computes the feature vector for one frame. ok is false when any feature
// is undefined and the policy is DegenerateDrop; under DegenerateSentinelZero the
// undefined features are reported as 0 and ok is true.
func Features(jf JointFrame, policy DegeneratePolicy) (fv FeatureVector, ok bool) {
	missing := false

	fv[StepLength] = Distance(jf.At(LeftAnkle), jf.At(RightAnkle))
	fv[StanceWidth] = Distance(jf.At(LeftHip), jf.At(RightHip))

	var lok, rok bool
	fv[LeftKneeAngle], lok = KneeAngle(jf.At(LeftHip), jf.At(LeftKnee), jf.At(LeftAnkle))
	fv[RightKneeAngle], rok = KneeAngle(jf.At(RightHip), jf.At(RightKnee), jf.At(RightAnkle))
	missing = !lok || !rok

	for i, v := range fv {
		if !finite(v) {
			missing = true
			fv[i] = 0
		}
	}

	if missing && policy != DegenerateSentinelZero {
		return fv, false
	}
	return fv, true
}

// FeatureStats summarises one feature column. Std is the population standard deviation.
type FeatureStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Range is Max - Min.
func (s FeatureStats) Range() float64 { return s.Max - s.Min }

// FeatureSummary records how many frames survived feature calculation.
type FeatureSummary struct {
	Valid   int                       `json:"valid"`
	Dropped int                       `json:"dropped"`
	Stats   [NumFeatures]FeatureStats `json:"stats"`
}

// ValidPercent is the share of frames kept, 0 when no frames were seen.
func (s FeatureSummary) ValidPercent() float64 {
	total := s.Valid + s.Dropped
	if total == 0 {
		return 0
	}
	return float64(s.Valid) / float64(total) * 100
}

// Summarize computes per-feature statistics over seq.
func Summarize(seq FeatureSequence) [NumFeatures]FeatureStats {
	var out [NumFeatures]FeatureStats
	if len(seq) == 0 {
		return out
	}
	for _, f := range AllFeatures() {
		col := seq.Column(f)
		mean, std := stat.PopMeanStdDev(col, nil)
		out[f] = FeatureStats{
			Mean: mean,
			Std:  std,
			Min:  floats.Min(col),
			Max:  floats.Max(col),
		}
	}
	return out
}
