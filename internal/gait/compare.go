package gait

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Normalization selects how per-feature differences are scaled before scoring.
type Normalization string

const (
	// NormalizeRange divides the mean absolute difference by the larger of the two
	// sequences' value ranges for that feature.
	NormalizeRange Normalization = "range"
	// NormalizeNone scores the raw mean absolute difference.
	NormalizeNone Normalization = "none"
)

// Valid reports whether n is a known normalization.
func (n Normalization) Valid() bool {
	return n == NormalizeRange || n == NormalizeNone
}

// CompareOptions configures Compare. The zero value compares all four features
// with range normalization.
type CompareOptions struct {
	Normalization Normalization
	Features      []Feature
}

func (o CompareOptions) features() []Feature {
	if len(o.Features) == 0 {
		return AllFeatures()
	}
	return o.Features
}

func (o CompareOptions) normalization() Normalization {
	if o.Normalization == "" {
		return NormalizeRange
	}
	return o.Normalization
}

// Validate rejects unknown normalizations and unknown or repeated features.
func (o CompareOptions) Validate() error {
	if norm := o.normalization(); !norm.Valid() {
		return fmt.Errorf("unknown normalization %q", norm)
	}
	var seen [NumFeatures]bool
	for _, f := range o.Features {
		if f < 0 || int(f) >= NumFeatures {
			return fmt.Errorf("unknown feature index %d", int(f))
		}
		if seen[f] {
			return fmt.Errorf("feature %s listed more than once", f.Key())
		}
		seen[f] = true
	}
	return nil
}

// SimilarityReport is the outcome of comparing two feature sequences. Scores are in
// [0, 100]; 100 means numerically identical under the chosen normalization.
type SimilarityReport struct {
	Overall  float64            `json:"overall"`
	Features map[string]float64 `json:"features"`
	// Compared is the number of frames scored, min(LenA, LenB).
	Compared int `json:"compared_frames"`
	LenA     int `json:"len_a"`
	LenB     int `json:"len_b"`

	order []Feature
}

// Score returns the similarity for f and whether it was computed.
func (r *SimilarityReport) Score(f Feature) (float64, bool) {
	v, ok := r.Features[f.Name()]
	return v, ok
}

// Ordered returns the scored features in column order.
func (r *SimilarityReport) Ordered() []Feature {
	if r.order != nil {
		return r.order
	}
	var out []Feature
	for _, f := range AllFeatures() {
		if _, ok := r.Features[f.Name()]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Truncated reports whether the inputs had different lengths.
func (r *SimilarityReport) Truncated() bool { return r.LenA != r.LenB }

// Compare scores a against b frame by frame. Both are truncated to the shorter length;
// frames past that point never affect the result. Compare is symmetric in a and b.
func Compare(a, b FeatureSequence, opts CompareOptions) (*SimilarityReport, error) {
	n := min(len(a), len(b))
	if n == 0 {
		return nil, &FrameError{
			Stage:  StageComparison,
			Index:  -1,
			Detail: fmt.Sprintf("len(a)=%d len(b)=%d", len(a), len(b)),
			Err:    ErrEmptyFeatureSequence,
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	norm := opts.normalization()
	feats := opts.features()
	report := &SimilarityReport{
		Features: make(map[string]float64, len(feats)),
		Compared: n,
		LenA:     len(a),
		LenB:     len(b),
		order:    append([]Feature(nil), feats...),
	}

	ta, tb := a[:n], b[:n]
	scores := make([]float64, 0, len(feats))
	for _, f := range feats {
		s := featureSimilarity(ta.Column(f), tb.Column(f), norm)
		report.Features[f.Name()] = s
		scores = append(scores, s)
	}
	report.Overall = stat.Mean(scores, nil)
	return report, nil
}

// featureSimilarity turns one column pair into a 0..100 score.
func featureSimilarity(fa, fb []float64, norm Normalization) float64 {
	diff := meanAbsDiff(fa, fb)
	if norm == NormalizeRange {
		r := math.Max(valueRange(fa), valueRange(fb))
		if r > 0 {
			diff /= r
		} else {
			diff = 0
		}
	}
	return clampScore(100 * (1 - diff))
}

func meanAbsDiff(fa, fb []float64) float64 {
	d := make([]float64, len(fa))
	floats.SubTo(d, fa, fb)
	for i, v := range d {
		d[i] = math.Abs(v)
	}
	return stat.Mean(d, nil)
}

func valueRange(x []float64) float64 {
	return floats.Max(x) - floats.Min(x)
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(100, s))
}
