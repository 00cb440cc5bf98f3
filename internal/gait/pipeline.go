package gait

import (
	"errors"
	"fmt"
)

// MalformedPolicy controls what a sequence extraction does with a malformed frame.
type MalformedPolicy string

const (
	// MalformedAbort fails the whole sequence on the first malformed frame.
	MalformedAbort MalformedPolicy = "abort"
	// MalformedSkip drops the frame and reports it to the Observer.
	MalformedSkip MalformedPolicy = "skip"
)

// Valid reports whether p is a known policy.
func (p MalformedPolicy) Valid() bool {
	return p == MalformedAbort || p == MalformedSkip
}

// Options configures a Pipeline.
type Options struct {
	Schema       KeypointSchema
	OnMalformed  MalformedPolicy
	OnDegenerate DegeneratePolicy
	Compare      CompareOptions
}

// DefaultOptions uses the default schema, aborts on malformed frames, drops
// degenerate frames and compares all features with range normalization.
func DefaultOptions() Options {
	return Options{
		Schema:       DefaultSchema(),
		OnMalformed:  MalformedAbort,
		OnDegenerate: DegenerateDrop,
		Compare: CompareOptions{
			Normalization: NormalizeRange,
			Features:      AllFeatures(),
		},
	}
}

// Validate checks that all policies and the schema are usable.
func (o Options) Validate() error {
	if err := o.Schema.Validate(); err != nil {
		return err
	}
	if !o.OnMalformed.Valid() {
		return fmt.Errorf("unknown malformed-frame policy %q", o.OnMalformed)
	}
	if !o.OnDegenerate.Valid() {
		return fmt.Errorf("unknown degenerate-geometry policy %q", o.OnDegenerate)
	}
	return o.Compare.Validate()
}

// ExtractSummary describes one sequence extraction.
type ExtractSummary struct {
	Total            int `json:"total"`
	Extracted        int `json:"extracted"`
	Malformed        int `json:"malformed"`
	FirstFrameLen    int `json:"first_frame_len"`
	FirstKeypointLen int `json:"first_keypoint_len"`
}

// SideResult carries everything computed for one subject.
type SideResult struct {
	Extract  ExtractSummary  `json:"extract"`
	Features FeatureSummary  `json:"features"`
	Sequence FeatureSequence `json:"-"`
}

// Result is the outcome of Pipeline.Run.
type Result struct {
	Report *SimilarityReport `json:"report"`
	A      SideResult        `json:"a"`
	B      SideResult        `json:"b"`
}

// Pipeline runs extraction, feature calculation and comparison with fixed Options.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	opts Options
	obs  Observer
}

// NewPipeline validates opts and returns a Pipeline. A nil obs discards diagnostics.
func NewPipeline(opts Options, obs Observer) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Pipeline{opts: opts, obs: obs}, nil
}

// Options returns the pipeline configuration.
func (p *Pipeline) Options() Options { return p.opts }

// ExtractedFrame is a JointFrame tagged with its position in the raw sequence.
type ExtractedFrame struct {
	Index  int
	Joints JointFrame
}

// ExtractSequence extracts joints from every frame of seq, applying the
// malformed-frame policy. Kept frames carry their raw sequence index.
func (p *Pipeline) ExtractSequence(seq RawSequence) ([]ExtractedFrame, ExtractSummary, error) {
	summary := ExtractSummary{Total: len(seq)}
	if len(seq) > 0 {
		summary.FirstFrameLen = len(seq[0])
		summary.FirstKeypointLen = len(p.opts.Schema.Keypoints(seq[0]))
	}

	frames := make([]ExtractedFrame, 0, len(seq))
	for i, raw := range seq {
		jf, err := Extract(p.opts.Schema, raw)
		if err != nil {
			var fe *FrameError
			if errors.As(err, &fe) {
				fe.Index = i
			}
			if p.opts.OnMalformed == MalformedAbort {
				return nil, summary, err
			}
			summary.Malformed++
			p.obs.FrameSkipped(StageExtraction, i, err)
			continue
		}
		frames = append(frames, ExtractedFrame{Index: i, Joints: jf})
	}
	summary.Extracted = len(frames)
	p.obs.SequenceExtracted(summary)
	return frames, summary, nil
}

// FeatureSequence computes features for every frame, dropping or zeroing undefined
// ones per the degenerate policy. Skipped frames are reported by their raw index.
// It fails with ErrNoValidFrames when nothing survives.
func (p *Pipeline) FeatureSequence(frames []ExtractedFrame) (FeatureSequence, FeatureSummary, error) {
	var summary FeatureSummary
	seq := make(FeatureSequence, 0, len(frames))
	for _, ef := range frames {
		fv, ok := Features(ef.Joints, p.opts.OnDegenerate)
		if !ok {
			summary.Dropped++
			p.obs.FrameSkipped(StageFeatures, ef.Index, &FrameError{
				Stage:  StageFeatures,
				Index:  ef.Index,
				Values: frameValues(ef.Joints),
				Err:    ErrDegenerateGeometry,
			})
			continue
		}
		seq = append(seq, fv)
	}
	summary.Valid = len(seq)
	if len(seq) == 0 {
		return nil, summary, &FrameError{
			Stage:  StageFeatures,
			Index:  -1,
			Detail: fmt.Sprintf("0 of %d frames valid", len(frames)),
			Err:    ErrNoValidFrames,
		}
	}
	summary.Stats = Summarize(seq)
	p.obs.FeaturesComputed(summary)
	return seq, summary, nil
}

// Side runs extraction and feature calculation for one subject.
func (p *Pipeline) Side(seq RawSequence) (SideResult, error) {
	var res SideResult
	frames, es, err := p.ExtractSequence(seq)
	res.Extract = es
	if err != nil {
		return res, err
	}
	fs, fsum, err := p.FeatureSequence(frames)
	res.Features = fsum
	if err != nil {
		return res, err
	}
	res.Sequence = fs
	return res, nil
}

// Compare scores two feature sequences with the pipeline's CompareOptions.
func (p *Pipeline) Compare(a, b FeatureSequence) (*SimilarityReport, error) {
	if len(a) != len(b) {
		p.obs.SequencesTruncated(len(a), len(b), min(len(a), len(b)))
	}
	return Compare(a, b, p.opts.Compare)
}

// Run processes both raw sequences and compares them.
func (p *Pipeline) Run(a, b RawSequence) (*Result, error) {
	ra, err := p.Side(a)
	if err != nil {
		return nil, fmt.Errorf("sequence A: %w", err)
	}
	rb, err := p.Side(b)
	if err != nil {
		return nil, fmt.Errorf("sequence B: %w", err)
	}
	report, err := p.Compare(ra.Sequence, rb.Sequence)
	if err != nil {
		return nil, err
	}
	return &Result{Report: report, A: ra, B: rb}, nil
}

func frameValues(jf JointFrame) []float64 {
	out := make([]float64, 0, NumJoints*2)
	for _, pt := range jf {
		out = append(out, pt.X, pt.Y)
	}
	return out
}
