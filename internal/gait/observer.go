package gait

// Observer receives diagnostics from a Pipeline. Implementations must not retain or
// modify the slices they are given; results never depend on what an Observer does.
type Observer interface {
	// FrameSkipped is called for each frame excluded at stage. err wraps
	// ErrMalformedFrame or ErrDegenerateGeometry.
	FrameSkipped(stage Stage, index int, err error)
	// SequenceExtracted is called once per sequence after joint extraction.
	SequenceExtracted(summary ExtractSummary)
	// FeaturesComputed is called once per sequence after feature calculation.
	FeaturesComputed(summary FeatureSummary)
	// SequencesTruncated is called when two sequences of different lengths are
	// compared over their first n frames.
	SequencesTruncated(lenA, lenB, n int)
}

// NopObserver discards all diagnostics.
type NopObserver struct{}

func (NopObserver) FrameSkipped(Stage, int, error)   {}
func (NopObserver) SequenceExtracted(ExtractSummary) {}
func (NopObserver) FeaturesComputed(FeatureSummary)  {}
func (NopObserver) SequencesTruncated(int, int, int) {}

// CountingObserver tallies callbacks; useful in tests and for exit summaries.
// It is not safe for concurrent use.
type CountingObserver struct {
	Skipped     map[Stage]int
	Extracted   []ExtractSummary
	Computed    []FeatureSummary
	Truncations int
}

// NewCountingObserver returns an empty CountingObserver.
func NewCountingObserver() *CountingObserver {
	return &CountingObserver{Skipped: make(map[Stage]int)}
}

func (c *CountingObserver) FrameSkipped(stage Stage, _ int, _ error) { c.Skipped[stage]++ }
func (c *CountingObserver) SequenceExtracted(s ExtractSummary)       { c.Extracted = append(c.Extracted, s) }
func (c *CountingObserver) FeaturesComputed(s FeatureSummary)        { c.Computed = append(c.Computed, s) }
func (c *CountingObserver) SequencesTruncated(int, int, int)         { c.Truncations++ }
