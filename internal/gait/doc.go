// Package gait turns pose-model keypoint sequences into per-frame gait features and
// compares two subjects into a normalized similarity score.
//
// Data flows one way:
//
//	RawSequence -> Extract -> []ExtractedFrame -> Features -> FeatureSequence -> Compare -> SimilarityReport
//
// Every stage is a pure function of its inputs and the Options it was configured with.
// A Pipeline holds no mutable state, so one instance may serve concurrent comparisons.
// Diagnostics are reported through an Observer; the package itself never writes output.
//
// Frames whose geometry is degenerate (hip or ankle coinciding with the knee, or
// non-finite coordinates) are dropped by default. DegenerateSentinelZero keeps them with
// the affected feature set to 0 instead.
package gait
