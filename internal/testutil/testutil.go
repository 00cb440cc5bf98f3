// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RawFrame builds a default-schema frame with every value set to 0.5 except the
// given joints.
func RawFrame(joints map[gait.Joint]gait.Point) gait.RawFrame {
	s := gait.DefaultSchema()
	raw := make(gait.RawFrame, s.RequiredFrameLen())
	for i := range raw {
		raw[i] = 0.5
	}
	for j, pt := range joints {
		off := s.MetadataLen + s.Offsets[j]
		raw[off] = pt.X
		raw[off+1] = pt.Y
	}
	return raw
}

// StridePose is a lower-body pose at the given phase of a stride. Amplitude scales
// how far the ankles swing; zero gives a static stance.
func StridePose(phase, amplitude float64) map[gait.Joint]gait.Point {
	swing := amplitude * math.Sin(phase)
	bend := amplitude * 0.5 * math.Abs(math.Cos(phase))
	return map[gait.Joint]gait.Point{
		gait.LeftHip:    {X: 0.45, Y: 0.50},
		gait.RightHip:   {X: 0.55, Y: 0.50},
		gait.LeftKnee:   {X: 0.44 + swing*0.5 + bend, Y: 0.65},
		gait.RightKnee:  {X: 0.56 - swing*0.5 + bend, Y: 0.65},
		gait.LeftAnkle:  {X: 0.43 + swing, Y: 0.80},
		gait.RightAnkle: {X: 0.57 - swing, Y: 0.80},
	}
}

// WalkingSequence returns n frames of a stride cycle with the given amplitude,
// advancing the phase by step radians per frame.
func WalkingSequence(n int, amplitude, step float64) gait.RawSequence {
	seq := make(gait.RawSequence, n)
	for i := range seq {
		seq[i] = RawFrame(StridePose(float64(i)*step, amplitude))
	}
	return seq
}

// FormatFrame renders a frame as a label-file line.
func FormatFrame(frame gait.RawFrame) string {
	parts := make([]string, len(frame))
	for i, v := range frame {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// WriteLabelDir writes one label file per frame into dir, named so that filename
// order matches sequence order.
func WriteLabelDir(t testing.TB, fsys fsutil.FileSystem, dir string, seq gait.RawSequence) {
	t.Helper()
	AssertNoError(t, fsys.MkdirAll(dir, 0755))
	for i, frame := range seq {
		name := filepath.Join(dir, fmt.Sprintf("frame_%05d.txt", i))
		AssertNoError(t, fsys.WriteFile(name, []byte(FormatFrame(frame)+"\n"), 0644))
	}
}
