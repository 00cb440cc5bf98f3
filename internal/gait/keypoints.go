package gait

import (
	"fmt"
)

// RawFrame is one time step of pose-model output: MetadataLen opaque values followed
// by a keypoint block of (x, y) pairs in image-normalized [0,1] coordinates.
type RawFrame []float64

// RawSequence is an ordered list of frames for one subject.
type RawSequence []RawFrame

// Joint identifies one of the six lower-body joints used for gait analysis.
type Joint int

const (
	LeftHip Joint = iota
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	NumJoints = 6
)

var jointNames = [NumJoints]string{
	"left_hip", "right_hip", "left_knee", "right_knee", "left_ankle", "right_ankle",
}

// Joints lists every joint in schema order.
func Joints() []Joint {
	return []Joint{LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle}
}

func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJoint returns the joint with the given snake_case name.
func ParseJoint(name string) (Joint, error) {
	for i, n := range jointNames {
		if n == name {
			return Joint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// Point is a 2D image-relative coordinate.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// JointFrame holds the six joint coordinates for one frame.
type JointFrame [NumJoints]Point

// At returns the coordinate of joint j.
func (f JointFrame) At(j Joint) Point { return f[j] }

// KeypointSchema maps each joint to the offset of its x coordinate within the
// keypoint block; y is stored at offset+1.
type KeypointSchema struct {
	MetadataLen int
	Offsets     map[Joint]int
}

// DefaultSchema is the 17-point pose layout: a 7-value metadata header, with
// joints 11..16 (hips, knees, ankles) at keypoint offsets 29..39.
func DefaultSchema() KeypointSchema {
	return KeypointSchema{
		MetadataLen: 7,
		Offsets: map[Joint]int{
			LeftHip:    29,
			RightHip:   31,
			LeftKnee:   33,
			RightKnee:  35,
			LeftAnkle:  37,
			RightAnkle: 39,
		},
	}
}

// Validate checks that every joint has a non-negative offset.
func (s KeypointSchema) Validate() error {
	if s.MetadataLen < 0 {
		return fmt.Errorf("%w: metadata length %d is negative", ErrInvalidSchema, s.MetadataLen)
	}
	for _, j := range Joints() {
		off, ok := s.Offsets[j]
		if !ok {
			return fmt.Errorf("%w: missing offset for %s", ErrInvalidSchema, j)
		}
		if off < 0 {
			return fmt.Errorf("%w: offset %d for %s is negative", ErrInvalidSchema, off, j)
		}
	}
	if len(s.Offsets) != NumJoints {
		return fmt.Errorf("%w: %d offsets for %d joints", ErrInvalidSchema, len(s.Offsets), NumJoints)
	}
	return nil
}

// RequiredKeypoints is the minimum keypoint block length: the highest x offset plus
// its y coordinate.
func (s KeypointSchema) RequiredKeypoints() int {
	maxOff := 0
	for _, off := range s.Offsets {
		if off > maxOff {
			maxOff = off
		}
	}
	return maxOff + 2
}

// RequiredFrameLen is the minimum raw frame length including metadata.
func (s KeypointSchema) RequiredFrameLen() int {
	return s.MetadataLen + s.RequiredKeypoints()
}

// Keypoints returns the keypoint block of raw, or nil when raw is shorter than the metadata.
func (s KeypointSchema) Keypoints(raw RawFrame) []float64 {
	if len(raw) <= s.MetadataLen {
		return nil
	}
	return raw[s.MetadataLen:]
}

// Extract reads the six joints out of raw. An invalid schema fails with
// ErrInvalidSchema. A keypoint block shorter than the schema requires fails with
// ErrMalformedFrame; the returned FrameError has Index -1 and is re-indexed by
// sequence-level callers.
func Extract(s KeypointSchema, raw RawFrame) (JointFrame, error) {
	var jf JointFrame
	if err := s.Validate(); err != nil {
		return jf, err
	}
	kp := s.Keypoints(raw)
	need := s.RequiredKeypoints()
	if len(kp) < need {
		return jf, &FrameError{
			Stage:  StageExtraction,
			Index:  -1,
			Detail: fmt.Sprintf("keypoint block has %d values, need %d", len(kp), need),
			Values: append([]float64(nil), raw...),
			Err:    ErrMalformedFrame,
		}
	}
	for _, j := range Joints() {
		off := s.Offsets[j]
		jf[j] = Point{X: kp[off], Y: kp[off+1]}
	}
	return jf, nil
}
