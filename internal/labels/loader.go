// Package labels reads pose-model label directories (one .txt file per frame) into
// raw gait sequences and summarises their keypoint content for verification.
package labels

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// LabelExt is the extension of per-frame label files.
const LabelExt = ".txt"

// ErrNoLabelFiles is returned when a directory holds no label files.
var ErrNoLabelFiles = errors.New("labels: no label files")

// Load reads every label file in dir, ordered by filename, and returns one frame per
// file parsed from its first line.
func Load(fsys fsutil.FileSystem, dir string) (gait.RawSequence, error) {
	files, err := fsutil.ListFiles(fsys, dir, LabelExt)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLabelFiles, dir)
	}

	seq := make(gait.RawSequence, 0, len(files))
	for _, path := range files {
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		frame, err := ParseLine(firstLine(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		seq = append(seq, frame)
	}
	monitoring.Debugf("loaded %d label files from %s", len(seq), dir)
	return seq, nil
}

// ParseLine parses a whitespace-separated list of numbers. An empty line yields an
// empty frame.
func ParseLine(line string) (gait.RawFrame, error) {
	fields := strings.Fields(line)
	frame := make(gait.RawFrame, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		frame[i] = v
	}
	return frame, nil
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return string(bytes.TrimRight(data, "\r"))
}
