package labels

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		want    gait.RawFrame
		wantErr bool
	}{
		{"spaces", "0 0.5 0.25", gait.RawFrame{0, 0.5, 0.25}, false},
		{"tabs and padding", "  1\t2   3  ", gait.RawFrame{1, 2, 3}, false},
		{"scientific", "1e-3 -2.5E2", gait.RawFrame{0.001, -250}, false},
		{"empty", "", gait.RawFrame{}, false},
		{"garbage", "0 0.5 abc", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "value 2")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_OrdersByFilenameAndReadsFirstLine(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/run/labels/frame_0002.txt", []byte("2 2 2\n9 9 9\n"), 0644))
	require.NoError(t, mfs.WriteFile("/run/labels/frame_0001.txt", []byte("1 1 1\r\n"), 0644))
	require.NoError(t, mfs.WriteFile("/run/labels/frame_0003.txt", []byte("3 3 3"), 0644))
	require.NoError(t, mfs.WriteFile("/run/labels/readme.md", []byte("not a frame"), 0644))

	seq, err := Load(mfs, "/run/labels")
	require.NoError(t, err)
	assert.Equal(t, gait.RawSequence{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}}, seq)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no label files", func(t *testing.T) {
		mfs := fsutil.NewMemoryFileSystem()
		require.NoError(t, mfs.WriteFile("/empty/notes.md", nil, 0644))
		_, err := Load(mfs, "/empty")
		assert.True(t, errors.Is(err, ErrNoLabelFiles))
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(fsutil.NewMemoryFileSystem(), "/missing")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNoLabelFiles))
	})

	t.Run("bad value names the file", func(t *testing.T) {
		mfs := fsutil.NewMemoryFileSystem()
		require.NoError(t, mfs.WriteFile("/bad/a.txt", []byte("0 1"), 0644))
		require.NoError(t, mfs.WriteFile("/bad/b.txt", []byte("0 x"), 0644))
		_, err := Load(mfs, "/bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "b.txt")
	})
}

func TestLoad_FeedsPipeline(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	schema := gait.DefaultSchema()
	for i := 0; i < 4; i++ {
		frame := make(gait.RawFrame, schema.RequiredFrameLen())
		for j, off := range schema.Offsets {
			frame[schema.MetadataLen+off] = 0.4 + 0.02*float64(j)
			frame[schema.MetadataLen+off+1] = 0.3 + 0.1*float64(j) + 0.01*float64(i)
		}
		line := ""
		for k, v := range frame {
			if k > 0 {
				line += " "
			}
			line += fmt.Sprintf("%g", v)
		}
		require.NoError(t, mfs.WriteFile(fmt.Sprintf("/s/%04d.txt", i), []byte(line), 0644))
	}

	seq, err := Load(mfs, "/s")
	require.NoError(t, err)
	require.Len(t, seq, 4)

	p, err := gait.NewPipeline(gait.DefaultOptions(), nil)
	require.NoError(t, err)
	res, err := p.Run(seq, seq)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Report.Overall)
}

func TestSplitCoordinates(t *testing.T) {
	t.Parallel()

	xs, ys := SplitCoordinates([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, []float64{1, 3}, xs)
	assert.Equal(t, []float64{2, 4}, ys)

	xs, ys = SplitCoordinates(nil)
	assert.Empty(t, xs)
	assert.Empty(t, ys)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	seq := gait.RawSequence{
		{9, 9, 0.1, 0.2, 0.3, 0.4, 7},
		{9, 9, 0.05, 0.9, 0.6, 0.1},
		{9},
	}
	got := Summarize(seq, 2)
	assert.Equal(t, Summary{
		Frames:            3,
		KeypointsPerFrame: 2,
		FrameLen:          7,
		X:                 Range{Min: 0.05, Max: 0.6},
		Y:                 Range{Min: 0.1, Max: 0.9},
	}, got)

	assert.Equal(t, Summary{}, Summarize(nil, 7))
	assert.Equal(t, Summary{Frames: 1, FrameLen: 3}, Summarize(gait.RawSequence{{1, 2, 3}}, 7))
}
