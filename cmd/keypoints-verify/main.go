// Command keypoints-verify loads a pose-label directory, prints a summary of its
// keypoint data and optionally renders the first, middle and last frames plus a
// strip of consecutive frames.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/labels"
	"github.com/banshee-data/gait.report/internal/plotting"
	"github.com/banshee-data/gait.report/internal/security"
	"github.com/banshee-data/gait.report/internal/version"
)

// Config holds the command-line configuration.
type Config struct {
	LabelDir    string
	OutputDir   string
	MetadataLen int
	SeqStart    int
	SeqFrames   int
	ShowVersion bool
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("keypoints-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.LabelDir, "labels", "", "Label directory to verify")
	fs.StringVar(&cfg.OutputDir, "output", "", "Directory for frame visualizations (none if empty)")
	fs.IntVar(&cfg.MetadataLen, "metadata-len", gait.DefaultSchema().MetadataLen, "Number of leading metadata values per frame")
	fs.IntVar(&cfg.SeqStart, "sequence-start", 0, "First frame of the sequence strip")
	fs.IntVar(&cfg.SeqFrames, "sequence-frames", 5, "Frames in the sequence strip (0 disables it)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.LabelDir == "" && fs.NArg() > 0 {
		cfg.LabelDir = fs.Arg(0)
	}
	if cfg.LabelDir == "" && !cfg.ShowVersion {
		return cfg, errors.New("a label directory is required")
	}
	if cfg.MetadataLen < 0 {
		return cfg, fmt.Errorf("metadata-len must be non-negative, got %d", cfg.MetadataLen)
	}
	if cfg.SeqStart < 0 || cfg.SeqFrames < 0 {
		return cfg, fmt.Errorf("sequence-start and sequence-frames must be non-negative")
	}
	return cfg, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("keypoints-verify: %v", err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.String("keypoints-verify"))
		return nil
	}
	return verify(fsutil.OSFileSystem{}, cfg, stdout)
}

func verify(fsys fsutil.FileSystem, cfg Config, w io.Writer) error {
	fmt.Fprintf(w, "Loading keypoints from: %s\n", cfg.LabelDir)
	seq, err := labels.Load(fsys, cfg.LabelDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Loaded %d frames\n", len(seq))

	printSummary(w, labels.Summarize(seq, cfg.MetadataLen))

	if cfg.OutputDir == "" {
		return nil
	}
	if err := fsys.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nGenerating visualizations...")
	for _, idx := range framesToCheck(len(seq)) {
		path, err := security.OutputPath(cfg.OutputDir, "frame", strconv.Itoa(idx), ".png")
		if err != nil {
			return err
		}
		if err := plotting.WriteKeypointFramePNG(fsys, path, seq[idx], idx, cfg.MetadataLen); err != nil {
			return fmt.Errorf("frame %d: %w", idx, err)
		}
		fmt.Fprintf(w, "  %s\n", path)
	}

	if cfg.SeqFrames == 0 || cfg.SeqStart >= len(seq) {
		return nil
	}
	path, err := security.OutputPath(cfg.OutputDir, "", "sequence", ".png")
	if err != nil {
		return err
	}
	if err := plotting.WriteKeypointSequencePNG(fsys, path, seq, cfg.SeqStart, cfg.SeqFrames, cfg.MetadataLen); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	fmt.Fprintf(w, "  %s\n", path)
	return nil
}

func printSummary(w io.Writer, s labels.Summary) {
	fmt.Fprintln(w, "\nData Analysis:")
	fmt.Fprintf(w, "Total frames: %d\n", s.Frames)
	fmt.Fprintf(w, "Keypoints per frame: %d\n", s.KeypointsPerFrame)
	fmt.Fprintf(w, "Values in first frame: %d\n", s.FrameLen)

	fmt.Fprintln(w, "\nCoordinate Ranges:")
	fmt.Fprintf(w, "X-coordinate range: [%.2f, %.2f]\n", s.X.Min, s.X.Max)
	fmt.Fprintf(w, "Y-coordinate range: [%.2f, %.2f]\n", s.Y.Min, s.Y.Max)
}

// framesToCheck returns the first, middle and last frame indices without duplicates.
func framesToCheck(n int) []int {
	if n == 0 {
		return nil
	}
	var out []int
	seen := make(map[int]bool, 3)
	for _, i := range []int{0, n / 2, n - 1} {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}
