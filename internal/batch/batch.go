// Package batch compares one reference subject against many candidates in
// parallel and ranks the results.
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/labels"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// Subject is a named raw keypoint sequence.
type Subject struct {
	Name   string
	Frames gait.RawSequence
}

// LoadSubjects loads each label directory as a Subject named after the directory.
func LoadSubjects(fsys fsutil.FileSystem, dirs []string) ([]Subject, error) {
	subjects := make([]Subject, 0, len(dirs))
	for _, dir := range dirs {
		seq, err := labels.Load(fsys, dir)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, Subject{Name: filepath.Base(filepath.Clean(dir)), Frames: seq})
	}
	return subjects, nil
}

// Outcome is the comparison of the reference against one candidate. Exactly one of
// Result and Err is set.
type Outcome struct {
	Candidate string
	Result    *gait.Result
	Err       error
}

// Options configures Run.
type Options struct {
	// Workers bounds concurrent comparisons; values below 1 mean 1.
	Workers int
	// Progress, when non-nil, receives a progress bar.
	Progress io.Writer
}

// Run compares ref against every candidate using p. Outcomes are returned in
// candidate order. A candidate failure is recorded in its Outcome and does not stop
// the others; a reference failure or a cancelled ctx fails the whole run.
func Run(ctx context.Context, p *gait.Pipeline, ref Subject, candidates []Subject, opts Options) ([]Outcome, error) {
	refSide, err := p.Side(ref.Frames)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", ref.Name, err)
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		bar = pb.New(len(candidates))
		bar.SetWriter(opts.Progress)
		bar.Start()
		defer bar.Finish()
	}

	outcomes := make([]Outcome, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = compareOne(p, refSide, c)
			if outcomes[i].Err != nil {
				monitoring.Logf("candidate %s: %v", c.Name, outcomes[i].Err)
			}
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func compareOne(p *gait.Pipeline, refSide gait.SideResult, c Subject) Outcome {
	out := Outcome{Candidate: c.Name}
	side, err := p.Side(c.Frames)
	if err != nil {
		out.Err = err
		return out
	}
	report, err := p.Compare(refSide.Sequence, side.Sequence)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = &gait.Result{Report: report, A: refSide, B: side}
	return out
}

// Rank orders outcomes by overall similarity, highest first, with failed candidates
// last in their original order. The input is not modified.
func Rank(outcomes []Outcome) []Outcome {
	ranked := append([]Outcome(nil), outcomes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err != nil {
			return false
		}
		return a.Result.Report.Overall > b.Result.Report.Overall
	})
	return ranked
}
