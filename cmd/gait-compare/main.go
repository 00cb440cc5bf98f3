// Command gait-compare compares the walking pattern in one pose-label directory
// against one or more others and reports a 0-100 similarity per gait feature.
//
//	gait-compare -a runs/person1/labels -b runs/person2/labels -plot out/
//	gait-compare -a ref/ -b c1/ -b c2/ -b c3/ -workers 4 -db gait.db
//	gait-compare migrate status -db gait.db
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/banshee-data/gait.report/internal/batch"
	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/labels"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/plotting"
	"github.com/banshee-data/gait.report/internal/security"
	"github.com/banshee-data/gait.report/internal/version"
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Config holds the command-line configuration.
type Config struct {
	DirA         string
	DirsB        stringList
	ConfigFile   string
	OnDegenerate string
	OnMalformed  string
	PlotDir      string
	HTMLReport   string
	DBPath       string
	OutputJSON   string
	Workers      int
	Quiet        bool
	Verbose      bool
	ShowVersion  bool
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("gait-compare", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.DirA, "a", "", "Label directory of the reference subject")
	fs.Var(&cfg.DirsB, "b", "Label directory of a subject to compare (repeatable)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Comparison config file (.json, .yaml or .yml)")
	fs.StringVar(&cfg.OnDegenerate, "on-degenerate", "", "Degenerate frame policy: drop or sentinel_zero")
	fs.StringVar(&cfg.OnMalformed, "on-malformed", "", "Malformed frame policy: abort or skip")
	fs.StringVar(&cfg.PlotDir, "plot", "", "Directory for comparison PNG plots")
	fs.StringVar(&cfg.HTMLReport, "html", "", "Path of an interactive HTML report (single comparison only)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database to record comparisons in")
	fs.StringVar(&cfg.OutputJSON, "json", "", "Path of a JSON export of the results")
	fs.IntVar(&cfg.Workers, "workers", 0, "Concurrent comparisons when several -b are given")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress per-sequence diagnostics")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log every skipped frame with its values")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.DirA == "" || len(cfg.DirsB) == 0 {
		return cfg, errors.New("-a and at least one -b are required")
	}
	return cfg, nil
}

// loadConfig layers command-line overrides on top of the config file.
func loadConfig(cfg Config) (*config.GaitConfig, error) {
	gc := config.EmptyConfig()
	if cfg.ConfigFile != "" {
		var err error
		if gc, err = config.LoadConfig(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if cfg.OnDegenerate != "" {
		gc.SetOnDegenerate(cfg.OnDegenerate)
	}
	if cfg.OnMalformed != "" {
		gc.SetOnMalformed(cfg.OnMalformed)
	}
	if cfg.Workers > 0 {
		gc.SetWorkers(cfg.Workers)
	}
	if cfg.PlotDir != "" {
		gc.PlotDir = &cfg.PlotDir
	}
	if cfg.HTMLReport != "" {
		gc.HTMLReport = &cfg.HTMLReport
	}
	if cfg.DBPath != "" {
		gc.DBPath = &cfg.DBPath
	}
	if err := gc.Validate(); err != nil {
		return nil, err
	}
	return gc, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("gait-compare: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout, stderr)
	}

	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.String("gait-compare"))
		return nil
	}
	if cfg.Quiet {
		monitoring.SetLogger(nil)
	}
	monitoring.SetVerbose(cfg.Verbose)

	gc, err := loadConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	opts := gc.ToOptions()
	fsys := fsutil.OSFileSystem{}

	var store *db.ComparisonStore
	if path := gc.GetDBPath(); path != "" {
		database, err := db.NewDB(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()
		store = db.NewComparisonStore(database)
	}

	if len(cfg.DirsB) == 1 {
		return runPair(cfg.DirA, cfg.DirsB[0], gc, opts, fsys, store, cfg.OutputJSON, stdout)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return runBatch(ctx, cfg, gc, opts, fsys, store, stdout, stderr)
}

func runMigrate(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		db.PrintMigrateHelp(stdout)
		return errors.New("missing migrate action")
	}
	fs := flag.NewFlagSet("gait-compare migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "gait.db", "SQLite database path")

	// Flags may follow positional arguments, as in "force 3 -db path".
	positional := []string{args[0]}
	rest := args[1:]
	for {
		if err := fs.Parse(rest); err != nil {
			return err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
	return db.RunMigrateCommand(stdout, positional, *dbPath)
}

// pairExport is the JSON shape of a single comparison.
type pairExport struct {
	SubjectA string       `json:"subject_a"`
	SubjectB string       `json:"subject_b"`
	Result   *gait.Result `json:"result"`
}

func runPair(dirA, dirB string, gc *config.GaitConfig, opts gait.Options, fsys fsutil.FileSystem, store *db.ComparisonStore, jsonPath string, stdout io.Writer) error {
	nameA, nameB := subjectName(dirA), subjectName(dirB)

	fmt.Fprintln(stdout, "Loading sequences...")
	seqA, err := labels.Load(fsys, dirA)
	if err != nil {
		return err
	}
	seqB, err := labels.Load(fsys, dirB)
	if err != nil {
		return err
	}

	pA, err := gait.NewPipeline(opts, monitoring.NewLogObserver(nameA))
	if err != nil {
		return err
	}
	pB, err := gait.NewPipeline(opts, monitoring.NewLogObserver(nameB))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Calculating gait features for %s...\n", nameA)
	sideA, err := pA.Side(seqA)
	if err != nil {
		return fmt.Errorf("sequence %s: %w", nameA, err)
	}
	fmt.Fprintf(stdout, "Calculating gait features for %s...\n", nameB)
	sideB, err := pB.Side(seqB)
	if err != nil {
		return fmt.Errorf("sequence %s: %w", nameB, err)
	}

	fmt.Fprintln(stdout, "Comparing sequences...")
	report, err := pA.Compare(sideA.Sequence, sideB.Sequence)
	if err != nil {
		return err
	}
	res := &gait.Result{Report: report, A: sideA, B: sideB}
	printReport(stdout, res)

	if dir := gc.GetPlotDir(); dir != "" {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
		path := filepath.Join(dir, "gait_comparison.png")
		if err := plotting.WriteComparisonPNG(fsys, path, sideA.Sequence, sideB.Sequence, nameA, nameB); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(stdout, "Comparison plot written to %s\n", path)
	}

	if path := gc.GetHTMLReport(); path != "" {
		if err := writeHTML(fsys, path, res, nameA, nameB); err != nil {
			return fmt.Errorf("html report: %w", err)
		}
		fmt.Fprintf(stdout, "HTML report written to %s\n", path)
	}

	if store != nil {
		rec, err := db.RecordFromResult(nameA, nameB, res, opts)
		if err != nil {
			return err
		}
		if err := store.Insert(rec); err != nil {
			return fmt.Errorf("record comparison: %w", err)
		}
		fmt.Fprintf(stdout, "Comparison recorded as %s\n", rec.ComparisonID)
	}

	if jsonPath != "" {
		return exportJSON(fsys, jsonPath, pairExport{SubjectA: nameA, SubjectB: nameB, Result: res})
	}
	return nil
}

func printReport(w io.Writer, res *gait.Result) {
	fmt.Fprintf(w, "\nOverall Similarity Score: %.2f%%\n", res.Report.Overall)
	if res.Report.Truncated() {
		fmt.Fprintf(w, "(compared first %d frames of %d and %d)\n", res.Report.Compared, res.Report.LenA, res.Report.LenB)
	}
	fmt.Fprintln(w, "\nDetailed Metrics (higher is more similar):")
	for _, f := range res.Report.Ordered() {
		score, _ := res.Report.Score(f)
		fmt.Fprintf(w, "%s: %.2f%%\n", f.Name(), score)
	}
}

func writeHTML(fsys fsutil.FileSystem, path string, res *gait.Result, nameA, nameB string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := plotting.WriteComparisonHTML(f, res.A.Sequence, res.B.Sequence, nameA, nameB, res.Report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// batchExport is the JSON shape of one ranked candidate.
type batchExport struct {
	Candidate string       `json:"candidate"`
	Result    *gait.Result `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func runBatch(ctx context.Context, cfg Config, gc *config.GaitConfig, opts gait.Options, fsys fsutil.FileSystem, store *db.ComparisonStore, stdout, stderr io.Writer) error {
	dirs := append([]string{cfg.DirA}, cfg.DirsB...)
	subjects, err := batch.LoadSubjects(fsys, dirs)
	if err != nil {
		return err
	}
	for i := range subjects {
		subjects[i].Name = subjectName(dirs[i])
	}
	ref, candidates := subjects[0], subjects[1:]

	var obs gait.Observer
	if !cfg.Quiet {
		obs = monitoring.NewLogObserver("")
	}
	p, err := gait.NewPipeline(opts, obs)
	if err != nil {
		return err
	}

	bopts := batch.Options{Workers: gc.GetWorkers()}
	if !cfg.Quiet {
		bopts.Progress = stderr
	}
	outcomes, err := batch.Run(ctx, p, ref, candidates, bopts)
	if err != nil {
		return err
	}

	ranked := batch.Rank(outcomes)
	fmt.Fprintf(stdout, "\n=== Similarity to %s ===\n", ref.Name)
	exports := make([]batchExport, 0, len(ranked))
	for i, o := range ranked {
		if o.Err != nil {
			fmt.Fprintf(stdout, "%3s  %-24s  error: %v\n", "-", o.Candidate, o.Err)
			exports = append(exports, batchExport{Candidate: o.Candidate, Error: o.Err.Error()})
			continue
		}
		fmt.Fprintf(stdout, "%3d  %-24s  %6.2f%%\n", i+1, o.Candidate, o.Result.Report.Overall)
		exports = append(exports, batchExport{Candidate: o.Candidate, Result: o.Result})

		if dir := gc.GetPlotDir(); dir != "" {
			if err := fsys.MkdirAll(dir, 0755); err != nil {
				return err
			}
			path, err := security.OutputPath(dir, "gait_comparison", o.Candidate, ".png")
			if err != nil {
				return err
			}
			if err := plotting.WriteComparisonPNG(fsys, path, o.Result.A.Sequence, o.Result.B.Sequence, ref.Name, o.Candidate); err != nil {
				return fmt.Errorf("plot %s: %w", o.Candidate, err)
			}
		}
		if store != nil {
			rec, err := db.RecordFromResult(ref.Name, o.Candidate, o.Result, opts)
			if err != nil {
				return err
			}
			if err := store.Insert(rec); err != nil {
				return fmt.Errorf("record comparison: %w", err)
			}
		}
	}
	if gc.GetHTMLReport() != "" {
		monitoring.Logf("html report is only written for a single comparison; skipping")
	}

	if cfg.OutputJSON != "" {
		return exportJSON(fsys, cfg.OutputJSON, exports)
	}
	return nil
}

func exportJSON(fsys fsutil.FileSystem, path string, v interface{}) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// subjectName names a subject after its label directory, skipping a trailing
// "labels" component (runs/person1/labels -> person1).
func subjectName(dir string) string {
	clean := filepath.Clean(dir)
	base := filepath.Base(clean)
	if base == "labels" {
		if parent := filepath.Base(filepath.Dir(clean)); parent != "." && parent != string(filepath.Separator) {
			return parent
		}
	}
	return base
}
