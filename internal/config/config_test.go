package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfig_Defaults(t *testing.T) {
	cfg := EmptyConfig()

	if got := cfg.GetMetadataLen(); got != 7 {
		t.Errorf("GetMetadataLen() = %d, want 7", got)
	}
	if got := cfg.GetOnMalformed(); got != gait.MalformedAbort {
		t.Errorf("GetOnMalformed() = %q, want abort", got)
	}
	if got := cfg.GetOnDegenerate(); got != gait.DegenerateDrop {
		t.Errorf("GetOnDegenerate() = %q, want drop", got)
	}
	if got := cfg.GetNormalization(); got != gait.NormalizeRange {
		t.Errorf("GetNormalization() = %q, want range", got)
	}
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers() = %d, want 4", got)
	}
	if cfg.GetPlotDir() != "" || cfg.GetHTMLReport() != "" || cfg.GetDBPath() != "" {
		t.Error("output paths should default to empty")
	}

	if diff := cmp.Diff(gait.DefaultOptions(), cfg.ToOptions()); diff != "" {
		t.Errorf("ToOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "gait.json", `{
  "metadata_len": 5,
  "joint_offsets": {"right_ankle": 41},
  "on_malformed": "skip",
  "on_degenerate": "sentinel_zero",
  "normalization": "none",
  "features": ["left_knee_angle", "Right Knee Angle"],
  "plot_dir": "plots",
  "workers": 2
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	opts := cfg.ToOptions()
	if opts.Schema.MetadataLen != 5 {
		t.Errorf("MetadataLen = %d, want 5", opts.Schema.MetadataLen)
	}
	if opts.Schema.Offsets[gait.RightAnkle] != 41 {
		t.Errorf("right_ankle offset = %d, want 41", opts.Schema.Offsets[gait.RightAnkle])
	}
	if opts.Schema.Offsets[gait.LeftHip] != 29 {
		t.Errorf("left_hip offset should keep default 29, got %d", opts.Schema.Offsets[gait.LeftHip])
	}
	if opts.OnMalformed != gait.MalformedSkip || opts.OnDegenerate != gait.DegenerateSentinelZero {
		t.Errorf("policies = %q/%q", opts.OnMalformed, opts.OnDegenerate)
	}
	want := []gait.Feature{gait.LeftKneeAngle, gait.RightKneeAngle}
	if diff := cmp.Diff(want, opts.Compare.Features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if cfg.GetPlotDir() != "plots" || cfg.GetWorkers() != 2 {
		t.Errorf("plot_dir=%q workers=%d", cfg.GetPlotDir(), cfg.GetWorkers())
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "gait.yaml", `
on_degenerate: sentinel_zero
normalization: range
db_path: results.db
html_report: report.html
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}
	if cfg.GetOnDegenerate() != gait.DegenerateSentinelZero {
		t.Errorf("GetOnDegenerate() = %q", cfg.GetOnDegenerate())
	}
	if cfg.GetDBPath() != "results.db" || cfg.GetHTMLReport() != "report.html" {
		t.Errorf("db_path=%q html_report=%q", cfg.GetDBPath(), cfg.GetHTMLReport())
	}
	if cfg.GetOnMalformed() != gait.MalformedAbort {
		t.Errorf("unset on_malformed should default to abort")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "gait.toml", `x = 1`, "extension"},
		{"bad json", "gait.json", `{`, "parse config JSON"},
		{"bad yaml", "gait.yml", "on_malformed: [", "parse config YAML"},
		{"bad malformed policy", "gait.json", `{"on_malformed": "retry"}`, "on_malformed"},
		{"bad degenerate policy", "gait.json", `{"on_degenerate": "interpolate"}`, "on_degenerate"},
		{"bad normalization", "gait.json", `{"normalization": "zscore"}`, "normalization"},
		{"bad feature", "gait.json", `{"features": ["cadence"]}`, "features"},
		{"duplicate feature", "gait.json", `{"features": ["step_length", "step_length"]}`, "more than once"},
		{"bad joint", "gait.json", `{"joint_offsets": {"left_elbow": 3}}`, "joint_offsets"},
		{"negative offset", "gait.json", `{"joint_offsets": {"left_hip": -1}}`, "non-negative"},
		{"negative metadata", "gait.json", `{"metadata_len": -7}`, "metadata_len"},
		{"zero workers", "gait.json", `{"workers": 0}`, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadConfig(missing) = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadConfigFS_Memory(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.WriteFile("/etc/gait/run.yaml", []byte("features: [left_knee_angle, right_knee_angle]\nworkers: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFS(mfs, "/etc/gait/run.yaml")
	if err != nil {
		t.Fatalf("LoadConfigFS: %v", err)
	}
	want := []gait.Feature{gait.LeftKneeAngle, gait.RightKneeAngle}
	if diff := cmp.Diff(want, cfg.GetFeatures()); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if cfg.GetWorkers() != 3 {
		t.Errorf("workers = %d, want 3", cfg.GetWorkers())
	}

	if _, err := LoadConfigFS(mfs, "/etc/gait/absent.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadConfigFS_TooLarge(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	big := append([]byte("{\"workers\": 2, \"pad\": \""), bytes.Repeat([]byte("x"), maxConfigSize)...)
	big = append(big, '"', '}')
	if err := mfs.WriteFile("/big.json", big, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfigFS(mfs, "/big.json")
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("LoadConfigFS(big) = %v, want size error", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if diff := cmp.Diff(gait.DefaultOptions(), cfg.ToOptions()); diff != "" {
		t.Errorf("defaults file drifted from gait.DefaultOptions (-want +got):\n%s", diff)
	}
}

func TestSetters(t *testing.T) {
	cfg := EmptyConfig()
	cfg.SetOnMalformed("skip")
	cfg.SetOnDegenerate("sentinel_zero")
	cfg.SetWorkers(8)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.GetOnMalformed() != gait.MalformedSkip || cfg.GetOnDegenerate() != gait.DegenerateSentinelZero || cfg.GetWorkers() != 8 {
		t.Error("setters did not take effect")
	}
}
