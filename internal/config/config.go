package config

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical comparison defaults file.
const DefaultConfigPath = "config/gait.defaults.json"

// GaitConfig is the root configuration for a gait comparison run. Every field is
// optional; the Get* accessors supply defaults for anything left unset, so partial
// files are safe. JSON and YAML share the same keys.
type GaitConfig struct {
	// Keypoint schema
	MetadataLen  *int           `json:"metadata_len,omitempty" yaml:"metadata_len,omitempty"`
	JointOffsets map[string]int `json:"joint_offsets,omitempty" yaml:"joint_offsets,omitempty"`

	// Frame policies
	OnMalformed  *string `json:"on_malformed,omitempty" yaml:"on_malformed,omitempty"`   // "abort" or "skip"
	OnDegenerate *string `json:"on_degenerate,omitempty" yaml:"on_degenerate,omitempty"` // "drop" or "sentinel_zero"

	// Comparison
	Normalization *string  `json:"normalization,omitempty" yaml:"normalization,omitempty"` // "range" or "none"
	Features      []string `json:"features,omitempty" yaml:"features,omitempty"`

	// Outputs
	PlotDir    *string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	HTMLReport *string `json:"html_report,omitempty" yaml:"html_report,omitempty"`
	DBPath     *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Workers    *int    `json:"workers,omitempty" yaml:"workers,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyConfig returns a GaitConfig with all fields unset.
func EmptyConfig() *GaitConfig {
	return &GaitConfig{}
}

const maxConfigSize = 1 * 1024 * 1024 // 1MB

// LoadConfig loads a GaitConfig from a .json, .yaml or .yml file no larger than 1MB.
func LoadConfig(path string) (*GaitConfig, error) {
	return LoadConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadConfigFS is LoadConfig reading through fsys.
func LoadConfigFS(fsys fsutil.FileSystem, path string) (*GaitConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}
	if !fsys.Exists(cleanPath) {
		return nil, fmt.Errorf("config file %s: %w", cleanPath, fs.ErrNotExist)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("config file too large: more than %d bytes", maxConfigSize)
	}

	cfg := EmptyConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or one of
// its parents. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *GaitConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	fsys := fsutil.OSFileSystem{}
	for _, path := range candidates {
		if !fsys.Exists(path) {
			continue
		}
		cfg, err := LoadConfigFS(fsys, path)
		if err != nil {
			panic(fmt.Sprintf("load %s: %v", path, err))
		}
		return cfg
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *GaitConfig) Validate() error {
	if c.MetadataLen != nil && *c.MetadataLen < 0 {
		return fmt.Errorf("metadata_len must be non-negative, got %d", *c.MetadataLen)
	}
	for name, off := range c.JointOffsets {
		if _, err := gait.ParseJoint(name); err != nil {
			return fmt.Errorf("joint_offsets: %w", err)
		}
		if off < 0 {
			return fmt.Errorf("joint_offsets[%s] must be non-negative, got %d", name, off)
		}
	}
	if c.OnMalformed != nil && !gait.MalformedPolicy(*c.OnMalformed).Valid() {
		return fmt.Errorf("on_malformed must be \"abort\" or \"skip\", got %q", *c.OnMalformed)
	}
	if c.OnDegenerate != nil && !gait.DegeneratePolicy(*c.OnDegenerate).Valid() {
		return fmt.Errorf("on_degenerate must be \"drop\" or \"sentinel_zero\", got %q", *c.OnDegenerate)
	}
	if c.Normalization != nil && !gait.Normalization(*c.Normalization).Valid() {
		return fmt.Errorf("normalization must be \"range\" or \"none\", got %q", *c.Normalization)
	}
	seen := make(map[gait.Feature]bool, len(c.Features))
	for _, name := range c.Features {
		f, err := gait.ParseFeature(name)
		if err != nil {
			return fmt.Errorf("features: %w", err)
		}
		if seen[f] {
			return fmt.Errorf("features: %q listed more than once", name)
		}
		seen[f] = true
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetMetadataLen returns the metadata_len value or the default.
func (c *GaitConfig) GetMetadataLen() int {
	if c.MetadataLen == nil {
		return gait.DefaultSchema().MetadataLen
	}
	return *c.MetadataLen
}

// GetSchema returns the keypoint schema, overlaying any configured joint offsets on
// the default layout.
func (c *GaitConfig) GetSchema() gait.KeypointSchema {
	s := gait.DefaultSchema()
	s.MetadataLen = c.GetMetadataLen()
	for name, off := range c.JointOffsets {
		if j, err := gait.ParseJoint(name); err == nil {
			s.Offsets[j] = off
		}
	}
	return s
}

// GetOnMalformed returns the on_malformed value or the default.
func (c *GaitConfig) GetOnMalformed() gait.MalformedPolicy {
	if c.OnMalformed == nil {
		return gait.MalformedAbort
	}
	return gait.MalformedPolicy(*c.OnMalformed)
}

// GetOnDegenerate returns the on_degenerate value or the default.
func (c *GaitConfig) GetOnDegenerate() gait.DegeneratePolicy {
	if c.OnDegenerate == nil {
		return gait.DegenerateDrop
	}
	return gait.DegeneratePolicy(*c.OnDegenerate)
}

// GetNormalization returns the normalization value or the default.
func (c *GaitConfig) GetNormalization() gait.Normalization {
	if c.Normalization == nil {
		return gait.NormalizeRange
	}
	return gait.Normalization(*c.Normalization)
}

// GetFeatures returns the features to compare, all four by default.
func (c *GaitConfig) GetFeatures() []gait.Feature {
	if len(c.Features) == 0 {
		return gait.AllFeatures()
	}
	out := make([]gait.Feature, 0, len(c.Features))
	for _, name := range c.Features {
		if f, err := gait.ParseFeature(name); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// GetPlotDir returns the plot_dir value, empty when plotting is disabled.
func (c *GaitConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetHTMLReport returns the html_report path, empty when disabled.
func (c *GaitConfig) GetHTMLReport() string {
	if c.HTMLReport == nil {
		return ""
	}
	return *c.HTMLReport
}

// GetDBPath returns the db_path value, empty when results are not persisted.
func (c *GaitConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetWorkers returns the workers value or the default.
func (c *GaitConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// SetOnMalformed overrides on_malformed, typically from a command-line flag.
func (c *GaitConfig) SetOnMalformed(v string) { c.OnMalformed = ptrString(v) }

// SetOnDegenerate overrides on_degenerate.
func (c *GaitConfig) SetOnDegenerate(v string) { c.OnDegenerate = ptrString(v) }

// SetWorkers overrides workers.
func (c *GaitConfig) SetWorkers(n int) { c.Workers = ptrInt(n) }

// ToOptions converts the configuration into pipeline options.
func (c *GaitConfig) ToOptions() gait.Options {
	return gait.Options{
		Schema:       c.GetSchema(),
		OnMalformed:  c.GetOnMalformed(),
		OnDegenerate: c.GetOnDegenerate(),
		Compare: gait.CompareOptions{
			Normalization: c.GetNormalization(),
			Features:      c.GetFeatures(),
		},
	}
}
