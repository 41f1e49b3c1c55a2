// Package pipeline runs calculator scripts against a scene.
//
// The pipeline is shared by the CLI and the HTTP API so both evaluate,
// cache and render the same way:
//
//  1. Load: decode the TOML scene into a fresh [memory.Graph]
//  2. Eval: run the script through [script.Interpreter], traced on request
//  3. Render: produce DOT, SVG or TOML scene artifacts from the result
//
// Results are cached as JSON, keyed on everything that can change them.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Script:  "A.translateX = B.translateY + 2",
//	    Scene:   sceneTOML,
//	    Trace:   true,
//	    Formats: []string{pipeline.FormatDOT},
//	})
//	fmt.Println(strings.Join(result.Trace, "\n"))
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodecalc/pkg/config"
	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/optable"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultScriptName labels script errors when the caller gives no name.
const DefaultScriptName = "script"

// TTLResult is how long an evaluation result stays cached.
const TTLResult = 7 * 24 * time.Hour

// Format constants for output artifacts.
const (
	FormatDOT   = "dot"
	FormatSVG   = "svg"
	FormatScene = "toml"
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatDOT:   true,
	FormatSVG:   true,
	FormatScene: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options describes one evaluation. It doubles as the API request body.
type Options struct {
	// Script is the statement source to run.
	Script string `json:"script"`

	// ScriptName prefixes error locations ("rig.nc:3").
	ScriptName string `json:"script_name,omitempty"`

	// Scene is a TOML scene the script runs against. Empty starts from an
	// empty scene.
	Scene string `json:"scene,omitempty"`

	// Config is a TOML config document overlaid on the base config.
	Config string `json:"config,omitempty"`

	// Trace records the host commands the script issues.
	Trace bool `json:"trace,omitempty"`

	// Formats lists the artifacts to render: dot, svg, toml.
	Formats []string `json:"formats,omitempty"`

	// Detailed adds layer rows to rendered diagrams.
	Detailed bool `json:"detailed,omitempty"`

	// Refresh skips the cache lookup. The fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// BaseConfig is the config that Config overlays. Zero means
	// config.Default().
	BaseConfig *config.Config `json:"-"`

	// Table is the operator table. Nil loads the base table plus the
	// config's extensions.
	Table *optable.Table `json:"-"`

	Logger *log.Logger `json:"-"`
}

// Result holds the outcome of an evaluation.
type Result struct {
	// Trace holds the recorded host commands when Options.Trace is set.
	Trace []string `json:"trace,omitempty"`

	// Created lists the nodes the script created, in creation order.
	Created []Node `json:"created"`

	// Connections lists every connection in the resulting scene.
	Connections []Connection `json:"connections"`

	// Artifacts holds rendered outputs keyed by format.
	Artifacts map[string][]byte `json:"artifacts,omitempty"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"-"`
}

// Node is a scene node by name and type.
type Node struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Connection is one "node.attr" to "node.attr" connection.
type Connection struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Stats contains evaluation statistics.
type Stats struct {
	NodeCount  int           `json:"nodes"`
	EdgeCount  int           `json:"edges"`
	EvalTime   time.Duration `json:"eval_time"`
	RenderTime time.Duration `json:"render_time"`
}

// CacheInfo reports whether the result came from the cache.
type CacheInfo struct {
	Hit bool
	Key string
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg, toml)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks required fields and applies defaults.
func (o *Options) Validate() error {
	if o.Script == "" {
		return errors.New(errors.ErrCodeInvalidInput, "script is required")
	}
	if o.ScriptName == "" {
		o.ScriptName = DefaultScriptName
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ResolveConfig overlays Config on the base config.
func (o *Options) ResolveConfig() (config.Config, error) {
	cfg := config.Default()
	if o.BaseConfig != nil {
		cfg = *o.BaseConfig
		cfg.Extensions = slices.Clone(cfg.Extensions)
	}
	if o.Config == "" {
		return cfg, nil
	}
	if err := cfg.Decode(o.Config); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// HasFormat reports whether format was requested.
func (o *Options) HasFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}
