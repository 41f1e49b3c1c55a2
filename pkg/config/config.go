// Package config loads calculator settings from TOML.
//
// Every field has a default, so a missing file or an empty document yields
// [Default]. A config file only needs the keys it changes:
//
//	node_prefix = "rig"
//	auto_consolidate = false
//	extensions = ["~/rigging/ops.toml"]
//
//	[default_attr_flags]
//	keyable = true
//	hidden = false
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// FileName is the config file looked up in the user config directory.
const FileName = "config.toml"

// Config holds calculator settings.
type Config struct {
	// NodePrefix starts every generated operation node name.
	NodePrefix string `toml:"node_prefix"`

	// SeparatorName is the nice name of separator attributes.
	SeparatorName string `toml:"separator_name"`

	// SeparatorValue is the single enum field of separator attributes.
	SeparatorValue string `toml:"separator_value"`

	// AutoUnravel splits compound attributes into their children.
	AutoUnravel bool `toml:"auto_unravel"`

	// AutoConsolidate collapses full child sets back into their parents.
	AutoConsolidate bool `toml:"auto_consolidate"`

	// VariablePrefix names traced nodes (var1, var2, ...).
	VariablePrefix string `toml:"variable_prefix"`

	// ValuePrefix names traced queried values (val1, val2, ...).
	ValuePrefix string `toml:"value_prefix"`

	// DefaultAttrFlags are passed to every added attribute unless overridden.
	DefaultAttrFlags map[string]any `toml:"default_attr_flags"`

	// Extensions lists operator bundle files merged into the base table.
	Extensions []string `toml:"extensions"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		NodePrefix:       "nc",
		SeparatorName:    "________",
		SeparatorValue:   "________",
		AutoUnravel:      true,
		AutoConsolidate:  true,
		VariablePrefix:   "var",
		ValuePrefix:      "val",
		DefaultAttrFlags: map[string]any{"keyable": true},
	}
}

// Load reads a config file on top of the defaults. Relative extension paths
// are resolved against the config file's directory and "~/" is expanded.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := errors.ValidatePath(path); err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, errors.New(errors.ErrCodeFileNotFound, "config not found: %s", path)
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := cfg.Decode(string(data)); err != nil {
		return cfg, err
	}
	dir := filepath.Dir(path)
	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = resolvePath(dir, ext)
	}
	return cfg, cfg.Validate()
}

// LoadDefault loads the user config file when it exists and returns the
// defaults otherwise.
func LoadDefault() (Config, error) {
	path := DefaultPath()
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath returns $XDG_CONFIG_HOME/nodecalc/config.toml (or the platform
// equivalent), or "" when no config directory is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nodecalc", FileName)
}

// Decode overlays a TOML document on c.
func (c *Config) Decode(doc string) error {
	md, err := toml.Decode(doc, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks that names built from the config are valid host names.
func (c Config) Validate() error {
	if c.NodePrefix != "" {
		if err := errors.ValidateNodeName(c.NodePrefix); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "node_prefix")
		}
	}
	for key, v := range map[string]string{"variable_prefix": c.VariablePrefix, "value_prefix": c.ValuePrefix} {
		if v == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must not be empty", key)
		}
		if err := errors.ValidateNodeName(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", key)
		}
	}
	if c.VariablePrefix == c.ValuePrefix {
		return errors.New(errors.ErrCodeInvalidConfig, "variable_prefix and value_prefix must differ")
	}
	if c.SeparatorValue == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "separator_value must not be empty")
	}
	return nil
}

func resolvePath(dir, p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
