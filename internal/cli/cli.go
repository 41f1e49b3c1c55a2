// Package cli implements the nodecalc command-line interface.
//
// The commands evaluate calculator scripts against TOML scenes, list the
// operator table, render scenes as node-link diagrams, run an interactive
// statement loop and serve the HTTP API. The CLI is built on cobra and logs
// through charmbracelet/log.
//
// # Commands
//
//   - eval: run a script against a scene, optionally traced and watched
//   - ops: list the operators of the base table and any extensions
//   - render: draw a scene file as DOT or SVG
//   - repl: evaluate statements interactively
//   - serve: start the HTTP API
//   - cache: manage the evaluation cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodecalc/pkg/buildinfo"
	"github.com/matzehuels/nodecalc/pkg/cache"
	"github.com/matzehuels/nodecalc/pkg/config"
	"github.com/matzehuels/nodecalc/pkg/optable"
	"github.com/matzehuels/nodecalc/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "nodecalc"

	// redisPrefix namespaces nodecalc keys in a shared Redis.
	redisPrefix = "nodecalc:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag. Empty uses the user config file when
	// it exists.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "nodecalc compiles expressions into node networks",
		Long:         `nodecalc turns arithmetic on node attributes into the utility nodes and connections that compute it, and traces the host commands it issues.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.evalCommand())
	root.AddCommand(c.opsCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.replCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Operators
// =============================================================================

// loadConfig reads --config, or the user config file when the flag is unset.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	return config.LoadDefault()
}

// loadTable merges the config's extensions and any extra bundles into the
// base operator table.
func loadTable(cfg config.Config, extra []string) (*optable.Table, error) {
	paths := append(append([]string(nil), cfg.Extensions...), extra...)
	return optable.LoadTable(paths...)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool, cacheURL string) (*pipeline.Runner, error) {
	cc, err := c.newCache(noCache, cacheURL)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, c.Logger), nil
}

// newCache picks the cache backend: none, Redis when a URL is given, the
// file cache otherwise. A missing home directory disables caching.
func (c *CLI) newCache(noCache bool, cacheURL string) (cache.Cache, error) {
	switch {
	case noCache:
		return cache.NewNullCache(), nil
	case cacheURL != "":
		rc, err := cache.NewRedisCache(cacheURL, redisPrefix)
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc, "redis"), nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Debug("caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrument(fc, "file"), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/nodecalc/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// readFile reads a script or scene named on the command line.
func readFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
