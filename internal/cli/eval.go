package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodecalc/pkg/pipeline"
)

// evalOpts holds the command-line flags for the eval command.
type evalOpts struct {
	scene      string   // scene file the script runs against
	trace      bool     // show the recorded host commands
	print      bool     // print only the host commands, for piping
	out        string   // write the resulting scene here
	dot        string   // write a DOT diagram here
	svg        string   // write an SVG diagram here
	detailed   bool     // add layer rows to diagrams
	watch      bool     // rerun when the script or scene changes
	noCache    bool     // bypass the evaluation cache
	refresh    bool     // ignore cached results but store the new one
	cacheURL   string   // redis:// URL of a shared cache
	extensions []string // extra operator bundles
}

// evalCommand creates the eval command.
func (c *CLI) evalCommand() *cobra.Command {
	var opts evalOpts

	cmd := &cobra.Command{
		Use:   "eval SCRIPT",
		Short: "Run a calculator script against a scene",
		Long: `Run a calculator script against a scene.

Each statement either connects an expression into an attribute or binds a
local name:

  A.translateX = B.translateY * 2 + 1
  avg = average(A.translate, B.translate)
  C.translate = clamp(avg, 0, 10)

SCRIPT may be "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			if !opts.watch {
				return c.runEval(ctx, args[0], opts)
			}
			if args[0] == "-" {
				return fmt.Errorf("--watch needs a script file, not stdin")
			}
			paths := []string{args[0]}
			if opts.scene != "" {
				paths = append(paths, opts.scene)
			}
			return watch(ctx, paths, func() error {
				if err := c.runEval(ctx, args[0], opts); err != nil {
					printError("%v", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.scene, "scene", "s", "", "TOML scene to run against (default: empty scene)")
	cmd.Flags().BoolVarP(&opts.trace, "trace", "t", false, "show the host commands the script issues")
	cmd.Flags().BoolVar(&opts.print, "print", false, "print only the host commands to stdout")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the resulting scene to this TOML file")
	cmd.Flags().StringVar(&opts.dot, "dot", "", "write a DOT diagram of the resulting scene")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "write an SVG diagram of the resulting scene")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show layer rows in diagrams")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "rerun when the script or scene changes")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the evaluation cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().StringVar(&opts.cacheURL, "cache-url", os.Getenv("NODECALC_CACHE_URL"), "redis:// URL of a shared cache")
	cmd.Flags().StringSliceVarP(&opts.extensions, "extension", "e", nil, "operator bundle to merge (repeatable)")

	return cmd
}

// runEval evaluates one script and writes its outputs.
func (c *CLI) runEval(ctx context.Context, path string, opts evalOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	src, err := readFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	scene, err := readFile(opts.scene)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg, opts.extensions)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache, opts.cacheURL)
	if err != nil {
		return err
	}
	defer runner.Close()

	outputs := evalOutputs(opts)
	formats := make([]string, 0, len(outputs))
	for format := range outputs {
		formats = append(formats, format)
	}

	name := filepath.Base(path)
	if path == "-" {
		name = "stdin"
	}
	res, err := runner.Execute(ctx, pipeline.Options{
		Script:     src,
		ScriptName: name,
		Scene:      scene,
		BaseConfig: &cfg,
		Table:      table,
		Trace:      opts.trace || opts.print,
		Formats:    formats,
		Detailed:   opts.detailed,
		Refresh:    opts.refresh,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if opts.print {
		for _, line := range res.Trace {
			fmt.Fprintln(stdout, line)
		}
	} else {
		printEvalResult(name, res, opts.trace)
	}

	for format, file := range outputs {
		if err := os.WriteFile(file, res.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", file, err)
		}
		if !opts.print {
			printFile(file)
		}
	}
	prog.done("Evaluated " + name)
	return nil
}

// evalOutputs maps each requested artifact format to its output file.
func evalOutputs(opts evalOpts) map[string]string {
	out := make(map[string]string)
	if opts.out != "" {
		out[pipeline.FormatScene] = opts.out
	}
	if opts.dot != "" {
		out[pipeline.FormatDOT] = opts.dot
	}
	if opts.svg != "" {
		out[pipeline.FormatSVG] = opts.svg
	}
	return out
}

func printEvalResult(name string, res *pipeline.Result, trace bool) {
	printSuccess("Evaluated %s", StyleHighlight.Render(name))
	fmt.Fprintln(stdout, statsLine(res.Stats, res.CacheInfo.Hit))
	for _, n := range res.Created {
		printDetail("+ %s (%s)", n.Name, n.Type)
	}
	if trace && len(res.Trace) > 0 {
		printNewline()
		fmt.Fprintln(stdout, renderTrace(res.Trace))
	}
}
