package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodecalc/pkg/cache"
	"github.com/matzehuels/nodecalc/pkg/calc"
	"github.com/matzehuels/nodecalc/pkg/config"
	"github.com/matzehuels/nodecalc/pkg/host/memory"
	"github.com/matzehuels/nodecalc/pkg/optable"
	"github.com/matzehuels/nodecalc/pkg/render/nodelink"
	"github.com/matzehuels/nodecalc/pkg/script"
)

// Runner evaluates scripts with caching. It holds no per-run state, so one
// Runner can serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil logger
// uses log.Default().
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs the full load → eval → render pipeline, serving the result
// from the cache when an identical run was stored.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cfg, err := opts.ResolveConfig()
	if err != nil {
		return nil, err
	}
	table := opts.Table
	if table == nil {
		if table, err = optable.LoadTable(cfg.Extensions...); err != nil {
			return nil, err
		}
	}

	key := cacheKey(opts, cfg, table)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err != nil {
			r.Logger.Warn("cache lookup failed", "err", err)
		} else if hit {
			var res Result
			if err := json.Unmarshal(data, &res); err == nil {
				res.CacheInfo = CacheInfo{Hit: true, Key: key}
				return &res, nil
			}
			r.Logger.Debug("discarding unreadable cache entry", "key", key)
		}
	}

	g, err := LoadScene(opts.Scene)
	if err != nil {
		return nil, err
	}
	res, err := r.Evaluate(ctx, g, opts, cfg, table)
	if err != nil {
		return nil, err
	}
	res.CacheInfo.Key = key

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, TTLResult); err != nil {
			r.Logger.Warn("cache store failed", "err", err)
		}
	}
	return res, nil
}

// Evaluate runs the script against g and renders the requested artifacts.
// It does not touch the cache. g holds the resulting scene afterwards, even
// when the script fails part way.
func (r *Runner) Evaluate(ctx context.Context, g *memory.Graph, opts Options, cfg config.Config, table *optable.Table) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}
	before := len(g.Nodes())

	evalStart := time.Now()
	c := calc.New(g,
		calc.WithConfig(cfg),
		calc.WithTable(table),
		calc.WithLogger(logger),
		calc.WithContext(ctx),
	)
	in := script.New(c, script.WithLogger(logger))

	res := &Result{}
	run := func() error { return in.Run(ctx, opts.ScriptName, []byte(opts.Script)) }
	if opts.Trace {
		sess, err := c.Trace(func(*calc.TracerSession) error { return run() })
		if sess != nil {
			res.Trace = sess.Commands()
		}
		if err != nil {
			return nil, err
		}
	} else if err := run(); err != nil {
		return nil, err
	}
	res.Stats.EvalTime = time.Since(evalStart)

	nodes := g.Nodes()
	for _, n := range nodes[before:] {
		res.Created = append(res.Created, Node{Name: n.Name, Type: n.Type})
	}
	for _, conn := range g.Connections() {
		res.Connections = append(res.Connections, Connection{Source: conn.Source, Destination: conn.Destination})
	}
	res.Stats.NodeCount = len(nodes)
	res.Stats.EdgeCount = len(res.Connections)

	logger.Info("evaluated script",
		"script", opts.ScriptName,
		"created", len(res.Created),
		"connections", res.Stats.EdgeCount,
		"duration", res.Stats.EvalTime)

	renderStart := time.Now()
	artifacts, err := Render(ctx, g, opts.Formats, nodelink.Options{
		Generated: cfg.NodePrefix + "_",
		Detailed:  opts.Detailed,
	})
	if err != nil {
		return nil, err
	}
	res.Artifacts = artifacts
	res.Stats.RenderTime = time.Since(renderStart)
	return res, nil
}

// Render produces the artifacts for formats from g.
func Render(ctx context.Context, g *memory.Graph, formats []string, opts nodelink.Options) (map[string][]byte, error) {
	if len(formats) == 0 {
		return nil, nil
	}
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(formats))
	var dot string
	for _, f := range formats {
		switch f {
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(g.DAG(), opts)
			}
			if f == FormatDOT {
				out[f] = []byte(dot)
				continue
			}
			svg, err := nodelink.RenderSVG(ctx, dot)
			if err != nil {
				return nil, err
			}
			out[f] = svg
		case FormatScene:
			var buf bytes.Buffer
			if err := g.EncodeScene(&buf); err != nil {
				return nil, err
			}
			out[f] = buf.Bytes()
		}
	}
	return out, nil
}

// LoadScene decodes a TOML scene into a new graph. An empty document gives
// an empty scene.
func LoadScene(doc string) (*memory.Graph, error) {
	g := memory.New()
	if strings.TrimSpace(doc) == "" {
		return g, nil
	}
	s, err := memory.DecodeScene(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}
	if err := g.Apply(s); err != nil {
		return nil, err
	}
	return g, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func cacheKey(opts Options, cfg config.Config, table *optable.Table) string {
	entries := make([]optable.Entry, 0, table.Len())
	for _, name := range table.Names() {
		e, _ := table.Lookup(name)
		entries = append(entries, e)
	}
	return cache.Key(opts.Script, opts.ScriptName, opts.Scene, cfg, table.Names(), entries,
		opts.Trace, opts.Formats, opts.Detailed)
}
