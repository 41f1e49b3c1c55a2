package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/nodecalc/pkg/buildinfo"
	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/httputil"
	"github.com/matzehuels/nodecalc/pkg/optable"
	"github.com/matzehuels/nodecalc/pkg/pipeline"
	"github.com/matzehuels/nodecalc/pkg/script"
)

// operatorJSON is one operator as listed by /v1/operators.
type operatorJSON struct {
	Name   string `json:"name"`
	Bundle string `json:"bundle"`
	optable.Entry
}

// evalRequest is the body of POST /v1/eval.
type evalRequest struct {
	Script     string   `json:"script"`
	ScriptName string   `json:"script_name,omitempty"`
	Scene      string   `json:"scene,omitempty"`
	Config     string   `json:"config,omitempty"`
	Trace      bool     `json:"trace,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
	Refresh    bool     `json:"refresh,omitempty"`
}

// evalResponse is the result of POST /v1/eval. Artifacts are returned as
// text; SVG, DOT and TOML are all UTF-8.
type evalResponse struct {
	Trace       []string              `json:"trace,omitempty"`
	Created     []pipeline.Node       `json:"created"`
	Connections []pipeline.Connection `json:"connections"`
	Artifacts   map[string]string     `json:"artifacts,omitempty"`
	Stats       pipeline.Stats        `json:"stats"`
	Cached      bool                  `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"build":     buildinfo.Get(),
		"operators": s.table.Len(),
	})
}

func (s *Server) handleOperators(w http.ResponseWriter, r *http.Request) {
	names := s.table.Names()
	out := make([]operatorJSON, 0, len(names))
	for _, name := range names {
		e, err := s.table.Lookup(name)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		out = append(out, operatorJSON{Name: name, Bundle: s.table.Origin(name), Entry: e})
	}
	httputil.JSON(w, http.StatusOK, out)
}

func (s *Server) handleOperator(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := s.table.Lookup(name)
	if err != nil {
		httputil.Error(w, errors.Wrap(errors.ErrCodeNotFound, err, "operator %q", name))
		return
	}
	httputil.JSON(w, http.StatusOK, operatorJSON{Name: name, Bundle: s.table.Origin(name), Entry: e})
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, script.Functions())
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.evalTimeout)
	defer cancel()

	cfg := s.cfg
	res, err := s.runner.Execute(ctx, pipeline.Options{
		Script:     req.Script,
		ScriptName: req.ScriptName,
		Scene:      req.Scene,
		Config:     req.Config,
		Trace:      req.Trace,
		Formats:    req.Formats,
		Detailed:   req.Detailed,
		Refresh:    req.Refresh,
		BaseConfig: &cfg,
		Table:      s.table,
		Logger:     s.logger,
	})
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrap(errors.ErrCodeInvalidInput, err, "evaluation exceeded %s", s.evalTimeout)
		}
		s.logger.Debug("eval failed", "err", err)
		httputil.Error(w, err)
		return
	}

	resp := evalResponse{
		Trace:       res.Trace,
		Created:     res.Created,
		Connections: res.Connections,
		Stats:       res.Stats,
		Cached:      res.CacheInfo.Hit,
	}
	if resp.Created == nil {
		resp.Created = []pipeline.Node{}
	}
	if resp.Connections == nil {
		resp.Connections = []pipeline.Connection{}
	}
	if len(res.Artifacts) > 0 {
		resp.Artifacts = make(map[string]string, len(res.Artifacts))
		for format, data := range res.Artifacts {
			resp.Artifacts[format] = string(data)
		}
	}
	httputil.JSON(w, http.StatusOK, resp)
}
