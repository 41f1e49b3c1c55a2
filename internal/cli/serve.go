package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodecalc/internal/api"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string
	timeout    time.Duration
	noCache    bool
	cacheURL   string
	extensions []string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080", timeout: api.DefaultEvalTimeout}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator over HTTP",
		Long: `Serve the calculator over HTTP.

The operator table is fixed when the server starts: the config's extensions
and any --extension bundles are merged once and shared by every request.
Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(withLogger(cmd.Context(), c.Logger), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "per-request evaluation timeout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the evaluation cache")
	cmd.Flags().StringVar(&opts.cacheURL, "cache-url", os.Getenv("NODECALC_CACHE_URL"), "redis:// URL of a shared cache")
	cmd.Flags().StringSliceVarP(&opts.extensions, "extension", "e", nil, "operator bundle to merge (repeatable)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
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

	srv := api.New(api.Options{
		Runner:      runner,
		Table:       table,
		Config:      cfg,
		EvalTimeout: opts.timeout,
		Logger:      loggerFromContext(ctx),
	})

	printSuccess("Serving on %s", StyleHighlight.Render(opts.addr))
	printKeyValue("Operators", strconv.Itoa(table.Len()))
	printKeyValue("Cache", cacheLabel(opts))
	printKeyValue("Timeout", opts.timeout.String())
	printNewline()
	printNextStep("Try", fmt.Sprintf("curl %s/v1/operators", baseURL(opts.addr)))

	err = srv.ListenAndServe(ctx, opts.addr)
	if stderrors.Is(err, context.Canceled) {
		printInfo("Server stopped")
		return nil
	}
	return err
}

func cacheLabel(opts serveOpts) string {
	switch {
	case opts.noCache:
		return "off"
	case opts.cacheURL != "":
		return "redis"
	}
	return "file"
}

// baseURL turns a listen address into a URL a local client can reach.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
