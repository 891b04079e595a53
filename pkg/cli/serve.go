package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/hyperstub/pkg/cli/internal/output"
	"github.com/getmockd/hyperstub/pkg/config"
	"github.com/getmockd/hyperstub/pkg/engine"
	"github.com/getmockd/hyperstub/pkg/engine/api"
	"github.com/getmockd/hyperstub/pkg/metrics"
)

var serveBindings = map[string]string{
	"host":               "host",
	"port":               "port",
	"control_host":       "control-host",
	"control_port":       "control-port",
	"validate_factories": "validate-factories",
	"metrics":            "metrics",
	"preload":            "preload",
	"index_cache_size":   "cache-size",
	"read_timeout":       "read-timeout",
	"write_timeout":      "write-timeout",
	"shutdown_timeout":   "shutdown-timeout",
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [schema...]",
		Short: "Start the mock server (foreground)",
		Long: `Start the mock server and, unless --control-port is 0, the control API.

The mock server answers every link declared by the schema. The control API
registers canned responses, builds factory objects and reports health.
Both listeners stop on SIGINT or SIGTERM.`,
		Example: `  # Serve a schema on the default ports
  hyperstub serve schema.json

  # Serve every schema under api/ on port 3000 without a control API
  hyperstub serve 'api/**/*.json' --port 3000 --control-port 0

  # Validate factory properties and expose Prometheus metrics
  hyperstub serve schema.json --validate-factories --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd, args, serveBindings)
			if err != nil {
				return err
			}
			return a.runServe(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.String("host", "", "Mock server bind host (all interfaces when empty)")
	fs.IntP("port", "p", config.DefaultPort, "Mock server port (0 picks a free port)")
	fs.String("control-host", config.DefaultControlHost, "Control API bind host")
	fs.Int("control-port", config.DefaultControlPort, "Control API port (0 disables it)")
	fs.Bool("validate-factories", false, "Check factory properties against schema type and enum constraints")
	fs.Bool("metrics", false, "Expose Prometheus metrics on the control API")
	fs.String("preload", "", "File of stubs and factory definitions to install at startup")
	fs.Int("cache-size", config.DefaultIndexCacheSize, "Route lookup cache size")
	fs.Duration("read-timeout", config.DefaultReadTimeout, "Mock server read timeout")
	fs.Duration("write-timeout", config.DefaultWriteTimeout, "Mock server write timeout")
	fs.Duration("shutdown-timeout", config.DefaultShutdownTimeout, "Grace period for in-flight requests on shutdown")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, cfg *config.Config) error {
	log := newLogger(cmd.ErrOrStderr(), cfg)

	sch, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics {
		if !cfg.ControlEnabled() {
			output.Warn(cmd.ErrOrStderr(), "metrics are served by the control API, which is disabled")
		}
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	srv, err := engine.NewServer(sch,
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithFactoryValidation(cfg.ValidateFactories),
		engine.WithIndexCacheSize(cfg.IndexCacheSize),
		engine.WithReadTimeout(cfg.ReadTimeout),
		engine.WithWriteTimeout(cfg.WriteTimeout),
	)
	if err != nil {
		return err
	}
	if cfg.Preload != "" {
		if err := applyPreload(srv, cfg.Preload, log); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mockAddr, err := srv.Start(ctx, cfg.MockAddr())
	if err != nil {
		return err
	}

	var (
		ctrl     *api.Server
		ctrlAddr net.Addr
	)
	if cfg.ControlEnabled() {
		ctrl = api.NewServer(srv, api.WithLogger(log), api.WithMetrics(m))
		if ctrlAddr, err = ctrl.Start(ctx, cfg.ControlAddr()); err != nil {
			_ = srv.Stop(context.Background())
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mock server listening on http://%s\n", mockAddr)
	if ctrlAddr != nil {
		fmt.Fprintf(out, "Control API listening on http://%s\n", ctrlAddr)
	}
	if a.onReady != nil {
		a.onReady(mockAddr, ctrlAddr)
	}

	<-ctx.Done()
	log.Info("shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return srv.Stop(shutdownCtx) })
	if ctrl != nil {
		g.Go(func() error { return ctrl.Stop(shutdownCtx) })
	}
	return g.Wait()
}

func applyPreload(srv *engine.Server, path string, log *slog.Logger) error {
	p, err := config.LoadPreload(path)
	if err != nil {
		return err
	}
	for name, props := range p.Factories {
		srv.DefineFactory(name, props)
	}
	for _, st := range p.Stubs {
		srv.Stub(st.Method, st.Path, st.Body, st.Status)
	}
	log.Info("preload applied", "file", path, "factories", len(p.Factories), "stubs", len(p.Stubs))
	return nil
}
