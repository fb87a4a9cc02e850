package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stockroom/internal/inventory/handler"
	"stockroom/internal/inventory/metrics"
	"stockroom/internal/inventory/watcher"
	"stockroom/internal/platform/httpserver"
	platformmetrics "stockroom/internal/platform/metrics"
	httptransport "stockroom/internal/transport/http"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory over HTTP",
		Long: `serve loads the inventory once and exposes it over HTTP together with
/healthz and /metrics. Write endpoints require X-Admin-Token when an admin
token is configured. With --watch, a file origin is reloaded when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.cfg.Server.Addr, "addr", a.cfg.Server.Addr, "listen address")
	f.StringVar(&a.cfg.Server.AdminToken, "admin-token", a.cfg.Server.AdminToken, "token required by write endpoints")
	f.BoolVar(&a.cfg.Watch.Enabled, "watch", a.cfg.Watch.Enabled, "reload when the source file changes")
	f.DurationVar(&a.cfg.Watch.Debounce, "watch-debounce", a.cfg.Watch.Debounce, "quiet period before a reload")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx := cmd.Context()
	reg := platformmetrics.NewRegistry()
	m := metrics.New(reg)

	svc, st, err := a.open(ctx, m)
	if err != nil {
		return err
	}
	defer st.Close()

	router := httptransport.NewRouter(svc, platformmetrics.Handler(reg),
		handler.New(svc, a.logger, handler.WithAdminToken(a.cfg.Server.AdminToken)))
	srv := httpserver.New(a.cfg.Server.Addr, router)

	var w *watcher.Watcher
	if a.cfg.Watch.Enabled {
		if path, ok := st.Path(); ok {
			w, err = watcher.New(path, svc,
				watcher.WithDebounce(a.cfg.Watch.Debounce),
				watcher.WithLogger(a.logger))
			if err != nil {
				return err
			}
		} else {
			a.logger.WarnContext(ctx, "watch needs a local file origin, ignoring", "source", st.String())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv)
	})
	if w != nil {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	a.logger.InfoContext(ctx, "starting stockroom",
		"addr", a.cfg.Server.Addr,
		"source", st.String(),
		"items", svc.Len(),
	)
	return g.Wait()
}
