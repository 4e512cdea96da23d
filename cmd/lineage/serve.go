package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/lineage/internal/infrastructure/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the family read API over HTTP",
		Long: `Starts the HTTP API:

  GET /families               family projections
  GET /families/{id}          one family projection
  GET /families/{id}/tree     connected family tree
  GET /people/{id}            person profile
  GET /health, /metrics, /openapi.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, listenAddr)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides server.listen_addr)")

	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, listenAddr string) error {
	return withDeps(ctx, flags, func(d *Deps) error {
		serverCfg := d.Config.Server
		if listenAddr != "" {
			serverCfg.ListenAddr = listenAddr
		}

		srv, err := server.New(serverCfg, server.Services{
			Families: d.Families,
			People:   d.People,
			Metrics:  d.Metrics.Handler(),
		})
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			slog.InfoContext(gctx, "http server listening",
				"addr", serverCfg.ListenAddr,
				"backend", d.Config.Store.Backend,
				"max_families", d.Config.Tree.MaxFamilies)
			return srv.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down http server")
			return nil
		})
		return g.Wait()
	})
}
