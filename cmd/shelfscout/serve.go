package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ShelfScout/internal/api"
	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/dashboard"
)

var servePort int

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Long: `Serve the scrape, match, run and export operations over HTTP, plus the
browser front end at /.

  GET    /
  GET    /api/stats
  GET    /api/health
  POST   /api/runs
  GET    /api/runs
  GET    /api/runs/{name}
  DELETE /api/runs/{name}
  POST   /api/runs/{name}/annotate
  GET    /api/runs/{name}/export
  GET    /api/runs/{name}/diff?against=
  GET    /api/match?q=&limit=
  GET    /metrics`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (0 = config default)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := setup(true, func(cfg *config.Config) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Metrics.Enabled {
		if err := e.scout.Metrics().StartServer(e.cfg.Metrics.Port, e.cfg.Metrics.Path); err != nil {
			e.logger.Warn("failed to start metrics server", "error", err)
		}
	}

	srv := api.NewServer(e.cfg.Server.Port, e.cfg.Scrape, e.logger)
	srv.SetScraper(e.scout.Engine())
	srv.SetMatcher(e.scout.Matcher())
	srv.SetStore(e.store)
	srv.SetExporter(e.scout.Export)
	srv.SetMetrics(e.scout.Metrics())
	srv.SetDashboard(dashboard.NewDashboard(e.scout.Metrics(), e.scout.Engine(), e.logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("ShelfScout API listening on :%d (storage: %s)\n", e.cfg.Server.Port, e.store.Name())
	return srv.Run(ctx)
}
