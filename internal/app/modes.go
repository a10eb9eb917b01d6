package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Jemiiah/Maniifold/internal/oracle"
	"github.com/Jemiiah/Maniifold/internal/server"
	"github.com/Jemiiah/Maniifold/internal/server/handler"
	"github.com/Jemiiah/Maniifold/internal/server/ws"
	"github.com/Jemiiah/Maniifold/internal/service"
)

// WorkerMode runs the market lifecycle worker (and the archiver when
// configured) without the HTTP API.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorker(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// ServeMode runs the REST/WS API without the lifecycle worker. Markets can be
// created and force-transitioned, but no ledger transactions are submitted.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the lifecycle worker, the archiver, and the HTTP API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorker(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return g.Wait()
}

func (a *App) startWorker(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	w := oracle.NewWorker(oracle.Config{
		Interval:    a.cfg.Worker.Interval.Duration,
		SubmitDelay: a.cfg.Worker.SubmitDelay.Duration,
		CreateFee:   a.cfg.Ledger.CreateFee,
		LockFee:     a.cfg.Ledger.LockFee,
		ResolveFee:  a.cfg.Ledger.ResolveFee,
	}, deps.Markets, deps.Ledger, deps.Metrics, deps.Bus, deps.Notifier, a.logger)

	g.Go(func() error {
		w.Run(ctx)
		return ctx.Err()
	})
}

func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	interval := a.cfg.S3.ArchiveInterval.Duration
	age := a.cfg.S3.ArchiveAfter.Duration
	g.Go(func() error {
		deps.Archiver.Run(ctx, interval, age)
		return ctx.Err()
	})
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	marketSvc := service.NewMarketService(deps.Markets, deps.MarketCache, deps.Bus, deps.Metrics, a.logger)

	hub := ws.NewHub(deps.Bus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Markets: handler.NewMarketHandler(marketSvc, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
