package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/pallet-tracker/internal/app"
	"github.com/joseph-ayodele/pallet-tracker/internal/async"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/ingest"
	"github.com/joseph-ayodele/pallet-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: common.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("palletd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger, app.WithMigrate())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.HealthCheck(ctx, 3*time.Second); err != nil {
		return err
	}
	logger.Info("store health OK", "driver", a.Store.Driver())

	queue, err := async.NewProcessorQueue(a.Ingestor,
		async.WithLogger(logger),
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithRunTimeout(cfg.Server.RunTimeout),
	)
	if err != nil {
		return err
	}

	grpcServer, hs := server.NewGRPCServer(server.NewPalletServer(a.Lookup, a.Ingestor, queue, logger), logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC serving", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		server.WatchStoreHealth(gctx, hs, func(ctx context.Context) error {
			return a.Store.HealthCheck(ctx, 3*time.Second)
		}, 30*time.Second, logger)
		return nil
	})

	if cfg.Server.InboxDir != "" {
		events, errs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
			Roots:       []string{cfg.Server.InboxDir},
			InitialScan: true,
			Debounce:    2 * time.Second,
			Logger:      logger,
		})
		if err != nil {
			grpcServer.Stop()
			return err
		}
		logger.Info("watching inbox", "dir", cfg.Server.InboxDir)

		g.Go(func() error {
			for {
				select {
				case path, ok := <-events:
					if !ok {
						return nil
					}
					if err := queue.Enqueue(gctx, async.NewJob(path, "")); err != nil {
						logger.Warn("dropped inbox document", "path", path, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					logger.Warn("inbox watcher error", "error", err)
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		hs.Shutdown()

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			grpcServer.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RunTimeout)
		defer cancel()
		queue.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}
