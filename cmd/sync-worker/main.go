package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"zerobudget/internal/cli"
	applog "zerobudget/internal/log"
	"zerobudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.InfoContext(context.Background(), "Starting sync-worker")

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	clock := cli.NewClock(logger, cfg)

	// Without a broker the worker still runs the periodic sweep.
	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg, false)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	syncer := cli.NewTransactionSync(cfg, store, cli.EventPublisher(amqpClient), clock)
	syncWorker := worker.NewSyncWorker(syncer, store)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeSyncRequests(gctx, syncWorker.HandleSyncRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.InfoContext(ctx, "Skipping AMQP message consumption - no broker configured")
	}

	g.Go(func() error {
		logger.InfoContext(gctx, "Periodic sync configured", "interval", cfg.SyncInterval)
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		// Catch up on anything missed while the worker was down.
		if _, err := syncWorker.SyncAllOwners(gctx); err != nil && gctx.Err() == nil {
			logger.ErrorContext(gctx, "Startup sync failed", applog.FieldError, err)
		}

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := syncWorker.SyncAllOwners(gctx); err != nil && gctx.Err() == nil {
					logger.ErrorContext(gctx, "Periodic sync failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Sync worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Sync worker stopped gracefully")
}
