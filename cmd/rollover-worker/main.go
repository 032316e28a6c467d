package main

import (
	"context"
	"os"
	"time"

	"zerobudget/internal/cli"
	applog "zerobudget/internal/log"
	"zerobudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentRollover)

	logger.InfoContext(context.Background(), "Starting rollover-worker")

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	clock := cli.NewClock(logger, cfg)

	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg, false)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	engine := services.NewRolloverEngine(store, cli.EventPublisher(amqpClient))
	scheduler := services.NewRolloverScheduler(store, engine, clock, services.RolloverSchedulerConfig{
		Interval: cfg.RolloverInterval,
	})

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	logger.InfoContext(ctx, "Rollover scheduler configured",
		"interval", cfg.RolloverInterval,
		"timezone", cfg.Timezone,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := scheduler.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start rollover scheduler", applog.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		logger.WarnContext(stopCtx, "Rollover scheduler did not stop cleanly", applog.FieldError, err)
	}
	logger.InfoContext(context.Background(), "Rollover worker stopped gracefully")
}
