package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"zerobudget/internal/cli"
	apphttp "zerobudget/internal/http"
	applog "zerobudget/internal/log"
	"zerobudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.InfoContext(context.Background(), "Starting budget API")

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	clock := cli.NewClock(logger, cfg)

	// Optional broker: ledger events and async sync requests.
	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg, false)
	if amqpClient != nil {
		defer amqpClient.Close()
	}
	events := cli.EventPublisher(amqpClient)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	rollover := services.NewRolloverEngine(store, events)
	deps := apphttp.Deps{
		Budget:             services.NewBudgetService(store, rollover),
		Recurring:          services.NewRecurringService(store, clock),
		Rollover:           rollover,
		Syncer:             cli.NewTransactionSync(cfg, store, events, clock),
		Exporter:           cli.InitExporter(ctx, logger.WithComponent(applog.ComponentSheets), cfg),
		Store:              store,
		Auth:               cli.NewAuthResolver(cfg),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	if amqpClient != nil {
		deps.Queue = amqpClient
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "HTTP server listening",
			"port", cfg.Port,
			"auth_mode", cfg.AuthMode,
			"timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
