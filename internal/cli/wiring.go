package cli

import (
	"context"
	"os"

	"zerobudget/internal/amqp"
	"zerobudget/internal/auth"
	"zerobudget/internal/bank"
	"zerobudget/internal/config"
	applog "zerobudget/internal/log"
	"zerobudget/internal/services"
	"zerobudget/internal/sheets"
	gsheet "zerobudget/internal/sheets/google"
	"zerobudget/internal/storage"
)

// InitAMQP connects to the broker. It returns nil when AMQP is not configured,
// or when required is false and the broker cannot be reached.
func InitAMQP(logger *applog.Logger, cfg *config.Config, required bool) *amqp.Client {
	ctx := context.Background()
	if !cfg.AMQPEnabled() {
		if required {
			logger.ErrorContext(ctx, "AMQP_URL is required")
			os.Exit(1)
		}
		logger.InfoContext(ctx, "AMQP disabled - events are not published and sync runs inline only")
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		if required {
			logger.ErrorContext(ctx, "Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without it", applog.FieldError, err)
		return nil
	}
	logger.InfoContext(ctx, "AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// EventPublisher adapts an optional AMQP client to services.EventPublisher.
func EventPublisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// NewTransactionSync builds the sync engine against the configured bank provider.
func NewTransactionSync(cfg *config.Config, store *storage.SQLiteRepository, events services.EventPublisher, clock services.Clock) *services.TransactionSync {
	provider := bank.NewClient(cfg.BankAPIURL, cfg.BankTimeout)
	return services.NewTransactionSync(store, provider, events, clock, services.TransactionSyncConfig{
		TransactionCount: cfg.SyncTransactionCount,
		Lookback:         cfg.SyncLookback,
	})
}

// InitExporter returns the Google Sheets exporter, or nil when export is disabled.
func InitExporter(ctx context.Context, logger *applog.Logger, cfg *config.Config) sheets.PeriodExporter {
	if !cfg.SheetsEnabled() {
		logger.InfoContext(ctx, "Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client
}

// NewAuthResolver picks the owner resolver for AUTH_MODE.
func NewAuthResolver(cfg *config.Config) auth.Resolver {
	if cfg.AuthMode == config.AuthModeHeader {
		return auth.HeaderResolver{}
	}
	return auth.NewJWTResolver(cfg.JWTSecret)
}
