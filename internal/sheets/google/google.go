package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"zerobudget/internal/cache"
	"zerobudget/internal/core"
	ports "zerobudget/internal/sheets"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// knownTabTTL bounds how long a tab is assumed to exist without checking.
const knownTabTTL = time.Hour

// Client exports period summaries into one tab per month ("YYYY-MM").
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	knownTabs     *cache.LRU[struct{}]
}

var _ ports.PeriodExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, cfg.SpreadsheetID), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		knownTabs:     cache.NewLRU[struct{}](64, knownTabTTL),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportPeriod implements ports.PeriodExporter.
func (c *Client) ExportPeriod(ctx context.Context, ownerID string, summary *core.PeriodSummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if summary == nil {
		return "", errors.New("nothing to export")
	}

	tab := TabName(summary.Year, summary.Month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	whole := fmt.Sprintf("'%s'", tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, whole, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		// The tab may have been removed by hand.
		c.knownTabs.Delete(tab)
		return "", fmt.Errorf("clear sheet %s: %w", tab, err)
	}

	rows := PeriodRows(ownerID, summary)
	rng := fmt.Sprintf("'%s'!A1:%s%d", tab, lastColumn, len(rows))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Exported period to Google Sheets",
		"owner_id", ownerID,
		"period", tab,
		"rows", len(rows))
	return rng, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	if _, ok := c.knownTabs.Get(tab); ok {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			c.knownTabs.Set(tab, struct{}{})
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	c.knownTabs.Set(tab, struct{}{})
	slog.InfoContext(ctx, "Created spreadsheet tab", "tab", tab)
	return nil
}
