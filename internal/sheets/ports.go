package sheets

import (
	"context"

	"zerobudget/internal/core"
)

// PeriodExporter writes a period summary to an external spreadsheet.
type PeriodExporter interface {
	// ExportPeriod replaces the contents of the period's tab and returns the written range.
	ExportPeriod(ctx context.Context, ownerID string, summary *core.PeriodSummary) (ref string, err error)
}
