package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"zerobudget/internal/bank"
	"zerobudget/internal/core"
	"zerobudget/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

// fakeProvider serves canned records per provider account id.
type fakeProvider struct {
	mu      sync.Mutex
	records map[string][]bank.Transaction
	fail    map[string]error
	calls   []bank.ListOptions
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{records: map[string][]bank.Transaction{}, fail: map[string]error{}}
}

func (f *fakeProvider) ListTransactions(_ context.Context, _, accountID string, opts bank.ListOptions) ([]bank.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if err := f.fail[accountID]; err != nil {
		return nil, err
	}
	return f.records[accountID], nil
}

var errProviderDown = errors.New("provider unavailable")

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func marchClock() Clock {
	return FixedClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), time.UTC)
}

func findCategory(t *testing.T, p *core.Period, kind core.CategoryKind) core.Category {
	t.Helper()
	for _, c := range p.Categories {
		if c.Type.Kind == kind {
			return c
		}
	}
	t.Fatalf("category kind %d not found", kind)
	return core.Category{}
}

func countItems(p *core.Period) int {
	n := 0
	for _, c := range p.Categories {
		n += len(c.Items)
	}
	return n
}
