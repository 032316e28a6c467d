package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

// RecurringPaymentView is a recurring payment with its derived funding state.
type RecurringPaymentView struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Amount              decimal.Decimal    `json:"amount"`
	Frequency           core.Frequency     `json:"frequency"`
	NextDueDate         core.Date          `json:"nextDueDate"`
	CategoryType        *core.CategoryType `json:"categoryType,omitempty"`
	IsActive            bool               `json:"isActive"`
	MonthlyContribution decimal.Decimal    `json:"monthlyContribution"`
	DisplayTarget       decimal.Decimal    `json:"displayTarget"`
	FundedAmount        decimal.Decimal    `json:"fundedAmount"`
	PercentFunded       decimal.Decimal    `json:"percentFunded"`
	IsFullyFunded       bool               `json:"isFullyFunded"`
	DaysUntilDue        int                `json:"daysUntilDue"`
	IsPaid              bool               `json:"isPaid"`
}

// RecurringInput is the client representation of a recurring payment.
// Amounts and dates arrive as text and are parsed here.
type RecurringInput struct {
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Frequency    string `json:"frequency"`
	NextDueDate  string `json:"nextDueDate"`
	CategoryType string `json:"categoryType"`
	IsActive     *bool  `json:"isActive"`
}

// RecurringPatch updates a subset of fields. Nil fields are left untouched.
type RecurringPatch struct {
	Name         *string `json:"name"`
	Amount       *string `json:"amount"`
	Frequency    *string `json:"frequency"`
	NextDueDate  *string `json:"nextDueDate"`
	CategoryType *string `json:"categoryType"`
	IsActive     *bool   `json:"isActive"`
}

// RecurringService manages recurring payments and computes their funding.
type RecurringService struct {
	store ledger.Store
	clock Clock
}

func NewRecurringService(store ledger.Store, clock Clock) *RecurringService {
	return &RecurringService{store: store, clock: clock}
}

func (s *RecurringService) Create(ctx context.Context, ownerID string, in RecurringInput) (*RecurringPaymentView, error) {
	p := core.RecurringPayment{OwnerID: ownerID, Name: strings.TrimSpace(in.Name), IsActive: true}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := applyRecurringFields(&p, &in.Amount, &in.Frequency, &in.NextDueDate, &in.CategoryType); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateRecurring(ctx, &p); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring payment created",
		"owner_id", ownerID,
		"recurring_id", p.ID,
		"frequency", p.Frequency,
		"amount", p.Amount.String())
	return s.view(ctx, p)
}

func (s *RecurringService) Update(ctx context.Context, ownerID, id string, patch RecurringPatch) (*RecurringPaymentView, error) {
	p, err := s.store.GetRecurring(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if err := applyRecurringFields(p, patch.Amount, patch.Frequency, patch.NextDueDate, patch.CategoryType); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRecurring(ctx, p); err != nil {
		return nil, err
	}
	return s.view(ctx, *p)
}

// applyRecurringFields parses the text fields that are set.
func applyRecurringFields(p *core.RecurringPayment, amount, frequency, due, categoryType *string) error {
	if amount != nil {
		a, err := core.ParsePositiveAmount(*amount)
		if err != nil {
			return err
		}
		p.Amount = a
	}
	if frequency != nil {
		f, err := core.ParseFrequency(*frequency)
		if err != nil {
			return err
		}
		p.Frequency = f
	}
	if due != nil {
		d, err := core.ParseDate(*due)
		if err != nil {
			return core.NewValidationError("nextDueDate", "invalid date "+*due)
		}
		p.NextDueDate = d
	}
	if categoryType != nil {
		if strings.TrimSpace(*categoryType) == "" {
			p.CategoryType = nil
		} else {
			ct, err := core.ParseCategoryType(*categoryType)
			if err != nil {
				return err
			}
			p.CategoryType = &ct
		}
	}
	return nil
}

func (s *RecurringService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteRecurring(ctx, ownerID, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring payment deleted", "owner_id", ownerID, "recurring_id", id)
	return nil
}

func (s *RecurringService) Get(ctx context.Context, ownerID, id string) (*RecurringPaymentView, error) {
	p, err := s.store.GetRecurring(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, *p)
}

// List returns every recurring payment of the owner, soonest due first.
func (s *RecurringService) List(ctx context.Context, ownerID string) ([]RecurringPaymentView, error) {
	payments, err := s.store.ListRecurring(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	views := make([]RecurringPaymentView, 0, len(payments))
	for _, p := range payments {
		v, err := s.view(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("recurring payment %s: %w", p.ID, err)
		}
		views = append(views, *v)
	}
	SortByDueDate(views)
	return views, nil
}

// SortByDueDate orders views by days until due, then by name.
func SortByDueDate(views []RecurringPaymentView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].DaysUntilDue != views[j].DaysUntilDue {
			return views[i].DaysUntilDue < views[j].DaysUntilDue
		}
		return strings.ToLower(views[i].Name) < strings.ToLower(views[j].Name)
	})
}

// FundedAmount sums the activity on items linked to the payment. Income and
// monthly payments count only the current calendar period; other frequencies
// accumulate across every period.
func (s *RecurringService) FundedAmount(ctx context.Context, p core.RecurringPayment) (funded decimal.Decimal, paidThisPeriod bool, err error) {
	linked, err := s.store.ItemsForRecurring(ctx, p.OwnerID, p.ID)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(linked) == 0 {
		return decimal.Zero, false, nil
	}

	ids := make([]string, 0, len(linked))
	for _, li := range linked {
		ids = append(ids, li.Item.ID)
	}
	direct, splits, err := s.store.ItemActivity(ctx, ids)
	if err != nil {
		return decimal.Zero, false, err
	}
	actuals := ItemActuals(direct, splits)

	year, month := s.clock.CurrentPeriod()
	perPeriod := fundsPerPeriod(p)
	funded = decimal.Zero
	for _, li := range linked {
		current := li.Year == year && li.Month == month
		if current && actuals[li.Item.ID].IsPositive() {
			paidThisPeriod = true
		}
		if perPeriod && !current {
			continue
		}
		funded = funded.Add(actuals[li.Item.ID])
	}
	return funded, paidThisPeriod, nil
}

func (s *RecurringService) view(ctx context.Context, p core.RecurringPayment) (*RecurringPaymentView, error) {
	contribution, err := MonthlyContribution(p)
	if err != nil {
		return nil, err
	}
	target, err := DisplayTarget(p)
	if err != nil {
		return nil, err
	}
	funded, paid, err := s.FundedAmount(ctx, p)
	if err != nil {
		return nil, err
	}

	return &RecurringPaymentView{
		ID:                  p.ID,
		Name:                p.Name,
		Amount:              core.RoundMoney(p.Amount),
		Frequency:           p.Frequency,
		NextDueDate:         p.NextDueDate,
		CategoryType:        p.CategoryType,
		IsActive:            p.IsActive,
		MonthlyContribution: core.RoundMoney(contribution),
		DisplayTarget:       core.RoundMoney(target),
		FundedAmount:        core.RoundMoney(funded),
		PercentFunded:       PercentFunded(funded, target),
		IsFullyFunded:       !funded.LessThan(target),
		DaysUntilDue:        s.clock.DaysUntilDue(p.NextDueDate),
		IsPaid:              paid,
	}, nil
}
