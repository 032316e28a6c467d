package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly       Frequency = "weekly"
	BiWeekly     Frequency = "bi-weekly"
	Monthly      Frequency = "monthly"
	Quarterly    Frequency = "quarterly"
	SemiAnnually Frequency = "semi-annually"
	Annually     Frequency = "annually"
)

const (
	TxIncome  TransactionType = "income"
	TxExpense TransactionType = "expense"
)

const (
	StatusPosted  TransactionStatus = "posted"
	StatusPending TransactionStatus = "pending"
)

const dateLayout = "2006-01-02"

const maxNameLength = 200

type (
	Frequency         string
	TransactionType   string
	TransactionStatus string

	// Date is a calendar date without a time zone. It is always stored at UTC midnight.
	Date struct {
		time.Time
	}

	// Period is a (owner, year, month) budget. Month is 1-12.
	Period struct {
		ID         string          `json:"id"`
		OwnerID    string          `json:"-"`
		Year       int             `json:"year"`
		Month      int             `json:"month"`
		Buffer     decimal.Decimal `json:"buffer"`
		Categories []Category      `json:"categories"`
	}

	Category struct {
		ID       string       `json:"id"`
		PeriodID string       `json:"periodId"`
		Type     CategoryType `json:"categoryType"`
		Name     string       `json:"name"`
		Emoji    string       `json:"emoji"`
		Order    int          `json:"order"`
		Items    []BudgetItem `json:"items,omitempty"`
	}

	BudgetItem struct {
		ID                 string          `json:"id"`
		CategoryID         string          `json:"categoryId"`
		Name               string          `json:"name"`
		Planned            decimal.Decimal `json:"planned"`
		Order              int             `json:"order"`
		RecurringPaymentID *string         `json:"recurringPaymentId,omitempty"`
	}

	Transaction struct {
		ID           string            `json:"id"`
		OwnerID      string            `json:"-"`
		BudgetItemID *string           `json:"budgetItemId"`
		AccountID    *string           `json:"accountId,omitempty"`
		Date         Date              `json:"date"`
		Description  string            `json:"description"`
		Amount       decimal.Decimal   `json:"amount"`
		Type         TransactionType   `json:"type"`
		Merchant     *string           `json:"merchant,omitempty"`
		ExternalID   *string           `json:"externalId,omitempty"`
		Status       TransactionStatus `json:"status"`
		DeletedAt    *time.Time        `json:"deletedAt,omitempty"`
		// HasSplits is derived from the split table and never written.
		HasSplits bool `json:"hasSplits"`
	}

	Split struct {
		ID            string          `json:"id"`
		TransactionID string          `json:"transactionId"`
		BudgetItemID  string          `json:"budgetItemId"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
	}

	RecurringPayment struct {
		ID           string
		OwnerID      string
		Name         string
		Amount       decimal.Decimal
		Frequency    Frequency
		NextDueDate  Date
		CategoryType *CategoryType
		IsActive     bool
	}

	LinkedAccount struct {
		ID                string     `json:"id"`
		OwnerID           string     `json:"-"`
		Name              string     `json:"name"`
		Institution       string     `json:"institution"`
		ProviderAccountID string     `json:"providerAccountId"`
		AccessToken       string     `json:"-"`
		SyncEnabled       bool       `json:"syncEnabled"`
		LastSyncedAt      *time.Time `json:"lastSyncedAt,omitempty"`
		SyncStartDate     *Date      `json:"syncStartDate,omitempty"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", "invalid date "+s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// DaysUntil returns the whole number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseFrequency validates a frequency string.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Weekly, BiWeekly, Monthly, Quarterly, SemiAnnually, Annually:
		return f, nil
	}
	return "", NewValidationError("frequency", "unknown frequency "+s)
}

// ValidateMonth checks a 1-indexed month and a plausible year.
func ValidateMonth(year, month int) error {
	if month < 1 || month > 12 {
		return NewValidationError("month", "month must be between 1 and 12")
	}
	if year < 1900 || year > 9999 {
		return NewValidationError("year", "year out of range")
	}
	return nil
}

// PreviousMonth returns the month before (year, month), wrapping the year.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// TypeForAmount derives the transaction type from a signed provider amount.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsPositive() {
		return TxIncome
	}
	return TxExpense
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError(field, "cannot be empty")
	}
	if len(name) > maxNameLength {
		return NewValidationError(field, "too long (max 200 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if c.PeriodID == "" {
		return NewValidationError("periodId", "is required")
	}
	if c.Type.IsZero() {
		return NewValidationError("categoryType", "is required")
	}
	return validateName("name", c.Name)
}

func (i BudgetItem) Validate() error {
	if i.CategoryID == "" {
		return NewValidationError("categoryId", "is required")
	}
	if i.Planned.IsNegative() {
		return NewValidationError("planned", "cannot be negative")
	}
	return validateName("name", i.Name)
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if len(t.Description) > 500 {
		return NewValidationError("description", "too long (max 500 characters)")
	}
	if t.Amount.IsNegative() {
		return NewValidationError("amount", "must be stored as an absolute value")
	}
	switch t.Type {
	case TxIncome, TxExpense:
	default:
		return NewValidationError("type", "must be income or expense")
	}
	return nil
}

func (p RecurringPayment) Validate() error {
	if err := validateName("name", p.Name); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if _, err := ParseFrequency(string(p.Frequency)); err != nil {
		return err
	}
	if p.NextDueDate.IsZero() {
		return NewValidationError("nextDueDate", "is required")
	}
	return nil
}

func (a LinkedAccount) Validate() error {
	if err := validateName("name", a.Name); err != nil {
		return err
	}
	if strings.TrimSpace(a.ProviderAccountID) == "" {
		return NewValidationError("providerAccountId", "is required")
	}
	if strings.TrimSpace(a.AccessToken) == "" {
		return NewValidationError("accessToken", "is required")
	}
	return nil
}

// IsIncome reports whether the payment belongs to an income category.
func (p RecurringPayment) IsIncome() bool {
	return p.CategoryType != nil && p.CategoryType.IsIncome()
}

// TotalPlanned sums planned amounts of the category's items.
func (c Category) TotalPlanned() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Planned)
	}
	return total
}
