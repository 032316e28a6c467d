package core

import (
	"encoding/json"
	"strings"
)

// CategoryKind enumerates the default category kinds plus the custom variant.
type CategoryKind int

const (
	KindIncome CategoryKind = iota + 1
	KindGiving
	KindSavings
	KindHousing
	KindTransportation
	KindFood
	KindPersonal
	KindLifestyle
	KindHealth
	KindInsurance
	KindDebt
	KindCustom
)

const customPrefix = "custom:"

var kindKeys = map[CategoryKind]string{
	KindIncome:         "income",
	KindGiving:         "giving",
	KindSavings:        "savings",
	KindHousing:        "housing",
	KindTransportation: "transportation",
	KindFood:           "food",
	KindPersonal:       "personal",
	KindLifestyle:      "lifestyle",
	KindHealth:         "health",
	KindInsurance:      "insurance",
	KindDebt:           "debt",
}

// CategoryType identifies what a category is for. Default kinds have an empty
// Label; KindCustom carries the user supplied label.
type CategoryType struct {
	Kind  CategoryKind
	Label string
}

// DefaultType returns the CategoryType for a default kind.
func DefaultType(k CategoryKind) CategoryType {
	return CategoryType{Kind: k}
}

// CustomType returns a custom CategoryType with a normalized label.
func CustomType(label string) CategoryType {
	return CategoryType{Kind: KindCustom, Label: strings.ToLower(strings.TrimSpace(label))}
}

// IsDefault reports whether t is one of the default kinds.
func (t CategoryType) IsDefault() bool {
	_, ok := kindKeys[t.Kind]
	return ok
}

// IsIncome reports whether amounts in this category count as income.
func (t CategoryType) IsIncome() bool {
	return t.Kind == KindIncome
}

func (t CategoryType) IsZero() bool {
	return t.Kind == 0
}

// String returns the storage and wire form: the kind key, or "custom:<label>".
func (t CategoryType) String() string {
	if t.Kind == KindCustom {
		return customPrefix + t.Label
	}
	return kindKeys[t.Kind]
}

// ParseCategoryType parses the form produced by String.
func ParseCategoryType(s string) (CategoryType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if label, ok := strings.CutPrefix(s, customPrefix); ok {
		if strings.TrimSpace(label) == "" {
			return CategoryType{}, NewValidationError("categoryType", "custom category type needs a label")
		}
		return CustomType(label), nil
	}
	for k, key := range kindKeys {
		if key == s {
			return DefaultType(k), nil
		}
	}
	return CategoryType{}, NewValidationError("categoryType", "unknown category type "+s)
}

func (t CategoryType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CategoryType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseCategoryType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CategoryTemplate is one entry of the scaffold seeded into new periods.
type CategoryTemplate struct {
	Type  CategoryType
	Name  string
	Emoji string
	Order int
}

// DefaultCategories returns the scaffold every new period starts with.
func DefaultCategories() []CategoryTemplate {
	return []CategoryTemplate{
		{Type: DefaultType(KindIncome), Name: "Income", Emoji: "💰", Order: 0},
		{Type: DefaultType(KindGiving), Name: "Giving", Emoji: "🎁", Order: 1},
		{Type: DefaultType(KindSavings), Name: "Savings", Emoji: "🏦", Order: 2},
		{Type: DefaultType(KindHousing), Name: "Housing", Emoji: "🏠", Order: 3},
		{Type: DefaultType(KindTransportation), Name: "Transportation", Emoji: "🚗", Order: 4},
		{Type: DefaultType(KindFood), Name: "Food", Emoji: "🍎", Order: 5},
		{Type: DefaultType(KindPersonal), Name: "Personal", Emoji: "👤", Order: 6},
		{Type: DefaultType(KindLifestyle), Name: "Lifestyle", Emoji: "🎉", Order: 7},
		{Type: DefaultType(KindHealth), Name: "Health", Emoji: "🩺", Order: 8},
		{Type: DefaultType(KindInsurance), Name: "Insurance", Emoji: "🛡️", Order: 9},
		{Type: DefaultType(KindDebt), Name: "Debt", Emoji: "💳", Order: 10},
	}
}
