package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Needs   Category = "needs"
	Wants   Category = "wants"
	Savings Category = "savings"
	Income  Category = "income"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	DefaultCurrency = "$"
	// MonthEndSavingsDescription marks the synthesized carry-over of a month's unspent balance.
	MonthEndSavingsDescription = "Month End Savings"
	// MonthEndSavingsOrder sorts the synthesized carry-over after everything else in its month.
	MonthEndSavingsOrder = 999
	OTPValidity          = 10 * time.Minute

	maxDescriptionLen = 255
	maxNameLen        = 100
	minPhoneLen       = 10
	maxPhoneLen       = 15
	maxCurrencyLen    = 5
	pinLength         = 6
)

// Currencies lists the symbols offered by the settings page.
var Currencies = []CurrencyOption{
	{Symbol: "$", Label: "$ Dollar"},
	{Symbol: "₹", Label: "₹ Rupee"},
	{Symbol: "€", Label: "€ Euro"},
	{Symbol: "£", Label: "£ Pound"},
	{Symbol: "¥", Label: "¥ Yen"},
}

// DefaultRules is the classic 50/30/20 split.
var DefaultRules = BudgetRules{Needs: 50, Wants: 30, Savings: 20}

type (
	Category string

	Theme string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	CurrencyOption struct {
		Symbol string
		Label  string
	}

	// BudgetRules are whole-number percentages of total income per spending category.
	BudgetRules struct {
		Needs   int
		Wants   int
		Savings int
	}

	Profile struct {
		ID        int64
		Phone     string
		Name      string
		Income    Money // monthly base income
		Currency  string
		Theme     Theme
		Rules     BudgetRules
		PINHash   string // bcrypt hash, empty when no PIN has been chosen yet
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Description string
		Amount      Money
		Category    Category
		Date        Date
		Order       int
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	OTP struct {
		Phone     string
		Code      string
		CreatedAt time.Time
		Verified  bool
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidTheme       = errors.New("invalid theme")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidPhone       = errors.New("please enter a valid phone number")
	ErrInvalidPIN         = errors.New("PIN must be 6 digits")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrRulesSum           = errors.New("Budget rules must add up to 100%")
	ErrNegativeRule       = errors.New("budget rule percentages cannot be negative")
)

// ParseCategory accepts the four category keys case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Category) Validate() error {
	switch c {
	case Needs, Wants, Savings, Income:
		return nil
	}
	return ErrInvalidCategory
}

// IsExpense reports whether the category draws on the monthly balance.
func (c Category) IsExpense() bool {
	return c != Income
}

func (c Category) Label() string {
	switch c {
	case Needs:
		return "Needs"
	case Wants:
		return "Wants"
	case Savings:
		return "Savings"
	case Income:
		return "Extra Income"
	}
	return string(c)
}

// Categories returns all categories in display order.
func Categories() []Category {
	return []Category{Needs, Wants, Savings, Income}
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", ErrInvalidTheme
}

// Toggle flips between light and dark. Anything unknown becomes dark, matching a light default.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func (r BudgetRules) Sum() int {
	return r.Needs + r.Wants + r.Savings
}

func (r BudgetRules) Validate() error {
	if r.Needs < 0 || r.Wants < 0 || r.Savings < 0 {
		return ErrNegativeRule
	}
	diff := float64(r.Sum() - 100)
	if diff > 0.1 || diff < -0.1 {
		return ErrRulesSum
	}
	return nil
}

// Percent returns the rule percentage for a spending category, zero for income.
func (r BudgetRules) Percent(c Category) int {
	switch c {
	case Needs:
		return r.Needs
	case Wants:
		return r.Wants
	case Savings:
		return r.Savings
	}
	return 0
}

// NewProfile returns a profile with the defaults a freshly verified phone receives.
func NewProfile(phone string) Profile {
	return Profile{
		Phone:    strings.TrimSpace(phone),
		Currency: DefaultCurrency,
		Theme:    ThemeLight,
		Rules:    DefaultRules,
	}
}

func (p Profile) PINSet() bool {
	return p.PINHash != ""
}

// NeedsSetup reports whether the user still has to choose a display name.
func (p Profile) NeedsSetup() bool {
	return strings.TrimSpace(p.Name) == ""
}

// DisplayName falls back to a friendly placeholder for unnamed users.
func (p Profile) DisplayName() string {
	if p.NeedsSetup() {
		return "friend"
	}
	return p.Name
}

// ResetSettings restores the money-related settings to their defaults, keeping identity and theme.
func (p *Profile) ResetSettings() {
	p.Income = Money{}
	p.Currency = DefaultCurrency
	p.Rules = DefaultRules
}

func (p Profile) Validate() error {
	if err := ValidatePhone(p.Phone); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.Name) > maxNameLen {
		return ErrNameTooLong
	}
	if p.Income.Cents < 0 {
		return ErrInvalidAmount
	}
	if err := ValidateCurrency(p.Currency); err != nil {
		return err
	}
	if _, err := ParseTheme(string(p.Theme)); err != nil {
		return err
	}
	return p.Rules.Validate()
}

func ValidatePhone(phone string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(phone))
	if n < minPhoneLen || n > maxPhoneLen {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateCurrency(symbol string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(symbol))
	if n == 0 || n > maxCurrencyLen {
		return ErrInvalidCurrency
	}
	return nil
}

// ValidatePIN checks the PIN is exactly six ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as ISO 8601 (2006-01-02).
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts ISO dates, with or without a time component.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOf(t), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := o.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return t.Category.Validate()
}

// IsMonthEndSavings reports whether t is the synthesized carry-over for the given day.
func (t Transaction) IsMonthEndSavings(day Date) bool {
	return t.Description == MonthEndSavingsDescription && t.Date.SameDay(day)
}

// IsValid reports whether the code can still be redeemed at now.
func (o OTP) IsValid(now time.Time) bool {
	return !o.Verified && now.Before(o.CreatedAt.Add(OTPValidity))
}

// Matches compares the submitted code, ignoring surrounding whitespace.
func (o OTP) Matches(code string) bool {
	return o.Code != "" && o.Code == strings.TrimSpace(code)
}
