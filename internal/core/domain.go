package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the ISO 8601 calendar date layout used for input and storage.
const DateFormat = "2006-01-02"

// MonthFormat is the layout of a month key ("YYYY-MM").
const MonthFormat = "2006-01"

const (
	KindContribution Kind = "contribution"
	KindLoan         Kind = "loan"
	KindExpense      Kind = "expense"
)

const (
	StatusActive   LoanStatus = "ACTIVE"
	StatusReturned LoanStatus = "RETURNED"
)

const (
	SheepPurchase ExpenseType = "Sheep Purchase"
	Miscellaneous ExpenseType = "Miscellaneous"
)

type (
	// Kind names one of the three ledger collections.
	Kind string

	LoanStatus string

	ExpenseType string

	// Date is a calendar date at midnight UTC.
	Date struct {
		time.Time
	}

	Contribution struct {
		ID         int64  `json:"id"`
		Date       Date   `json:"date"`
		PersonName string `json:"personName"`
		Amount     Amount `json:"amount"`
		Month      string `json:"month"` // derived from Date
	}

	Loan struct {
		ID           int64      `json:"id"`
		Date         Date       `json:"date"`
		PersonName   string     `json:"personName"`
		Principal    Amount     `json:"principal"`
		Interest     Amount     `json:"interest"` // static, recorded at creation
		Status       LoanStatus `json:"status"`
		ReturnedDate *Date      `json:"returnedDate"`
	}

	Expense struct {
		ID          int64       `json:"id"`
		Date        Date        `json:"date"`
		Type        ExpenseType `json:"type"`
		Description string      `json:"description"`
		Amount      Amount      `json:"amount"`
		Month       string      `json:"month"` // derived from Date
	}
)

// Kinds lists the collections in persistence order.
func Kinds() []Kind {
	return []Kind{KindContribution, KindLoan, KindExpense}
}

// ParseKind accepts the singular collection name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindContribution, KindLoan, KindExpense:
		return k, nil
	}
	return "", invalid("kind", s, ErrUnknownKind)
}

// ExpenseTypes returns the accepted expense categories.
func ExpenseTypes() []ExpenseType {
	return []ExpenseType{SheepPurchase, Miscellaneous}
}

// ParseExpenseType matches s against the known types ignoring case and
// returns the canonical spelling.
func ParseExpenseType(s string) (ExpenseType, error) {
	s = strings.TrimSpace(s)
	for _, t := range ExpenseTypes() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", invalid("type", s, ErrInvalidExpenseType)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a strict "YYYY-MM-DD" date. Out of range values such as
// 2024-02-30 are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, invalid("date", s, ErrInvalidDate)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return invalid("date", "", ErrInvalidDate)
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateFormat)
}

// MonthKey returns the "YYYY-MM" grouping key of the date.
func (d Date) MonthKey() string {
	return d.Format(MonthFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Contribution) Validate() error {
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if err := validateName("personName", c.PersonName); err != nil {
		return err
	}
	return c.Amount.validate("amount")
}

func (l Loan) Validate() error {
	if err := l.Date.Validate(); err != nil {
		return err
	}
	if err := validateName("personName", l.PersonName); err != nil {
		return err
	}
	if err := l.Principal.validate("principal"); err != nil {
		return err
	}
	if err := l.Interest.validate("interest"); err != nil {
		return err
	}
	switch l.Status {
	case StatusActive:
		if l.ReturnedDate != nil {
			return invalid("returnedDate", l.ReturnedDate.String(), ErrReturnedDateOnActive)
		}
	case StatusReturned:
		if l.ReturnedDate == nil {
			return invalid("returnedDate", "", ErrMissingReturnedDate)
		}
		if l.ReturnedDate.Before(l.Date.Time) {
			return invalid("returnedDate", l.ReturnedDate.String(), ErrReturnBeforeLoan)
		}
	default:
		return invalid("status", string(l.Status), ErrInvalidStatus)
	}
	return nil
}

// IsReturned reports whether the principal has come back to the fund.
func (l Loan) IsReturned() bool {
	return l.Status == StatusReturned && l.ReturnedDate != nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if _, err := ParseExpenseType(string(e.Type)); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return invalid("description", e.Description, ErrEmptyDescription)
	}
	if len(e.Description) > 200 {
		return invalid("description", e.Description[:20]+"...", ErrDescriptionTooLong)
	}
	return e.Amount.validate("amount")
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid(field, name, ErrEmptyName)
	}
	return nil
}
