package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodSummary totals receipts and expenses in a date range. Transfers move
// money between own accounts and are left out.
type PeriodSummary struct {
	Start    time.Time
	End      time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Count    int
}

// Balance returns income minus expenses.
func (s PeriodSummary) Balance() decimal.Decimal {
	return s.Income.Sub(s.Expenses)
}

// BalanceCorrection is a stored balance that disagrees with the transactions.
type BalanceCorrection struct {
	AccountName string
	Stored      decimal.Decimal
	Computed    decimal.Decimal
	AccountID   int64
}

// Difference returns how much the stored balance must change.
func (c BalanceCorrection) Difference() decimal.Decimal {
	return c.Computed.Sub(c.Stored)
}

// TableCount compares row counts of one table between two schemas.
type TableCount struct {
	Table       string
	Source      int64
	Destination int64
}

// Matches reports whether both sides have the same number of rows.
func (c TableCount) Matches() bool {
	return c.Source == c.Destination
}

// Date returns midnight UTC of the given day. Dates are stored without a time
// component, so every date handled by the ledger goes through here.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}
