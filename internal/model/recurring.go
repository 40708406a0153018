package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Periodicity is how often a recurring expense falls due.
type Periodicity string

// Periodicity values as stored in gastos_recorrentes.periodicidade.
const (
	Monthly    Periodicity = "Mensal"
	Bimonthly  Periodicity = "Bimestral"
	Quarterly  Periodicity = "Trimestral"
	Semiannual Periodicity = "Semestral"
	Annual     Periodicity = "Anual"
)

// ScheduleWindow is how many months of occurrences are materialized from the
// start month of a recurring expense.
const ScheduleWindow = 12

// Months returns the number of months between two due dates.
func (p Periodicity) Months() int {
	switch p {
	case Bimonthly:
		return 2
	case Quarterly:
		return 3
	case Semiannual:
		return 6
	case Annual:
		return 12
	default:
		return 1
	}
}

// Valid reports whether p is a known periodicity.
func (p Periodicity) Valid() bool {
	switch p {
	case Monthly, Bimonthly, Quarterly, Semiannual, Annual:
		return true
	}
	return false
}

// ParsePeriodicity matches s case-insensitively against the known values.
func ParsePeriodicity(s string) (Periodicity, error) {
	for _, p := range []Periodicity{Monthly, Bimonthly, Quarterly, Semiannual, Annual} {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown periodicity %q", s)
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// AddMonths returns the month n months after ym.
func (ym YearMonth) AddMonths(n int) YearMonth {
	idx := ym.index() + n
	return YearMonth{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.index() < other.index()
}

// MonthsSince returns how many months ym is after other (negative if before).
func (ym YearMonth) MonthsSince(other YearMonth) int {
	return ym.index() - other.index()
}

// LastDay returns the number of days in the month.
func (ym YearMonth) LastDay() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day returns the date of the given day in the month, clamped to the last day.
func (ym YearMonth) Day(day int) time.Time {
	if last := ym.LastDay(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(ym.Year, ym.Month, day, 0, 0, 0, 0, time.UTC)
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) index() int {
	return ym.Year*12 + int(ym.Month) - 1
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return MonthOf(t), nil
}

// RecurringExpense is the template of an expense that repeats on a schedule.
type RecurringExpense struct {
	StartDate           time.Time
	CreatedAt           time.Time
	EndDate             *time.Time
	CategoryID          *int64
	AccountID           *int64
	PaymentMethodID     *int64
	Amount              decimal.Decimal
	Name                string
	Notes               string
	Periodicity         Periodicity
	ID                  int64
	DueDay              int
	GenerateTransaction bool
	Active              bool
}

// DueIn reports whether the expense falls due in ym: the month is inside the
// start/end range and a whole number of periods after the start month.
func (r *RecurringExpense) DueIn(ym YearMonth) bool {
	start := MonthOf(r.StartDate)
	if ym.Before(start) {
		return false
	}
	if r.EndDate != nil && MonthOf(*r.EndDate).Before(ym) {
		return false
	}
	return ym.MonthsSince(start)%r.Periodicity.Months() == 0
}

// Schedule returns the due months inside the materialization window.
func (r *RecurringExpense) Schedule() []YearMonth {
	start := MonthOf(r.StartDate)
	step := r.Periodicity.Months()
	var months []YearMonth
	for i := 0; i < ScheduleWindow; i += step {
		ym := start.AddMonths(i)
		if !r.DueIn(ym) {
			break
		}
		months = append(months, ym)
	}
	return months
}

// DueDate returns the due date of the occurrence in ym.
func (r *RecurringExpense) DueDate(ym YearMonth) time.Time {
	return ym.Day(r.DueDay)
}

// Occurrence is one month's instance of a recurring expense.
type Occurrence struct {
	PaidOn        *time.Time
	TransactionID *int64
	AmountPaid    decimal.NullDecimal
	ID            int64
	RecurringID   int64
	YearMonth
}

// Paid reports whether the occurrence has been settled.
func (o *Occurrence) Paid() bool {
	return o != nil && o.PaidOn != nil
}

// PendingPayment is an unpaid occurrence due in a given month.
type PendingPayment struct {
	DueDate    time.Time
	Occurrence *Occurrence
	Expense    RecurringExpense
}

// PaymentRequest settles an occurrence. A zero PaidOn means today and an
// invalid Amount means the template amount. CreateTransaction overrides the
// template's GenerateTransaction flag when set.
type PaymentRequest struct {
	PaidOn            time.Time
	CreateTransaction *bool
	Amount            decimal.NullDecimal
}
