package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
)

// Validation errors. All of them wrap common.ErrInvalidInput.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = fmt.Errorf("%w: string parameter cannot be empty", common.ErrInvalidInput)
	ErrNilParameter        = fmt.Errorf("%w: parameter cannot be nil", common.ErrInvalidInput)
	ErrInvalidDateRange    = fmt.Errorf("%w: start date must not be after end date", common.ErrInvalidInput)
	ErrInvalidTransaction  = fmt.Errorf("%w: invalid transaction", common.ErrInvalidInput)
	ErrInvalidCategory     = fmt.Errorf("%w: invalid category", common.ErrInvalidInput)
	ErrInvalidAccount      = fmt.Errorf("%w: invalid account", common.ErrInvalidInput)
	ErrInvalidMethod       = fmt.Errorf("%w: invalid payment method", common.ErrInvalidInput)
	ErrInvalidRecurring    = fmt.Errorf("%w: invalid recurring expense", common.ErrInvalidInput)
	ErrInvalidTransfer     = fmt.Errorf("%w: invalid transfer", common.ErrInvalidInput)
	ErrInvalidIdentifier   = fmt.Errorf("%w: invalid SQL identifier", common.ErrInvalidInput)
	ErrNonPositiveAmount   = fmt.Errorf("%w: amount must be positive", common.ErrInvalidInput)
	ErrSameTransferAccount = fmt.Errorf("%w: transfer source and destination must differ", common.ErrInvalidInput)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateIdentifier accepts names safe to splice into SQL text.
func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	for i, c := range name {
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

func validateCategory(cat *model.Category) error {
	if cat == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if !cat.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCategory, cat.Kind)
	}
	if cat.ParentID != nil && cat.ID != 0 && *cat.ParentID == cat.ID {
		return fmt.Errorf("%w: category %d", common.ErrCategoryCycle, cat.ID)
	}
	return nil
}

func validateAccount(acc *model.Account) error {
	if acc == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if strings.TrimSpace(acc.Dimension.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAccount)
	}
	if strings.TrimSpace(acc.Dimension.Type) == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidAccount)
	}
	return nil
}

func validatePaymentMethod(m *model.PaymentMethod) error {
	if m == nil {
		return fmt.Errorf("%w: payment method", ErrNilParameter)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidMethod)
	}
	if strings.TrimSpace(m.Type) == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidMethod)
	}
	return nil
}

// validateTransaction checks a receipt or expense. Transfer legs go through
// validateTransfer. The amount is rounded to cents first, so the stored value
// and the balance delta built from txn are the same number.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	txn.Amount = money(txn.Amount)
	if strings.TrimSpace(txn.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveAmount, txn.Amount)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Kind != model.KindReceipt && txn.Kind != model.KindExpense {
		return fmt.Errorf("%w: kind %q (use a transfer for %q)", ErrInvalidTransaction, txn.Kind, model.KindTransfer)
	}
	return nil
}

// validateTransfer checks req and rounds its amount to cents.
func validateTransfer(req *model.TransferRequest) error {
	req.Amount = money(req.Amount)
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransfer)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveAmount, req.Amount)
	}
	if req.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransfer)
	}
	if req.FromAccountID == 0 || req.ToAccountID == 0 {
		return fmt.Errorf("%w: both accounts are required", ErrInvalidTransfer)
	}
	if req.FromAccountID == req.ToAccountID {
		return ErrSameTransferAccount
	}
	return nil
}

func validateRecurring(r *model.RecurringExpense) error {
	if r == nil {
		return fmt.Errorf("%w: recurring expense", ErrNilParameter)
	}
	r.Amount = money(r.Amount)
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRecurring)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveAmount, r.Amount)
	}
	if r.DueDay < 1 || r.DueDay > 31 {
		return fmt.Errorf("%w: due day %d", ErrInvalidRecurring, r.DueDay)
	}
	if !r.Periodicity.Valid() {
		return fmt.Errorf("%w: periodicity %q", ErrInvalidRecurring, r.Periodicity)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidRecurring)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidRecurring)
	}
	return nil
}

func validateYearMonth(ym model.YearMonth) error {
	if ym.Year < 1900 || ym.Month < 1 || ym.Month > 12 {
		return fmt.Errorf("%w: month %d-%d", common.ErrInvalidInput, ym.Year, ym.Month)
	}
	return nil
}
