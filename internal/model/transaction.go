package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TransferSide marks which leg of a transfer a transaction is.
type TransferSide string

// Transfer sides. Non-transfer transactions carry SideNone.
const (
	SideNone   TransferSide = ""
	SideDebit  TransferSide = "D"
	SideCredit TransferSide = "C"
)

// Opposite returns the other leg's side.
func (s TransferSide) Opposite() TransferSide {
	switch s {
	case SideDebit:
		return SideCredit
	case SideCredit:
		return SideDebit
	default:
		return s
	}
}

// Transaction is one movement of money. Amount is always positive; the kind
// and, for transfers, the side decide the sign applied to the account.
type Transaction struct {
	Date                 time.Time
	CreatedAt            time.Time
	CategoryID           *int64
	AccountID            *int64
	PaymentMethodID      *int64
	DestinationAccountID *int64
	Amount               decimal.Decimal
	Description          string
	PaymentDescription   string
	Location             string
	Notes                string
	TransferID           string
	ExternalID           string
	Kind                 Kind
	Side                 TransferSide
	ID                   int64
	Active               bool
}

// IsTransferLeg reports whether the transaction is one half of a transfer pair.
func (t *Transaction) IsTransferLeg() bool {
	return t.Kind == KindTransfer && t.TransferID != ""
}

// Effect returns the signed amount this transaction adds to its account's
// current balance.
func (t *Transaction) Effect() decimal.Decimal {
	switch t.Kind {
	case KindReceipt:
		return t.Amount
	case KindExpense:
		return t.Amount.Neg()
	case KindTransfer:
		if t.Side == SideCredit {
			return t.Amount
		}
		if t.Side == SideDebit {
			return t.Amount.Neg()
		}
	}
	return decimal.Zero
}

// Reversal returns a copy of t with the opposite kind (or side, for transfer
// legs). Applying its effect undoes the effect of t.
func (t *Transaction) Reversal() Transaction {
	r := *t
	r.Kind = t.Kind.Opposite()
	r.Side = t.Side.Opposite()
	return r
}

// BalanceDeltas accumulates per-account balance changes.
type BalanceDeltas map[int64]decimal.Decimal

// Apply adds the effect of t to its account, if it has one.
func (d BalanceDeltas) Apply(t *Transaction) {
	if t == nil || t.AccountID == nil || !t.Active {
		return
	}
	d[*t.AccountID] = d[*t.AccountID].Add(t.Effect())
}

// Revert adds the effect of the reversal of t to its account.
func (d BalanceDeltas) Revert(t *Transaction) {
	if t == nil {
		return
	}
	r := t.Reversal()
	d.Apply(&r)
}

// NonZero returns the account ids with a pending change, in ascending order.
func (d BalanceDeltas) NonZero() []int64 {
	ids := make([]int64, 0, len(d))
	for id, delta := range d {
		if !delta.IsZero() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Transfer is a money movement between two accounts, stored as a debit leg on
// the source and a credit leg on the destination sharing ID.
type Transfer struct {
	ID     string
	Debit  Transaction
	Credit Transaction
}

// TransferRequest describes a transfer to create or rewrite.
type TransferRequest struct {
	Date            time.Time
	CategoryID      *int64
	PaymentMethodID *int64
	Amount          decimal.Decimal
	Description     string
	Notes           string
	FromAccountID   int64
	ToAccountID     int64
}

// Legs builds the two transactions of a transfer with the given pairing id.
func (r TransferRequest) Legs(transferID string) (debit, credit Transaction) {
	from, to := r.FromAccountID, r.ToAccountID
	base := Transaction{
		Description:     r.Description,
		Amount:          r.Amount,
		Date:            r.Date,
		Kind:            KindTransfer,
		CategoryID:      r.CategoryID,
		PaymentMethodID: r.PaymentMethodID,
		Notes:           r.Notes,
		TransferID:      transferID,
		Active:          true,
	}
	debit, credit = base, base
	debit.AccountID, debit.DestinationAccountID, debit.Side = &from, &to, SideDebit
	credit.AccountID, credit.DestinationAccountID, credit.Side = &to, &from, SideCredit
	return debit, credit
}
