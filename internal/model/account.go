package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountDimension holds the descriptive attributes of an account.
type AccountDimension struct {
	CreatedAt      time.Time
	Name           string
	Type           string
	Institution    string
	Agency         string
	LedgerAccount  string
	BankNumber     string
	Holder         string
	ManagerName    string
	ManagerContact string
	ID             int64
	Active         bool
}

// AccountBalance holds the monetary state of an account. Current must always
// equal Initial plus the signed effects of the active transactions on the
// account.
type AccountBalance struct {
	CreatedAt time.Time
	Initial   decimal.Decimal
	Current   decimal.Decimal
	ID        int64
	AccountID int64
}

// Account is the aggregate of one dimension row and its balance row.
type Account struct {
	Dimension AccountDimension
	Balance   AccountBalance
}

// ID returns the dimension id, which identifies the account everywhere else.
func (a *Account) ID() int64 {
	return a.Dimension.ID
}

// Name returns the account name.
func (a *Account) Name() string {
	return a.Dimension.Name
}

// Movement returns the net effect of transactions recorded on the balance.
func (a *Account) Movement() decimal.Decimal {
	return a.Balance.Current.Sub(a.Balance.Initial)
}
