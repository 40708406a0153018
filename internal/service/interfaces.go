// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate       *time.Time
	EndDate         *time.Time
	AccountID       *int64
	CategoryID      *int64
	Kind            model.Kind
	Limit           int
	IncludeInactive bool
}

// CategoryFilter defines filtering options for category queries.
type CategoryFilter struct {
	Kind       model.Kind
	ActiveOnly bool
}

// CategoryStore manages the category tree.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, filter CategoryFilter) ([]model.Category, error)
	RootCategories(ctx context.Context, kind model.Kind, activeOnly bool) ([]model.Category, error)
	ChildCategories(ctx context.Context, parentID int64, activeOnly bool) ([]model.Category, error)
	CategoryPath(ctx context.Context, id int64) ([]model.Category, error)
	FindCategoryByName(ctx context.Context, name string, kind model.Kind) (*model.Category, error)
}

// AccountStore manages accounts and their balances.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, account *model.Account) error
	DeleteAccount(ctx context.Context, id int64) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]model.Account, error)
	TotalBalance(ctx context.Context, activeOnly bool) (decimal.Decimal, error)
}

// PaymentMethodStore manages payment methods.
type PaymentMethodStore interface {
	CreatePaymentMethod(ctx context.Context, method *model.PaymentMethod) error
	UpdatePaymentMethod(ctx context.Context, method *model.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, id int64) error
	GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error)
}

// TransactionStore manages transactions. Every write keeps the balances of
// the affected accounts consistent within the same database transaction.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	ExistsByExternalID(ctx context.Context, accountID int64, externalID string) (bool, error)

	CreateTransfer(ctx context.Context, req model.TransferRequest) (*model.Transfer, error)
	UpdateTransfer(ctx context.Context, transferID string, req model.TransferRequest) (*model.Transfer, error)
	GetTransfer(ctx context.Context, transferID string) (*model.Transfer, error)
}

// RecurringStore manages recurring expenses and their monthly occurrences.
type RecurringStore interface {
	CreateRecurring(ctx context.Context, expense *model.RecurringExpense) error
	UpdateRecurring(ctx context.Context, expense *model.RecurringExpense) error
	DeleteRecurring(ctx context.Context, id int64) error
	GetRecurring(ctx context.Context, id int64) (*model.RecurringExpense, error)
	ListRecurring(ctx context.Context, activeOnly bool) ([]model.RecurringExpense, error)
	Occurrences(ctx context.Context, recurringID int64) ([]model.Occurrence, error)
	PaymentStatus(ctx context.Context, recurringID int64, ym model.YearMonth) (*model.Occurrence, error)
	MarkPaid(ctx context.Context, recurringID int64, ym model.YearMonth, req model.PaymentRequest) (*model.Occurrence, error)
	MarkUnpaid(ctx context.Context, recurringID int64, ym model.YearMonth) error
	PendingPayments(ctx context.Context, ym model.YearMonth) ([]model.PendingPayment, error)
}

// MaintenanceStore groups schema and consistency operations.
type MaintenanceStore interface {
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	RecalculateBalances(ctx context.Context, dryRun bool) ([]model.BalanceCorrection, error)
	CleanData(ctx context.Context) error
	PeriodSummary(ctx context.Context, start, end time.Time) (*model.PeriodSummary, error)
}

// Storage defines the contract for our persistence layer, scoped to one
// environment schema.
type Storage interface {
	CategoryStore
	AccountStore
	PaymentMethodStore
	TransactionStore
	RecurringStore
	MaintenanceStore

	Schema() string
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// CopyProgress reports the state of an environment copy.
type CopyProgress struct {
	Table   string
	Message string
	Rows    int64
	Step    int
	Total   int
	Done    bool
}
