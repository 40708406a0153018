package storage

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceProtocol_CheckingScenario(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	checking := createTestAccount(t, store, "Checking", "1000.00")

	receipt := createTestTransaction(t, store, checking.ID(), model.KindReceipt, "200.00")
	requireBalance(t, store, checking.ID(), "1200.00")

	expense := createTestTransaction(t, store, checking.ID(), model.KindExpense, "50.00")
	requireBalance(t, store, checking.ID(), "1150.00")

	expense.Amount = dec("75.00")
	require.NoError(t, store.UpdateTransaction(ctx, expense))
	requireBalance(t, store, checking.ID(), "1125.00")

	require.NoError(t, store.DeleteTransaction(ctx, receipt.ID))
	requireBalance(t, store, checking.ID(), "925.00")
}

func TestUpdateTransaction_MovesBetweenAccounts(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	a := createTestAccount(t, store, "A", "100.00")
	b := createTestAccount(t, store, "B", "100.00")

	txn := createTestTransaction(t, store, a.ID(), model.KindExpense, "30.00")
	requireBalance(t, store, a.ID(), "70.00")

	txn.AccountID = ptr(b.ID())
	require.NoError(t, store.UpdateTransaction(ctx, txn))
	requireBalance(t, store, a.ID(), "100.00")
	requireBalance(t, store, b.ID(), "70.00")

	txn.Kind = model.KindReceipt
	txn.AccountID = nil
	require.NoError(t, store.UpdateTransaction(ctx, txn))
	requireBalance(t, store, b.ID(), "100.00")

	txn.AccountID = ptr(a.ID())
	require.NoError(t, store.UpdateTransaction(ctx, txn))
	requireBalance(t, store, a.ID(), "130.00")
}

func TestUpdateTransaction_MissingOriginalWritesNothing(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	acc := createTestAccount(t, store, "Corrente", "10.00")
	ghost := &model.Transaction{
		ID:          999,
		Description: "Fantasma",
		Amount:      dec("5.00"),
		Date:        day("2024-01-01"),
		Kind:        model.KindReceipt,
		AccountID:   ptr(acc.ID()),
	}
	require.ErrorIs(t, store.UpdateTransaction(ctx, ghost), common.ErrNotFound)
	requireBalance(t, store, acc.ID(), "10.00")
}

func TestDeleteTransaction_InactiveIsNoop(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	acc := createTestAccount(t, store, "Corrente", "10.00")
	txn := createTestTransaction(t, store, acc.ID(), model.KindExpense, "4.00")

	require.NoError(t, store.DeleteTransaction(ctx, txn.ID))
	require.NoError(t, store.DeleteTransaction(ctx, txn.ID))
	requireBalance(t, store, acc.ID(), "10.00")

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	// Editing a deleted row keeps it deleted and out of the balance.
	got.Amount = dec("8.00")
	require.NoError(t, store.UpdateTransaction(ctx, got))
	requireBalance(t, store, acc.ID(), "10.00")

	require.ErrorIs(t, store.DeleteTransaction(ctx, 12345), common.ErrNotFound)
}

func TestCreateTransaction_Validation(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()
	acc := createTestAccount(t, store, "Corrente", "0")

	valid := func() *model.Transaction {
		return &model.Transaction{Description: "X", Amount: dec("1"), Date: day("2024-01-01"), Kind: model.KindExpense, AccountID: ptr(acc.ID())}
	}

	tests := []struct {
		mutate  func(*model.Transaction)
		wantErr error
		name    string
	}{
		{name: "zero amount", mutate: func(t *model.Transaction) { t.Amount = decimal.Zero }, wantErr: ErrNonPositiveAmount},
		{name: "negative amount", mutate: func(t *model.Transaction) { t.Amount = dec("-3") }, wantErr: ErrNonPositiveAmount},
		{name: "rounds to zero cents", mutate: func(t *model.Transaction) { t.Amount = dec("0.004") }, wantErr: ErrNonPositiveAmount},
		{name: "no description", mutate: func(t *model.Transaction) { t.Description = "" }, wantErr: ErrInvalidTransaction},
		{name: "no date", mutate: func(t *model.Transaction) { t.Date = time.Time{} }, wantErr: ErrInvalidTransaction},
		{name: "transfer kind", mutate: func(t *model.Transaction) { t.Kind = model.KindTransfer }, wantErr: ErrInvalidTransaction},
		{name: "unknown account", mutate: func(t *model.Transaction) { t.AccountID = ptr(int64(77)) }, wantErr: common.ErrNotFound},
		{name: "unknown category", mutate: func(t *model.Transaction) { t.CategoryID = ptr(int64(77)) }, wantErr: common.ErrNotFound},
		{name: "unknown payment method", mutate: func(t *model.Transaction) { t.PaymentMethodID = ptr(int64(77)) }, wantErr: common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid()
			tt.mutate(txn)
			require.ErrorIs(t, store.CreateTransaction(ctx, txn), tt.wantErr)
		})
	}
	requireBalance(t, store, acc.ID(), "0")
}

func TestBalanceProtocol_RoundsAmountsToCents(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()
	acc := createTestAccount(t, store, "Corrente", "1000.00")

	txn := createTestTransaction(t, store, acc.ID(), model.KindReceipt, "10.555")
	assert.True(t, dec("10.56").Equal(txn.Amount), txn.Amount.String())
	requireBalance(t, store, acc.ID(), "1010.56")

	txn.Amount = dec("20.004")
	require.NoError(t, store.UpdateTransaction(ctx, txn))
	requireBalance(t, store, acc.ID(), "1020.00")

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, dec("20.00").Equal(got.Amount), got.Amount.String())

	corrections, err := store.RecalculateBalances(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, corrections)
}

func TestTransaction_RoundTrip(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	acc := createTestAccount(t, store, "Corrente", "0")
	cat := createTestCategory(t, store, "Mercado", model.KindExpense, nil)
	method := &model.PaymentMethod{Name: "Débito", Type: "Débito"}
	require.NoError(t, store.CreatePaymentMethod(ctx, method))

	txn := &model.Transaction{
		Description:        "Compra do mês",
		Amount:             dec("345.678"),
		Date:               time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC),
		Kind:               model.KindExpense,
		CategoryID:         &cat.ID,
		AccountID:          ptr(acc.ID()),
		PaymentMethodID:    &method.ID,
		PaymentDescription: "Cartão de débito",
		Location:           "Supermercado Central",
		Notes:              "Inclui produtos de limpeza",
		ExternalID:         "FIT-001",
	}
	require.NoError(t, store.CreateTransaction(ctx, txn))

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Compra do mês", got.Description)
	assert.True(t, dec("345.68").Equal(got.Amount))
	assert.Equal(t, "2024-05-20", got.Date.Format(time.DateOnly))
	assert.Equal(t, model.KindExpense, got.Kind)
	assert.Equal(t, cat.ID, *got.CategoryID)
	assert.Equal(t, acc.ID(), *got.AccountID)
	assert.Equal(t, method.ID, *got.PaymentMethodID)
	assert.Equal(t, "Cartão de débito", got.PaymentDescription)
	assert.Equal(t, "Supermercado Central", got.Location)
	assert.Equal(t, "Inclui produtos de limpeza", got.Notes)
	assert.Equal(t, "FIT-001", got.ExternalID)
	assert.Empty(t, got.TransferID)
	assert.True(t, got.Active)
	requireBalance(t, store, acc.ID(), "-345.68")

	exists, err := store.ExistsByExternalID(ctx, acc.ID(), "FIT-001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsByExternalID(ctx, acc.ID(), "FIT-002")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListTransactions_Filters(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	a := createTestAccount(t, store, "A", "0")
	b := createTestAccount(t, store, "B", "0")
	cat := createTestCategory(t, store, "Lazer", model.KindExpense, nil)

	for i, row := range []struct {
		date    string
		account int64
		kind    model.Kind
	}{
		{"2024-01-05", a.ID(), model.KindReceipt},
		{"2024-01-20", a.ID(), model.KindExpense},
		{"2024-02-03", b.ID(), model.KindExpense},
		{"2024-02-28", a.ID(), model.KindExpense},
	} {
		txn := &model.Transaction{
			Description: "T",
			Amount:      decimal.NewFromInt(int64(i + 1)),
			Date:        day(row.date),
			Kind:        row.kind,
			AccountID:   ptr(row.account),
		}
		if i == 3 {
			txn.CategoryID = &cat.ID
		}
		require.NoError(t, store.CreateTransaction(ctx, txn))
		if i == 1 {
			require.NoError(t, store.DeleteTransaction(ctx, txn.ID))
		}
	}

	tests := []struct {
		filter service.TransactionFilter
		name   string
		want   int
	}{
		{name: "active only", want: 3},
		{name: "include inactive", filter: service.TransactionFilter{IncludeInactive: true}, want: 4},
		{name: "by account", filter: service.TransactionFilter{AccountID: ptr(b.ID())}, want: 1},
		{name: "by kind", filter: service.TransactionFilter{Kind: model.KindExpense}, want: 2},
		{name: "by category", filter: service.TransactionFilter{CategoryID: &cat.ID}, want: 1},
		{name: "february", filter: service.TransactionFilter{StartDate: ptr(day("2024-02-01")), EndDate: ptr(day("2024-02-29"))}, want: 2},
		{name: "limit", filter: service.TransactionFilter{Limit: 2}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := store.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, txns, tt.want)
		})
	}

	txns, err := store.ListTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-28", txns[0].Date.Format(time.DateOnly))

	_, err = store.ListTransactions(ctx, service.TransactionFilter{StartDate: ptr(day("2024-03-01")), EndDate: ptr(day("2024-01-01"))})
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

// TestBalanceInvariant_RandomOperations runs a random mix of creates, edits,
// deletes and transfers and checks that every stored balance equals the
// initial balance plus the effects of the active transactions.
func TestBalanceInvariant_RandomOperations(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	accounts := []*model.Account{
		createTestAccount(t, store, "A", "1000.00"),
		createTestAccount(t, store, "B", "250.50"),
		createTestAccount(t, store, "C", "0"),
	}
	pick := func() *int64 {
		if rng.Intn(6) == 0 {
			return nil
		}
		return ptr(accounts[rng.Intn(len(accounts))].ID())
	}
	amount := func() decimal.Decimal {
		return decimal.New(int64(rng.Intn(50000)+1), -2)
	}
	kind := func() model.Kind {
		if rng.Intn(2) == 0 {
			return model.KindReceipt
		}
		return model.KindExpense
	}

	var ids []int64
	for i := 0; i < 200; i++ {
		switch op := rng.Intn(10); {
		case op < 4 || len(ids) == 0:
			txn := &model.Transaction{Description: "op", Amount: amount(), Date: day("2024-06-01"), Kind: kind(), AccountID: pick()}
			require.NoError(t, store.CreateTransaction(ctx, txn))
			ids = append(ids, txn.ID)
		case op < 7:
			txn, err := store.GetTransaction(ctx, ids[rng.Intn(len(ids))])
			require.NoError(t, err)
			if txn.IsTransferLeg() {
				continue
			}
			txn.Amount, txn.Kind, txn.AccountID = amount(), kind(), pick()
			require.NoError(t, store.UpdateTransaction(ctx, txn))
		case op < 9:
			require.NoError(t, store.DeleteTransaction(ctx, ids[rng.Intn(len(ids))]))
		default:
			from, to := accounts[rng.Intn(3)], accounts[rng.Intn(3)]
			if from == to {
				continue
			}
			tr, err := store.CreateTransfer(ctx, model.TransferRequest{
				Description: "tr", Amount: amount(), Date: day("2024-06-02"),
				FromAccountID: from.ID(), ToAccountID: to.ID(),
			})
			require.NoError(t, err)
			ids = append(ids, tr.Debit.ID, tr.Credit.ID)
		}
	}

	corrections, err := store.RecalculateBalances(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, corrections)
}
