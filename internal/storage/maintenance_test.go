package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculateBalances(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	good := createTestAccount(t, store, "Certa", "100.00")
	bad := createTestAccount(t, store, "Errada", "100.00")
	createTestTransaction(t, store, good.ID(), model.KindReceipt, "50.00")
	createTestTransaction(t, store, bad.ID(), model.KindExpense, "30.00")

	_, err := store.db.ExecContext(ctx, `UPDATE financas_pessoais.conta_saldos SET saldo_atual = '5.00' WHERE conta_dimensao_id = ?`, bad.ID())
	require.NoError(t, err)

	corrections, err := store.RecalculateBalances(ctx, true)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, bad.ID(), corrections[0].AccountID)
	assert.Equal(t, "Errada", corrections[0].AccountName)
	assert.True(t, dec("5.00").Equal(corrections[0].Stored))
	assert.True(t, dec("70.00").Equal(corrections[0].Computed))
	assert.True(t, dec("65.00").Equal(corrections[0].Difference()))
	requireBalance(t, store, bad.ID(), "5.00")

	corrections, err = store.RecalculateBalances(ctx, false)
	require.NoError(t, err)
	assert.Len(t, corrections, 1)
	requireBalance(t, store, bad.ID(), "70.00")
	requireBalance(t, store, good.ID(), "150.00")

	corrections, err = store.RecalculateBalances(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, corrections)
}

func TestCleanData(t *testing.T) {
	store, m := createTestStorage(t)
	ctx := context.Background()

	food := createTestCategory(t, store, "Alimentação", model.KindExpense, nil)
	createTestCategory(t, store, "Mercado", model.KindExpense, food)
	acc := createTestAccount(t, store, "Corrente", "10.00")
	createTestTransaction(t, store, acc.ID(), model.KindExpense, "1.00")
	require.NoError(t, store.CreateRecurring(ctx, &model.RecurringExpense{
		Name: "Luz", Amount: dec("80"), DueDay: 10, Periodicity: model.Monthly, StartDate: day("2024-01-01"), AccountID: ptr(acc.ID()),
	}))

	dev, err := m.Store(ctx, "dev")
	require.NoError(t, err)
	devAccount := createTestAccount(t, dev, "Dev", "1.00")

	require.NoError(t, store.CleanData(ctx))

	for _, table := range tables {
		var n int
		require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM financas_pessoais.`+table).Scan(&n))
		assert.Zero(t, n, table)
	}

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	_, err = dev.GetAccount(ctx, devAccount.ID())
	require.NoError(t, err)
}

func TestPeriodSummary(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	a := createTestAccount(t, store, "A", "0")
	b := createTestAccount(t, store, "B", "0")
	add := func(date string, kind model.Kind, amount string) *model.Transaction {
		txn := &model.Transaction{Description: "x", Amount: dec(amount), Date: day(date), Kind: kind, AccountID: ptr(a.ID())}
		require.NoError(t, store.CreateTransaction(ctx, txn))
		return txn
	}

	add("2024-03-01", model.KindReceipt, "5000.00")
	add("2024-03-15", model.KindExpense, "1200.50")
	add("2024-03-31", model.KindExpense, "99.50")
	add("2024-04-01", model.KindExpense, "10.00")
	deleted := add("2024-03-10", model.KindReceipt, "777.00")
	require.NoError(t, store.DeleteTransaction(ctx, deleted.ID))
	_, err := store.CreateTransfer(ctx, model.TransferRequest{
		Description: "tr", Amount: dec("300"), Date: day("2024-03-20"), FromAccountID: a.ID(), ToAccountID: b.ID(),
	})
	require.NoError(t, err)

	summary, err := store.PeriodSummary(ctx, day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.True(t, dec("5000.00").Equal(summary.Income))
	assert.True(t, dec("1300.00").Equal(summary.Expenses))
	assert.True(t, dec("3700.00").Equal(summary.Balance()))

	_, err = store.PeriodSummary(ctx, day("2024-04-01"), day("2024-03-01"))
	require.ErrorIs(t, err, ErrInvalidDateRange)

	txns, err := store.ListTransactions(ctx, service.TransactionFilter{AccountID: ptr(b.ID())})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}
