package importer

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/ofx"
	"github.com/Veraticus/financas/internal/service"
	"github.com/Veraticus/financas/internal/testutil"
	"github.com/Veraticus/financas/internal/testutil/categories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(fitid, desc, amount string, kind model.Kind, hint string) ofx.Entry {
	return ofx.Entry{
		CategoryHint: hint,
		Account:      "12345-6",
		Transaction: model.Transaction{
			Description: desc,
			Amount:      decimal.RequireFromString(amount),
			Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Kind:        kind,
			ExternalID:  fitid,
			Active:      true,
		},
	}
}

func TestImportAppliesBalancesAndSkipsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t, categories.FixtureHousehold)
	ctx := context.Background()
	accID := db.MustCreateAccount(db.Prod, "Corrente", "1000").ID()

	entries := []ofx.Entry{
		entry("F1", "PADARIA REAL", "25.50", model.KindExpense, ""),
		entry("F2", "RENDIMENTO", "3.17", model.KindReceipt, ofx.HintInterest),
		entry("F3", "TARIFA PACOTE", "19.90", model.KindExpense, ofx.HintBankFees),
	}

	imp := New(db.Prod)
	result, err := imp.Import(ctx, accID, entries)
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 3}, result)
	assert.True(t, decimal.RequireFromString("957.77").Equal(db.MustBalance(db.Prod, accID)))

	txns, err := db.Prod.ListTransactions(ctx, service.TransactionFilter{AccountID: &accID})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	byExternal := make(map[string]model.Transaction)
	for _, txn := range txns {
		byExternal[txn.ExternalID] = txn
	}
	assert.Nil(t, byExternal["F1"].CategoryID)
	require.NotNil(t, byExternal["F2"].CategoryID)
	assert.Equal(t, db.Category(categories.CategoryInterest), *byExternal["F2"].CategoryID)
	require.NotNil(t, byExternal["F3"].CategoryID)
	assert.Equal(t, db.Category(categories.CategoryBankFees), *byExternal["F3"].CategoryID)

	// Re-importing the same statement changes nothing.
	result, err = New(db.Prod).Import(ctx, accID, entries)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 3}, result)
	assert.True(t, decimal.RequireFromString("957.77").Equal(db.MustBalance(db.Prod, accID)))
}

func TestImportDuplicateWithinStatement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accID := db.MustCreateAccount(db.Prod, "Corrente", "100").ID()

	result, err := New(db.Prod).Import(context.Background(), accID, []ofx.Entry{
		entry("F1", "MERCADO", "10", model.KindExpense, ""),
		entry("F1", "MERCADO", "10", model.KindExpense, ""),
		entry("", "SEM ID", "5", model.KindExpense, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2, Skipped: 1}, result)
	assert.True(t, decimal.RequireFromString("85").Equal(db.MustBalance(db.Prod, accID)))
}

func TestImportCategoryResolution(t *testing.T) {
	tests := []struct {
		name        string
		seed        categories.CategoryName
		seedKind    model.Kind
		hint        string
		kind        model.Kind
		wantCreated int
		wantName    string
	}{
		{
			name:     "exact match ignores case",
			seed:     "tarifas bancárias",
			seedKind: model.KindExpense,
			hint:     ofx.HintBankFees,
			kind:     model.KindExpense,
			wantName: "tarifas bancárias",
		},
		{
			name:     "close name matches",
			seed:     "Tarifa Bancárias",
			seedKind: model.KindExpense,
			hint:     ofx.HintBankFees,
			kind:     model.KindExpense,
			wantName: "Tarifa Bancárias",
		},
		{
			name:        "name beyond the distance limit creates a category",
			seed:        "Tarifa Bancaria",
			seedKind:    model.KindExpense,
			hint:        ofx.HintBankFees,
			kind:        model.KindExpense,
			wantCreated: 1,
			wantName:    ofx.HintBankFees,
		},
		{
			name:        "other kind is ignored",
			seed:        categories.CategoryInterest,
			seedKind:    model.KindExpense,
			hint:        ofx.HintInterest,
			kind:        model.KindReceipt,
			wantCreated: 1,
			wantName:    ofx.HintInterest,
		},
		{
			name:        "distant names create a root category",
			seed:        categories.CategoryTransport,
			seedKind:    model.KindExpense,
			hint:        ofx.HintWithdrawals,
			kind:        model.KindExpense,
			wantCreated: 1,
			wantName:    ofx.HintWithdrawals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDBWithBuilder(t, categories.NewBuilder(t).WithCategory(tt.seed, tt.seedKind))
			ctx := context.Background()
			accID := db.MustCreateAccount(db.Prod, "Corrente", "100").ID()

			result, err := New(db.Prod).Import(ctx, accID, []ofx.Entry{
				entry("A", "LINHA A", "1", tt.kind, tt.hint),
				entry("B", "LINHA B", "2", tt.kind, tt.hint),
			})
			require.NoError(t, err)
			assert.Equal(t, 2, result.Imported)
			assert.Equal(t, tt.wantCreated, result.CategoriesCreated)

			txns, err := db.Prod.ListTransactions(ctx, service.TransactionFilter{AccountID: &accID})
			require.NoError(t, err)
			require.Len(t, txns, 2)
			require.NotNil(t, txns[0].CategoryID)
			assert.Equal(t, *txns[0].CategoryID, *txns[1].CategoryID)

			cat, err := db.Prod.GetCategory(ctx, *txns[0].CategoryID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cat.Name)
			assert.Equal(t, tt.kind, cat.Kind)
			assert.True(t, cat.IsRoot())
		})
	}
}

func TestImportErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := New(db.Prod).Import(ctx, 0, nil)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	result, err := New(db.Prod).Import(ctx, 999, []ofx.Entry{entry("X", "NOVA", "1", model.KindExpense, "")})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, result.Imported)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	accID := db.MustCreateAccount(db.Prod, "Corrente", "0").ID()
	_, err = New(db.Prod).Import(canceled, accID, []ofx.Entry{entry("Y", "NOVA", "1", model.KindExpense, "")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestClosest(t *testing.T) {
	candidates := []model.Category{
		{ID: 1, Name: "Mercado"},
		{ID: 2, Name: "Mercearia"},
		{ID: 3, Name: "Saques"},
	}

	match, ok := closest("mercados", candidates)
	require.True(t, ok)
	assert.Equal(t, int64(1), match.ID)

	match, ok = closest("Saque", candidates)
	require.True(t, ok)
	assert.Equal(t, int64(3), match.ID)

	_, ok = closest("Aluguel", candidates)
	assert.False(t, ok)

	_, ok = closest("Aluguel", nil)
	assert.False(t, ok)
}
