package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestTransaction_Effect(t *testing.T) {
	amount := decimal.RequireFromString("42.10")
	tests := []struct {
		name string
		kind Kind
		side TransferSide
		want string
	}{
		{name: "receipt adds", kind: KindReceipt, want: "42.1"},
		{name: "expense subtracts", kind: KindExpense, want: "-42.1"},
		{name: "transfer debit subtracts", kind: KindTransfer, side: SideDebit, want: "-42.1"},
		{name: "transfer credit adds", kind: KindTransfer, side: SideCredit, want: "42.1"},
		{name: "transfer without side is neutral", kind: KindTransfer, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{Kind: tt.kind, Side: tt.side, Amount: amount}
			assert.True(t, decimal.RequireFromString(tt.want).Equal(txn.Effect()), "got %s", txn.Effect())

			reversal := txn.Reversal()
			assert.True(t, txn.Effect().Add(reversal.Effect()).IsZero())
		})
	}
}

func TestBalanceDeltas_AccountChange(t *testing.T) {
	orig := Transaction{Kind: KindExpense, Amount: decimal.NewFromInt(50), AccountID: ptr(1), Active: true}
	updated := orig
	updated.AccountID = ptr(2)
	updated.Amount = decimal.NewFromInt(75)

	deltas := BalanceDeltas{}
	deltas.Revert(&orig)
	deltas.Apply(&updated)

	require.Equal(t, []int64{1, 2}, deltas.NonZero())
	assert.True(t, decimal.NewFromInt(50).Equal(deltas[1]))
	assert.True(t, decimal.NewFromInt(-75).Equal(deltas[2]))
}

func TestBalanceDeltas_SameAccountNetsOut(t *testing.T) {
	orig := Transaction{Kind: KindReceipt, Amount: decimal.NewFromInt(10), AccountID: ptr(3), Active: true}

	deltas := BalanceDeltas{}
	deltas.Revert(&orig)
	deltas.Apply(&orig)

	assert.Empty(t, deltas.NonZero())
}

func TestBalanceDeltas_IgnoresInactive(t *testing.T) {
	deleted := Transaction{Kind: KindReceipt, Amount: decimal.NewFromInt(10), AccountID: ptr(3)}

	deltas := BalanceDeltas{}
	deltas.Revert(&deleted)

	assert.Empty(t, deltas.NonZero())
}

func TestTransferRequest_Legs(t *testing.T) {
	req := TransferRequest{
		Description:   "Reserva",
		Amount:        decimal.NewFromInt(300),
		FromAccountID: 1,
		ToAccountID:   2,
	}

	debit, credit := req.Legs("abc")

	assert.Equal(t, "abc", debit.TransferID)
	assert.Equal(t, "abc", credit.TransferID)
	assert.Equal(t, SideDebit, debit.Side)
	assert.Equal(t, SideCredit, credit.Side)
	assert.Equal(t, int64(1), *debit.AccountID)
	assert.Equal(t, int64(2), *debit.DestinationAccountID)
	assert.Equal(t, int64(2), *credit.AccountID)
	assert.Equal(t, int64(1), *credit.DestinationAccountID)
	assert.True(t, debit.Effect().Add(credit.Effect()).IsZero())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"R": KindReceipt, "despesa": KindExpense, "Transfer": KindTransfer} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("x")
	assert.Error(t, err)
}
