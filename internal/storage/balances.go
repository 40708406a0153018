package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
)

// lockBalanceTx reads the balance row of an account with a locking read, so
// concurrent writers to the same account serialize on it until commit.
func lockBalanceTx(ctx context.Context, c conn, accountID int64) (current, initial decimal.Decimal, err error) {
	err = c.queryRow(ctx, `SELECT saldo_atual, saldo_inicial FROM {{tbl}}conta_saldos {{lock}} WHERE conta_dimensao_id = ?`, accountID).
		Scan(&current, &initial)
	if errors.Is(err, sql.ErrNoRows) {
		return current, initial, fmt.Errorf("balance of account %d: %w", accountID, common.ErrNotFound)
	}
	if err != nil {
		return current, initial, fmt.Errorf("failed to read balance: %w", err)
	}
	return current, initial, nil
}

// applyDeltasTx adds each pending delta to its account's current balance.
// Accounts are visited in id order so concurrent writers lock rows in the
// same order.
func (s *Store) applyDeltasTx(ctx context.Context, c conn, deltas model.BalanceDeltas) error {
	for _, accountID := range deltas.NonZero() {
		current, _, err := lockBalanceTx(ctx, c, accountID)
		if err != nil {
			return err
		}

		next := current.Add(deltas[accountID])
		if _, err := c.exec(ctx, `UPDATE {{tbl}}conta_saldos SET saldo_atual = ? WHERE conta_dimensao_id = ?`, next, accountID); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		slog.Info("updated account balance",
			"schema", s.schema,
			"account_id", accountID,
			"delta", deltas[accountID],
			"balance", next)
	}
	return nil
}
