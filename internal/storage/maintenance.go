package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
)

// tables lists the ledger tables with parents before children. Deletes walk
// it backwards.
var tables = []string{
	"categorias",
	"conta_dimensao",
	"conta_saldos",
	"meios_pagamento",
	"transacoes",
	"gastos_recorrentes",
	"pagamentos_recorrentes",
}

// RecalculateBalances recomputes the current balance of every active account
// as its initial balance plus the effects of its active transactions. It
// returns the accounts whose stored balance was wrong and, unless dryRun is
// set, fixes them in the same database transaction.
func (s *Store) RecalculateBalances(ctx context.Context, dryRun bool) ([]model.BalanceCorrection, error) {
	var corrections []model.BalanceCorrection
	err := s.withTx(ctx, func(c conn) error {
		corrections = nil

		accounts, err := activeAccountsTx(ctx, c)
		if err != nil {
			return err
		}

		effects, err := accountEffectsTx(ctx, c)
		if err != nil {
			return err
		}

		for _, acc := range accounts {
			computed := acc.Balance.Initial.Add(effects[acc.ID()])
			if computed.Equal(acc.Balance.Current) {
				continue
			}
			corrections = append(corrections, model.BalanceCorrection{
				AccountID:   acc.ID(),
				AccountName: acc.Name(),
				Stored:      acc.Balance.Current,
				Computed:    computed,
			})
			if dryRun {
				continue
			}
			if _, err := c.exec(ctx, `UPDATE {{tbl}}conta_saldos SET saldo_atual = ? WHERE conta_dimensao_id = ?`, computed, acc.ID()); err != nil {
				return fmt.Errorf("failed to correct balance of account %d: %w", acc.ID(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("recalculated balances",
		"schema", s.schema,
		"dry_run", dryRun,
		"corrections", len(corrections))
	return corrections, nil
}

func activeAccountsTx(ctx context.Context, c conn) ([]model.Account, error) {
	rows, err := c.query(ctx, `SELECT `+accountColumns+accountFrom+` WHERE d.ativo = 1 ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// accountEffectsTx sums the effects of the active transactions per account.
func accountEffectsTx(ctx context.Context, c conn) (model.BalanceDeltas, error) {
	txns, err := queryTransactionsTx(ctx, c, `SELECT `+transactionColumns+` FROM {{tbl}}transacoes WHERE ativo = 1 AND conta_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	effects := model.BalanceDeltas{}
	for i := range txns {
		effects.Apply(&txns[i])
	}
	return effects, nil
}

// CleanData physically deletes every row of the schema. The schema itself
// and its migration version are kept.
func (s *Store) CleanData(ctx context.Context) error {
	counts := make(map[string]int64, len(tables))
	err := s.withTx(ctx, func(c conn) error {
		for i := len(tables) - 1; i >= 0; i-- {
			res, err := c.exec(ctx, `DELETE FROM {{tbl}}`+tables[i])
			if err != nil {
				return fmt.Errorf("failed to clean %s: %w", tables[i], err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get affected rows: %w", err)
			}
			counts[tables[i]] = n
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, table := range tables {
		slog.Info("cleaned table", "schema", s.schema, "table", table, "rows", counts[table])
	}
	return nil
}

// PeriodSummary totals the active receipts and expenses dated inside
// [start, end]. Transfers are left out.
func (s *Store) PeriodSummary(ctx context.Context, start, end time.Time) (*model.PeriodSummary, error) {
	start, end = model.DateOf(start), model.DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidDateRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	var txns []model.Transaction
	err := s.read(ctx, func(c conn) error {
		var err error
		txns, err = queryTransactionsTx(ctx, c, `SELECT `+transactionColumns+` FROM {{tbl}}transacoes WHERE ativo = 1 AND tipo IN ('R', 'D') AND data_transacao >= ? AND data_transacao <= ?`,
			start, end)
		return err
	})
	if err != nil {
		return nil, err
	}

	summary := &model.PeriodSummary{
		Start:    start,
		End:      end,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Count:    len(txns),
	}
	for _, t := range txns {
		switch t.Kind {
		case model.KindReceipt:
			summary.Income = summary.Income.Add(t.Amount)
		case model.KindExpense:
			summary.Expenses = summary.Expenses.Add(t.Amount)
		}
	}
	return summary, nil
}
