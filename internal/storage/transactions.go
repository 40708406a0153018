package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
)

const transactionColumns = `id, descricao, valor, data_transacao, tipo, categoria_id, conta_id, meio_pagamento_id,
	descricao_pagamento, local_transacao, observacao, id_transferencia, conta_destino_id, lado_transferencia,
	id_externo, data_criacao, ativo`

func scanTransaction(row interface{ Scan(...any) error }) (model.Transaction, error) {
	var t model.Transaction
	var kind string
	var categoryID, accountID, methodID, destinationID sql.NullInt64
	var payment, location, notes, transferID, side, externalID sql.NullString
	var createdAt sql.NullTime

	err := row.Scan(&t.ID, &t.Description, &t.Amount, &t.Date, &kind, &categoryID, &accountID, &methodID,
		&payment, &location, &notes, &transferID, &destinationID, &side,
		&externalID, &createdAt, &t.Active)
	if err != nil {
		return t, err
	}
	t.Kind = model.Kind(kind)
	t.CategoryID = intPtr(categoryID)
	t.AccountID = intPtr(accountID)
	t.PaymentMethodID = intPtr(methodID)
	t.DestinationAccountID = intPtr(destinationID)
	t.PaymentDescription = payment.String
	t.Location = location.String
	t.Notes = notes.String
	t.TransferID = transferID.String
	t.Side = model.TransferSide(side.String)
	t.ExternalID = externalID.String
	t.CreatedAt = createdAt.Time
	return t, nil
}

func getTransactionTx(ctx context.Context, c conn, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(c.queryRow(ctx, `SELECT `+transactionColumns+` FROM {{tbl}}transacoes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return &t, nil
}

func queryTransactionsTx(ctx context.Context, c conn, query string, args ...any) ([]model.Transaction, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

// GetTransaction returns the transaction with the given id, active or not.
func (s *Store) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	var t *model.Transaction
	err := s.read(ctx, func(c conn) error {
		var err error
		t, err = getTransactionTx(ctx, c, id)
		return err
	})
	return t, err
}

// ListTransactions returns transactions matching filter, newest first.
func (s *Store) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, ErrInvalidDateRange
	}

	var where []string
	var args []any
	if !filter.IncludeInactive {
		where = append(where, "ativo = 1")
	}
	if filter.StartDate != nil {
		where = append(where, "data_transacao >= ?")
		args = append(args, model.DateOf(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "data_transacao <= ?")
		args = append(args, model.DateOf(*filter.EndDate))
	}
	if filter.AccountID != nil {
		where = append(where, "conta_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.CategoryID != nil {
		where = append(where, "categoria_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Kind != "" {
		where = append(where, "tipo = ?")
		args = append(args, string(filter.Kind))
	}

	query := `SELECT ` + transactionColumns + ` FROM {{tbl}}transacoes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY data_transacao DESC, id DESC"
	if filter.Limit > 0 {
		query = s.dialect.Limit(query, filter.Limit)
	}

	var txns []model.Transaction
	err := s.read(ctx, func(c conn) error {
		var err error
		txns, err = queryTransactionsTx(ctx, c, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved transactions", "count", len(txns))
	return txns, nil
}

// ExistsByExternalID reports whether the account already has a transaction
// imported with externalID.
func (s *Store) ExistsByExternalID(ctx context.Context, accountID int64, externalID string) (bool, error) {
	if err := validateString(externalID, "externalID"); err != nil {
		return false, err
	}
	var n int
	err := s.read(ctx, func(c conn) error {
		return c.queryRow(ctx, `SELECT COUNT(*) FROM {{tbl}}transacoes WHERE conta_id = ? AND id_externo = ? AND ativo = 1`,
			accountID, externalID).Scan(&n)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return n > 0, nil
}

// checkReferencesTx verifies that the ids a transaction points to exist.
func checkReferencesTx(ctx context.Context, c conn, t *model.Transaction) error {
	if t.AccountID != nil {
		if err := accountExistsTx(ctx, c, *t.AccountID); err != nil {
			return err
		}
	}
	if t.CategoryID != nil {
		if _, err := getCategoryTx(ctx, c, *t.CategoryID); err != nil {
			return err
		}
	}
	if t.PaymentMethodID != nil {
		var n int
		if err := c.queryRow(ctx, `SELECT COUNT(*) FROM {{tbl}}meios_pagamento WHERE id = ?`, *t.PaymentMethodID).Scan(&n); err != nil {
			return fmt.Errorf("failed to check payment method: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("payment method %d: %w", *t.PaymentMethodID, common.ErrNotFound)
		}
	}
	return nil
}

func insertTransactionTx(ctx context.Context, c conn, t *model.Transaction) (int64, error) {
	id, err := c.insert(ctx, `INSERT INTO {{tbl}}transacoes (descricao, valor, data_transacao, tipo, categoria_id, conta_id, meio_pagamento_id, descricao_pagamento, local_transacao, observacao, id_transferencia, conta_destino_id, lado_transferencia, id_externo, ativo) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Description, money(t.Amount), model.DateOf(t.Date), string(t.Kind),
		nullInt(t.CategoryID), nullInt(t.AccountID), nullInt(t.PaymentMethodID),
		nullString(t.PaymentDescription), nullString(t.Location), nullString(t.Notes),
		nullString(t.TransferID), nullInt(t.DestinationAccountID), nullString(string(t.Side)),
		nullString(t.ExternalID), t.Active)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return id, nil
}

func updateTransactionTx(ctx context.Context, c conn, t *model.Transaction) error {
	res, err := c.exec(ctx, `UPDATE {{tbl}}transacoes SET descricao = ?, valor = ?, data_transacao = ?, tipo = ?, categoria_id = ?, conta_id = ?, meio_pagamento_id = ?, descricao_pagamento = ?, local_transacao = ?, observacao = ?, conta_destino_id = ?, lado_transferencia = ?, id_externo = ?, ativo = ? WHERE id = ?`,
		t.Description, money(t.Amount), model.DateOf(t.Date), string(t.Kind),
		nullInt(t.CategoryID), nullInt(t.AccountID), nullInt(t.PaymentMethodID),
		nullString(t.PaymentDescription), nullString(t.Location), nullString(t.Notes),
		nullInt(t.DestinationAccountID), nullString(string(t.Side)),
		nullString(t.ExternalID), t.Active, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return affected(res, "transaction", t.ID)
}

// CreateTransaction inserts a receipt or expense and applies its effect to
// the account balance in the same database transaction.
func (s *Store) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	if err := validateTransaction(t); err != nil {
		return err
	}

	row := *t
	row.Active = true
	var id int64
	err := s.withTx(ctx, func(c conn) error {
		var err error
		if id, err = s.createTransactionTx(ctx, c, &row); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.ID, t.Active = id, true
	t.Date = model.DateOf(t.Date)
	t.Amount = money(t.Amount)
	return nil
}

func (s *Store) createTransactionTx(ctx context.Context, c conn, t *model.Transaction) (int64, error) {
	if err := checkReferencesTx(ctx, c, t); err != nil {
		return 0, err
	}
	id, err := insertTransactionTx(ctx, c, t)
	if err != nil {
		return 0, err
	}

	deltas := model.BalanceDeltas{}
	deltas.Apply(t)
	if err := s.applyDeltasTx(ctx, c, deltas); err != nil {
		return 0, err
	}

	slog.Info("created transaction",
		"schema", s.schema,
		"id", id,
		"kind", t.Kind,
		"amount", t.Amount)
	return id, nil
}

// UpdateTransaction rewrites a receipt or expense. The stored row is read
// under the same database transaction; its effect is reversed and the new
// effect applied as one net delta per account. Transfer legs are rejected.
func (s *Store) UpdateTransaction(ctx context.Context, t *model.Transaction) error {
	if err := validateTransaction(t); err != nil {
		return err
	}

	err := s.withTx(ctx, func(c conn) error {
		orig, err := getTransactionTx(ctx, c, t.ID)
		if err != nil {
			return fmt.Errorf("failed to load original transaction: %w", err)
		}
		if orig.IsTransferLeg() {
			return fmt.Errorf("transaction %d: %w", t.ID, common.ErrTransferLeg)
		}
		if err := checkReferencesTx(ctx, c, t); err != nil {
			return err
		}

		next := *t
		next.Active = orig.Active
		next.TransferID, next.Side, next.DestinationAccountID = "", model.SideNone, nil
		if err := updateTransactionTx(ctx, c, &next); err != nil {
			return err
		}

		deltas := model.BalanceDeltas{}
		deltas.Revert(orig)
		deltas.Apply(&next)
		return s.applyDeltasTx(ctx, c, deltas)
	})
	if err != nil {
		return err
	}

	slog.Info("updated transaction", "schema", s.schema, "id", t.ID)
	return nil
}

// DeleteTransaction soft-deletes the transaction and reverses its effect.
// Deleting a transfer leg deletes and reverses both legs. Deleting an
// inactive transaction is a no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(c conn) error {
		t, err := getTransactionTx(ctx, c, id)
		if err != nil {
			return err
		}
		if t.IsTransferLeg() {
			return s.deleteTransferTx(ctx, c, t.TransferID)
		}
		if !t.Active {
			return nil
		}
		return s.deactivateTx(ctx, c, []model.Transaction{*t})
	})
	if err != nil {
		return err
	}

	slog.Info("deleted transaction", "schema", s.schema, "id", id)
	return nil
}

// deactivateTx soft-deletes txns and reverses their effects.
func (s *Store) deactivateTx(ctx context.Context, c conn, txns []model.Transaction) error {
	deltas := model.BalanceDeltas{}
	for i := range txns {
		if !txns[i].Active {
			continue
		}
		if _, err := c.exec(ctx, `UPDATE {{tbl}}transacoes SET ativo = 0 WHERE id = ?`, txns[i].ID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		deltas.Revert(&txns[i])
	}
	return s.applyDeltasTx(ctx, c, deltas)
}
