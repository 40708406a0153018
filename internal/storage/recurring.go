package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
)

const recurringColumns = `id, nome, valor, dia_vencimento, periodicidade, categoria_id, conta_id, meio_pagamento_id,
	data_inicio, data_fim, gerar_transacao, observacao, data_criacao, ativo`

const occurrenceColumns = `id, gasto_recorrente_id, ano, mes, data_pagamento, valor_pago, transacao_id`

func scanRecurring(row interface{ Scan(...any) error }) (model.RecurringExpense, error) {
	var r model.RecurringExpense
	var periodicity string
	var categoryID, accountID, methodID sql.NullInt64
	var endDate, createdAt sql.NullTime
	var notes sql.NullString

	err := row.Scan(&r.ID, &r.Name, &r.Amount, &r.DueDay, &periodicity, &categoryID, &accountID, &methodID,
		&r.StartDate, &endDate, &r.GenerateTransaction, &notes, &createdAt, &r.Active)
	if err != nil {
		return r, err
	}
	r.Periodicity = model.Periodicity(periodicity)
	r.CategoryID = intPtr(categoryID)
	r.AccountID = intPtr(accountID)
	r.PaymentMethodID = intPtr(methodID)
	r.EndDate = timePtr(endDate)
	r.Notes = notes.String
	r.CreatedAt = createdAt.Time
	return r, nil
}

func scanOccurrence(row interface{ Scan(...any) error }) (model.Occurrence, error) {
	var o model.Occurrence
	var month int
	var paidOn sql.NullTime
	var transactionID sql.NullInt64
	if err := row.Scan(&o.ID, &o.RecurringID, &o.Year, &month, &paidOn, &o.AmountPaid, &transactionID); err != nil {
		return o, err
	}
	o.Month = time.Month(month)
	o.PaidOn = timePtr(paidOn)
	o.TransactionID = intPtr(transactionID)
	return o, nil
}

func getRecurringTx(ctx context.Context, c conn, id int64) (*model.RecurringExpense, error) {
	r, err := scanRecurring(c.queryRow(ctx, `SELECT `+recurringColumns+` FROM {{tbl}}gastos_recorrentes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring expense %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring expense: %w", err)
	}
	return &r, nil
}

// getOccurrenceTx returns the stored occurrence for ym, or nil.
func getOccurrenceTx(ctx context.Context, c conn, recurringID int64, ym model.YearMonth) (*model.Occurrence, error) {
	o, err := scanOccurrence(c.queryRow(ctx, `SELECT `+occurrenceColumns+` FROM {{tbl}}pagamentos_recorrentes WHERE gasto_recorrente_id = ? AND ano = ? AND mes = ?`,
		recurringID, ym.Year, int(ym.Month)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrence: %w", err)
	}
	return &o, nil
}

func occurrencesTx(ctx context.Context, c conn, query string, args ...any) ([]model.Occurrence, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	var out []model.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// generateOccurrencesTx inserts the scheduled months that have no row yet
// and returns how many were added.
func generateOccurrencesTx(ctx context.Context, c conn, r *model.RecurringExpense) (int, error) {
	existing, err := occurrencesTx(ctx, c, `SELECT `+occurrenceColumns+` FROM {{tbl}}pagamentos_recorrentes WHERE gasto_recorrente_id = ?`, r.ID)
	if err != nil {
		return 0, err
	}
	have := make(map[model.YearMonth]bool, len(existing))
	for _, o := range existing {
		have[o.YearMonth] = true
	}

	added := 0
	for _, ym := range r.Schedule() {
		if have[ym] {
			continue
		}
		if _, err := c.exec(ctx, `INSERT INTO {{tbl}}pagamentos_recorrentes (gasto_recorrente_id, ano, mes) VALUES (?, ?, ?)`,
			r.ID, ym.Year, int(ym.Month)); err != nil {
			return added, fmt.Errorf("failed to insert occurrence %s: %w", ym, err)
		}
		added++
	}
	return added, nil
}

func checkRecurringReferencesTx(ctx context.Context, c conn, r *model.RecurringExpense) error {
	return checkReferencesTx(ctx, c, &model.Transaction{
		CategoryID:      r.CategoryID,
		AccountID:       r.AccountID,
		PaymentMethodID: r.PaymentMethodID,
	})
}

// CreateRecurring inserts the template and materializes its occurrences for
// the schedule window.
func (s *Store) CreateRecurring(ctx context.Context, r *model.RecurringExpense) error {
	if err := validateRecurring(r); err != nil {
		return err
	}

	row := *r
	row.StartDate = model.DateOf(r.StartDate)
	var added int
	err := s.withTx(ctx, func(c conn) error {
		if err := checkRecurringReferencesTx(ctx, c, &row); err != nil {
			return err
		}
		id, err := c.insert(ctx, `INSERT INTO {{tbl}}gastos_recorrentes (nome, valor, dia_vencimento, periodicidade, categoria_id, conta_id, meio_pagamento_id, data_inicio, data_fim, gerar_transacao, observacao, ativo) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.Name, money(row.Amount), row.DueDay, string(row.Periodicity),
			nullInt(row.CategoryID), nullInt(row.AccountID), nullInt(row.PaymentMethodID),
			row.StartDate, nullTime(row.EndDate), row.GenerateTransaction, nullString(row.Notes), true)
		if err != nil {
			return fmt.Errorf("failed to insert recurring expense: %w", err)
		}
		row.ID = id
		added, err = generateOccurrencesTx(ctx, c, &row)
		return err
	})
	if err != nil {
		return err
	}

	r.ID, r.Active, r.StartDate = row.ID, true, row.StartDate
	slog.Info("created recurring expense",
		"schema", s.schema,
		"id", r.ID,
		"name", r.Name,
		"occurrences", added)
	return nil
}

// UpdateRecurring rewrites the template and generates any scheduled
// occurrence that is still missing. Existing occurrences are kept.
func (s *Store) UpdateRecurring(ctx context.Context, r *model.RecurringExpense) error {
	if err := validateRecurring(r); err != nil {
		return err
	}

	row := *r
	row.StartDate = model.DateOf(r.StartDate)
	return s.withTx(ctx, func(c conn) error {
		if err := checkRecurringReferencesTx(ctx, c, &row); err != nil {
			return err
		}
		res, err := c.exec(ctx, `UPDATE {{tbl}}gastos_recorrentes SET nome = ?, valor = ?, dia_vencimento = ?, periodicidade = ?, categoria_id = ?, conta_id = ?, meio_pagamento_id = ?, data_inicio = ?, data_fim = ?, gerar_transacao = ?, observacao = ?, ativo = ? WHERE id = ?`,
			row.Name, money(row.Amount), row.DueDay, string(row.Periodicity),
			nullInt(row.CategoryID), nullInt(row.AccountID), nullInt(row.PaymentMethodID),
			row.StartDate, nullTime(row.EndDate), row.GenerateTransaction, nullString(row.Notes), row.Active, row.ID)
		if err != nil {
			return fmt.Errorf("failed to update recurring expense: %w", err)
		}
		if err := affected(res, "recurring expense", row.ID); err != nil {
			return err
		}
		_, err = generateOccurrencesTx(ctx, c, &row)
		return err
	})
}

// DeleteRecurring soft-deletes the template. Occurrences and the
// transactions they spawned are kept.
func (s *Store) DeleteRecurring(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE {{tbl}}gastos_recorrentes SET ativo = 0 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete recurring expense: %w", err)
		}
		return affected(res, "recurring expense", id)
	})
}

// GetRecurring returns the recurring expense template.
func (s *Store) GetRecurring(ctx context.Context, id int64) (*model.RecurringExpense, error) {
	var r *model.RecurringExpense
	err := s.read(ctx, func(c conn) error {
		var err error
		r, err = getRecurringTx(ctx, c, id)
		return err
	})
	return r, err
}

// ListRecurring returns templates ordered by due day and name.
func (s *Store) ListRecurring(ctx context.Context, activeOnly bool) ([]model.RecurringExpense, error) {
	query := `SELECT ` + recurringColumns + ` FROM {{tbl}}gastos_recorrentes`
	if activeOnly {
		query += ` WHERE ativo = 1`
	}
	query += ` ORDER BY dia_vencimento, nome`

	var out []model.RecurringExpense
	err := s.read(ctx, func(c conn) error {
		out = nil
		rows, err := c.query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query recurring expenses: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRecurring(rows)
			if err != nil {
				return fmt.Errorf("failed to scan recurring expense: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// Occurrences returns every occurrence of the template in month order.
func (s *Store) Occurrences(ctx context.Context, recurringID int64) ([]model.Occurrence, error) {
	var out []model.Occurrence
	err := s.read(ctx, func(c conn) error {
		var err error
		out, err = occurrencesTx(ctx, c, `SELECT `+occurrenceColumns+` FROM {{tbl}}pagamentos_recorrentes WHERE gasto_recorrente_id = ? ORDER BY ano, mes`, recurringID)
		return err
	})
	return out, err
}

// PaymentStatus returns the occurrence of ym. A month without a stored row
// comes back unpaid with a zero ID.
func (s *Store) PaymentStatus(ctx context.Context, recurringID int64, ym model.YearMonth) (*model.Occurrence, error) {
	if err := validateYearMonth(ym); err != nil {
		return nil, err
	}
	var o *model.Occurrence
	err := s.read(ctx, func(c conn) error {
		if _, err := getRecurringTx(ctx, c, recurringID); err != nil {
			return err
		}
		var err error
		o, err = getOccurrenceTx(ctx, c, recurringID, ym)
		return err
	})
	if err != nil {
		return nil, err
	}
	if o == nil {
		o = &model.Occurrence{RecurringID: recurringID, YearMonth: ym}
	}
	return o, nil
}

// MarkPaid records the payment of ym. When a transaction is requested and the
// template has an account, an expense is created through the balance
// protocol. A transaction spawned by an earlier payment of the same month is
// reversed first. Everything happens in one database transaction.
func (s *Store) MarkPaid(ctx context.Context, recurringID int64, ym model.YearMonth, req model.PaymentRequest) (*model.Occurrence, error) {
	if err := validateYearMonth(ym); err != nil {
		return nil, err
	}

	var result *model.Occurrence
	err := s.withTx(ctx, func(c conn) error {
		r, err := getRecurringTx(ctx, c, recurringID)
		if err != nil {
			return err
		}

		paidOn := model.DateOf(time.Now())
		if !req.PaidOn.IsZero() {
			paidOn = model.DateOf(req.PaidOn)
		}
		amount := r.Amount
		if req.Amount.Valid {
			amount = money(req.Amount.Decimal)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("%w: %s", ErrNonPositiveAmount, amount)
		}
		createTxn := r.GenerateTransaction
		if req.CreateTransaction != nil {
			createTxn = *req.CreateTransaction
		}

		existing, err := getOccurrenceTx(ctx, c, recurringID, ym)
		if err != nil {
			return err
		}
		if existing != nil && existing.TransactionID != nil {
			if err := s.deactivateSpawnedTx(ctx, c, *existing.TransactionID); err != nil {
				return err
			}
		}

		var transactionID *int64
		if createTxn && r.AccountID != nil {
			id, err := s.createTransactionTx(ctx, c, &model.Transaction{
				Description:        "Pagamento de " + r.Name,
				Amount:             money(amount),
				Date:               paidOn,
				Kind:               model.KindExpense,
				CategoryID:         r.CategoryID,
				AccountID:          r.AccountID,
				PaymentMethodID:    r.PaymentMethodID,
				PaymentDescription: "Pagamento recorrente - " + r.Name,
				Notes:              "Pagamento automático de gasto recorrente: " + r.Name,
				Active:             true,
			})
			if err != nil {
				return err
			}
			transactionID = &id
		}

		occ := model.Occurrence{
			RecurringID:   recurringID,
			YearMonth:     ym,
			PaidOn:        &paidOn,
			AmountPaid:    decimal.NewNullDecimal(money(amount)),
			TransactionID: transactionID,
		}
		if existing != nil {
			occ.ID = existing.ID
			_, err = c.exec(ctx, `UPDATE {{tbl}}pagamentos_recorrentes SET data_pagamento = ?, valor_pago = ?, transacao_id = ? WHERE id = ?`,
				paidOn, occ.AmountPaid, nullInt(transactionID), existing.ID)
		} else {
			occ.ID, err = c.insert(ctx, `INSERT INTO {{tbl}}pagamentos_recorrentes (gasto_recorrente_id, ano, mes, data_pagamento, valor_pago, transacao_id) VALUES (?, ?, ?, ?, ?, ?)`,
				recurringID, ym.Year, int(ym.Month), paidOn, occ.AmountPaid, nullInt(transactionID))
		}
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		result = &occ
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("marked occurrence paid",
		"schema", s.schema,
		"recurring_id", recurringID,
		"month", ym.String(),
		"amount", result.AmountPaid.Decimal)
	return result, nil
}

// MarkUnpaid clears the payment of ym and reverses the transaction it
// spawned, if any.
func (s *Store) MarkUnpaid(ctx context.Context, recurringID int64, ym model.YearMonth) error {
	if err := validateYearMonth(ym); err != nil {
		return err
	}

	return s.withTx(ctx, func(c conn) error {
		if _, err := getRecurringTx(ctx, c, recurringID); err != nil {
			return err
		}
		existing, err := getOccurrenceTx(ctx, c, recurringID, ym)
		if err != nil {
			return err
		}
		if existing == nil || !existing.Paid() {
			return nil
		}

		if existing.TransactionID != nil {
			if err := s.deactivateSpawnedTx(ctx, c, *existing.TransactionID); err != nil {
				return err
			}
		}
		if _, err := c.exec(ctx, `UPDATE {{tbl}}pagamentos_recorrentes SET data_pagamento = NULL, valor_pago = NULL, transacao_id = NULL WHERE id = ?`, existing.ID); err != nil {
			return fmt.Errorf("failed to clear payment: %w", err)
		}

		slog.Info("marked occurrence unpaid", "schema", s.schema, "recurring_id", recurringID, "month", ym.String())
		return nil
	})
}

func (s *Store) deactivateSpawnedTx(ctx context.Context, c conn, transactionID int64) error {
	t, err := getTransactionTx(ctx, c, transactionID)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deactivateTx(ctx, c, []model.Transaction{*t})
}

// PendingPayments lists the active templates due in ym whose occurrence is
// not paid yet, ordered by due date.
func (s *Store) PendingPayments(ctx context.Context, ym model.YearMonth) ([]model.PendingPayment, error) {
	if err := validateYearMonth(ym); err != nil {
		return nil, err
	}

	templates, err := s.ListRecurring(ctx, true)
	if err != nil {
		return nil, err
	}

	var pending []model.PendingPayment
	err = s.read(ctx, func(c conn) error {
		pending = nil
		for _, r := range templates {
			if !r.DueIn(ym) {
				continue
			}
			occ, err := getOccurrenceTx(ctx, c, r.ID, ym)
			if err != nil {
				return err
			}
			if occ.Paid() {
				continue
			}
			pending = append(pending, model.PendingPayment{
				Expense:    r,
				Occurrence: occ,
				DueDate:    r.DueDate(ym),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved pending payments", "month", ym.String(), "count", len(pending))
	return pending, nil
}
