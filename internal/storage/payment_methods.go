package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
)

const methodColumns = `id, nome, tipo, descricao, conta_id, data_criacao, ativo`

func scanPaymentMethod(row interface{ Scan(...any) error }) (model.PaymentMethod, error) {
	var m model.PaymentMethod
	var desc sql.NullString
	var accountID sql.NullInt64
	var createdAt sql.NullTime
	if err := row.Scan(&m.ID, &m.Name, &m.Type, &desc, &accountID, &createdAt, &m.Active); err != nil {
		return m, err
	}
	m.Description = desc.String
	m.AccountID = intPtr(accountID)
	m.CreatedAt = createdAt.Time
	return m, nil
}

// GetPaymentMethod returns the payment method with the given id.
func (s *Store) GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	var m model.PaymentMethod
	err := s.read(ctx, func(c conn) error {
		var err error
		m, err = scanPaymentMethod(c.queryRow(ctx, `SELECT `+methodColumns+` FROM {{tbl}}meios_pagamento WHERE id = ?`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment method %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payment method: %w", err)
	}
	return &m, nil
}

// ListPaymentMethods returns payment methods ordered by name.
func (s *Store) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]model.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM {{tbl}}meios_pagamento`
	if activeOnly {
		query += ` WHERE ativo = 1`
	}
	query += ` ORDER BY nome`

	var methods []model.PaymentMethod
	err := s.read(ctx, func(c conn) error {
		methods = nil
		rows, err := c.query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query payment methods: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanPaymentMethod(rows)
			if err != nil {
				return fmt.Errorf("failed to scan payment method: %w", err)
			}
			methods = append(methods, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved payment methods", "count", len(methods))
	return methods, nil
}

// CreatePaymentMethod inserts m. A linked account must exist.
func (s *Store) CreatePaymentMethod(ctx context.Context, m *model.PaymentMethod) error {
	if err := validatePaymentMethod(m); err != nil {
		return err
	}

	var id int64
	err := s.withTx(ctx, func(c conn) error {
		if m.AccountID != nil {
			if err := accountExistsTx(ctx, c, *m.AccountID); err != nil {
				return err
			}
		}
		var err error
		id, err = c.insert(ctx, `INSERT INTO {{tbl}}meios_pagamento (nome, tipo, descricao, conta_id, ativo) VALUES (?, ?, ?, ?, ?)`,
			m.Name, m.Type, nullString(m.Description), nullInt(m.AccountID), true)
		if err != nil {
			return fmt.Errorf("failed to insert payment method: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.ID, m.Active = id, true
	slog.Info("created payment method", "schema", s.schema, "id", id, "name", m.Name)
	return nil
}

// UpdatePaymentMethod rewrites m.
func (s *Store) UpdatePaymentMethod(ctx context.Context, m *model.PaymentMethod) error {
	if err := validatePaymentMethod(m); err != nil {
		return err
	}

	return s.withTx(ctx, func(c conn) error {
		if m.AccountID != nil {
			if err := accountExistsTx(ctx, c, *m.AccountID); err != nil {
				return err
			}
		}
		res, err := c.exec(ctx, `UPDATE {{tbl}}meios_pagamento SET nome = ?, tipo = ?, descricao = ?, conta_id = ?, ativo = ? WHERE id = ?`,
			m.Name, m.Type, nullString(m.Description), nullInt(m.AccountID), m.Active, m.ID)
		if err != nil {
			return fmt.Errorf("failed to update payment method: %w", err)
		}
		return affected(res, "payment method", m.ID)
	})
}

// DeletePaymentMethod soft-deletes the payment method.
func (s *Store) DeletePaymentMethod(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE {{tbl}}meios_pagamento SET ativo = 0 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete payment method: %w", err)
		}
		return affected(res, "payment method", id)
	})
	if err != nil {
		return err
	}

	slog.Info("deleted payment method", "schema", s.schema, "id", id)
	return nil
}
