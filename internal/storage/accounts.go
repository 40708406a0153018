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

const accountColumns = `d.id, d.nome, d.tipo, d.instituicao, d.agencia, d.conta_contabil, d.numero_banco,
	d.titular, d.nome_gerente, d.contato_gerente, d.data_criacao, d.ativo,
	s.id, s.saldo_inicial, s.saldo_atual, s.data_criacao`

const accountFrom = ` FROM {{tbl}}conta_dimensao d JOIN {{tbl}}conta_saldos s ON s.conta_dimensao_id = d.id`

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var acc model.Account
	var institution, agency, ledger, bank, holder, managerName, managerContact sql.NullString
	var dimensionCreated, balanceCreated sql.NullTime
	err := row.Scan(
		&acc.Dimension.ID, &acc.Dimension.Name, &acc.Dimension.Type, &institution, &agency, &ledger, &bank,
		&holder, &managerName, &managerContact, &dimensionCreated, &acc.Dimension.Active,
		&acc.Balance.ID, &acc.Balance.Initial, &acc.Balance.Current, &balanceCreated,
	)
	if err != nil {
		return acc, err
	}
	acc.Dimension.Institution = institution.String
	acc.Dimension.Agency = agency.String
	acc.Dimension.LedgerAccount = ledger.String
	acc.Dimension.BankNumber = bank.String
	acc.Dimension.Holder = holder.String
	acc.Dimension.ManagerName = managerName.String
	acc.Dimension.ManagerContact = managerContact.String
	acc.Dimension.CreatedAt = dimensionCreated.Time
	acc.Balance.AccountID = acc.Dimension.ID
	acc.Balance.CreatedAt = balanceCreated.Time
	return acc, nil
}

func getAccountTx(ctx context.Context, c conn, id int64) (*model.Account, error) {
	acc, err := scanAccount(c.queryRow(ctx, `SELECT `+accountColumns+accountFrom+` WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &acc, nil
}

// accountExistsTx returns ErrNotFound unless the account dimension exists.
func accountExistsTx(ctx context.Context, c conn, id int64) error {
	var n int
	if err := c.queryRow(ctx, `SELECT COUNT(*) FROM {{tbl}}conta_dimensao WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetAccount returns the account with its balance.
func (s *Store) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	var acc *model.Account
	err := s.read(ctx, func(c conn) error {
		var err error
		acc, err = getAccountTx(ctx, c, id)
		return err
	})
	return acc, err
}

// ListAccounts returns accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context, activeOnly bool) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + accountFrom
	if activeOnly {
		query += ` WHERE d.ativo = 1`
	}
	query += ` ORDER BY d.nome`

	var accounts []model.Account
	err := s.read(ctx, func(c conn) error {
		accounts = nil
		rows, err := c.query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query accounts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			acc, err := scanAccount(rows)
			if err != nil {
				return fmt.Errorf("failed to scan account: %w", err)
			}
			accounts = append(accounts, acc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved accounts", "count", len(accounts))
	return accounts, nil
}

// TotalBalance sums the current balance of the accounts.
func (s *Store) TotalBalance(ctx context.Context, activeOnly bool) (decimal.Decimal, error) {
	accounts, err := s.ListAccounts(ctx, activeOnly)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance.Current)
	}
	return total, nil
}

// CreateAccount inserts the dimension and balance rows in one transaction.
// The current balance starts at the initial balance.
func (s *Store) CreateAccount(ctx context.Context, acc *model.Account) error {
	if err := validateAccount(acc); err != nil {
		return err
	}

	d := acc.Dimension
	initial := money(acc.Balance.Initial)
	var dimensionID, balanceID int64
	err := s.withTx(ctx, func(c conn) error {
		var err error
		dimensionID, err = c.insert(ctx, `INSERT INTO {{tbl}}conta_dimensao (nome, tipo, instituicao, agencia, conta_contabil, numero_banco, titular, nome_gerente, contato_gerente, ativo) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Name, d.Type, nullString(d.Institution), nullString(d.Agency), nullString(d.LedgerAccount),
			nullString(d.BankNumber), nullString(d.Holder), nullString(d.ManagerName), nullString(d.ManagerContact), true)
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}

		balanceID, err = c.insert(ctx, `INSERT INTO {{tbl}}conta_saldos (conta_dimensao_id, saldo_inicial, saldo_atual) VALUES (?, ?, ?)`,
			dimensionID, initial, initial)
		if err != nil {
			return fmt.Errorf("failed to insert account balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	acc.Dimension.ID, acc.Dimension.Active = dimensionID, true
	acc.Balance = model.AccountBalance{ID: balanceID, AccountID: dimensionID, Initial: initial, Current: initial}
	slog.Info("created account", "schema", s.schema, "id", dimensionID, "name", d.Name, "initial", initial)
	return nil
}

// UpdateAccount rewrites the dimension and the initial balance. The current
// balance is never taken from acc: it moves by the change in the initial
// balance so the ledger invariant holds.
func (s *Store) UpdateAccount(ctx context.Context, acc *model.Account) error {
	if err := validateAccount(acc); err != nil {
		return err
	}

	d := acc.Dimension
	initial := money(acc.Balance.Initial)
	var updated *model.Account
	err := s.withTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE {{tbl}}conta_dimensao SET nome = ?, tipo = ?, instituicao = ?, agencia = ?, conta_contabil = ?, numero_banco = ?, titular = ?, nome_gerente = ?, contato_gerente = ?, ativo = ? WHERE id = ?`,
			d.Name, d.Type, nullString(d.Institution), nullString(d.Agency), nullString(d.LedgerAccount),
			nullString(d.BankNumber), nullString(d.Holder), nullString(d.ManagerName), nullString(d.ManagerContact), d.Active, d.ID)
		if err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if err := affected(res, "account", d.ID); err != nil {
			return err
		}

		current, stored, err := lockBalanceTx(ctx, c, d.ID)
		if err != nil {
			return err
		}
		if shift := initial.Sub(stored); !shift.IsZero() {
			if _, err := c.exec(ctx, `UPDATE {{tbl}}conta_saldos SET saldo_inicial = ?, saldo_atual = ? WHERE conta_dimensao_id = ?`,
				initial, current.Add(shift), d.ID); err != nil {
				return fmt.Errorf("failed to update account balance: %w", err)
			}
		}

		updated, err = getAccountTx(ctx, c, d.ID)
		return err
	})
	if err != nil {
		return err
	}

	*acc = *updated
	return nil
}

// DeleteAccount soft-deletes the account. Its balance row and transactions
// are kept.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE {{tbl}}conta_dimensao SET ativo = 0 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return affected(res, "account", id)
	})
	if err != nil {
		return err
	}

	slog.Info("deleted account", "schema", s.schema, "id", id)
	return nil
}
