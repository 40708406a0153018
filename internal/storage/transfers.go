package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/google/uuid"
)

func transferLegsTx(ctx context.Context, c conn, transferID string) ([]model.Transaction, error) {
	legs, err := queryTransactionsTx(ctx, c, `SELECT `+transactionColumns+` FROM {{tbl}}transacoes WHERE id_transferencia = ? ORDER BY id`, transferID)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("transfer %s: %w", transferID, common.ErrNotFound)
	}
	return legs, nil
}

func pairLegs(transferID string, legs []model.Transaction) (*model.Transfer, error) {
	tr := &model.Transfer{ID: transferID}
	var debit, credit bool
	for _, leg := range legs {
		switch leg.Side {
		case model.SideDebit:
			tr.Debit, debit = leg, true
		case model.SideCredit:
			tr.Credit, credit = leg, true
		}
	}
	if !debit || !credit {
		return nil, fmt.Errorf("%w: transfer %s has %d legs", common.ErrDatabaseCorrupted, transferID, len(legs))
	}
	return tr, nil
}

// GetTransfer returns both legs of a transfer.
func (s *Store) GetTransfer(ctx context.Context, transferID string) (*model.Transfer, error) {
	if err := validateString(transferID, "transferID"); err != nil {
		return nil, err
	}
	var legs []model.Transaction
	err := s.read(ctx, func(c conn) error {
		var err error
		legs, err = transferLegsTx(ctx, c, transferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pairLegs(transferID, legs)
}

// CreateTransfer writes a debit leg on the source account and a credit leg
// on the destination, linked by a new transfer id, and moves both balances.
func (s *Store) CreateTransfer(ctx context.Context, req model.TransferRequest) (*model.Transfer, error) {
	if err := validateTransfer(&req); err != nil {
		return nil, err
	}

	transferID := uuid.NewString()
	debit, credit := req.Legs(transferID)

	err := s.withTx(ctx, func(c conn) error {
		if err := checkTransferAccountsTx(ctx, c, req); err != nil {
			return err
		}
		for _, leg := range []*model.Transaction{&debit, &credit} {
			if err := checkReferencesTx(ctx, c, leg); err != nil {
				return err
			}
			id, err := insertTransactionTx(ctx, c, leg)
			if err != nil {
				return err
			}
			leg.ID = id
		}

		deltas := model.BalanceDeltas{}
		deltas.Apply(&debit)
		deltas.Apply(&credit)
		return s.applyDeltasTx(ctx, c, deltas)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created transfer",
		"schema", s.schema,
		"transfer_id", transferID,
		"from", req.FromAccountID,
		"to", req.ToAccountID,
		"amount", req.Amount)
	return &model.Transfer{ID: transferID, Debit: debit, Credit: credit}, nil
}

// checkTransferAccountsTx requires both accounts of req to exist. Each leg
// names the other account, which checkReferencesTx does not look at.
func checkTransferAccountsTx(ctx context.Context, c conn, req model.TransferRequest) error {
	for _, id := range []int64{req.FromAccountID, req.ToAccountID} {
		if err := accountExistsTx(ctx, c, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTransfer rewrites both legs of an active transfer, reversing the old
// legs and applying the new ones in one database transaction.
func (s *Store) UpdateTransfer(ctx context.Context, transferID string, req model.TransferRequest) (*model.Transfer, error) {
	if err := validateString(transferID, "transferID"); err != nil {
		return nil, err
	}
	if err := validateTransfer(&req); err != nil {
		return nil, err
	}

	debit, credit := req.Legs(transferID)
	err := s.withTx(ctx, func(c conn) error {
		legs, err := transferLegsTx(ctx, c, transferID)
		if err != nil {
			return err
		}
		old, err := pairLegs(transferID, legs)
		if err != nil {
			return err
		}
		if !old.Debit.Active || !old.Credit.Active {
			return fmt.Errorf("transfer %s was deleted: %w", transferID, common.ErrNotFound)
		}

		if err := checkTransferAccountsTx(ctx, c, req); err != nil {
			return err
		}

		debit.ID, credit.ID = old.Debit.ID, old.Credit.ID
		deltas := model.BalanceDeltas{}
		deltas.Revert(&old.Debit)
		deltas.Revert(&old.Credit)
		for _, leg := range []*model.Transaction{&debit, &credit} {
			if err := checkReferencesTx(ctx, c, leg); err != nil {
				return err
			}
			if err := updateTransactionTx(ctx, c, leg); err != nil {
				return err
			}
			deltas.Apply(leg)
		}
		return s.applyDeltasTx(ctx, c, deltas)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated transfer", "schema", s.schema, "transfer_id", transferID)
	return &model.Transfer{ID: transferID, Debit: debit, Credit: credit}, nil
}

// deleteTransferTx soft-deletes every active leg of the transfer and
// reverses their effects.
func (s *Store) deleteTransferTx(ctx context.Context, c conn, transferID string) error {
	legs, err := transferLegsTx(ctx, c, transferID)
	if err != nil {
		return err
	}
	return s.deactivateTx(ctx, c, legs)
}
