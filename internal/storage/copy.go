package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/config"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
)

var tableColumns = map[string]string{
	"categorias":             `id, nome, tipo, descricao, categoria_pai_id, nivel, data_criacao, ativo`,
	"conta_dimensao":         `id, nome, tipo, instituicao, agencia, conta_contabil, numero_banco, titular, nome_gerente, contato_gerente, data_criacao, ativo`,
	"conta_saldos":           `id, conta_dimensao_id, saldo_inicial, saldo_atual, data_criacao`,
	"meios_pagamento":        `id, nome, tipo, descricao, conta_id, data_criacao, ativo`,
	"transacoes":             transactionColumns,
	"gastos_recorrentes":     recurringColumns,
	"pagamentos_recorrentes": occurrenceColumns,
}

// tableOrder keeps parents ahead of children inside self-referencing tables.
var tableOrder = map[string]string{
	"categorias": "nivel, id",
}

// CopyEnvironment replaces every row of the to environment with the rows of
// the from environment, keeping ids. Both schemas are migrated first. The
// copy runs in one database transaction and is rolled back unless every
// table ends up with the same row count on both sides. Progress events are
// sent on progress when it is not nil; the channel is not closed.
func (m *Manager) CopyEnvironment(ctx context.Context, from, to config.Environment, progress chan<- service.CopyProgress) ([]model.TableCount, error) {
	if from == to {
		return nil, fmt.Errorf("%w: cannot copy %s onto itself", common.ErrInvalidInput, from)
	}

	src, err := m.Store(ctx, from)
	if err != nil {
		return nil, err
	}
	dst, err := m.Store(ctx, to)
	if err != nil {
		return nil, err
	}

	total := len(tables) + 2
	report := func(p service.CopyProgress) error {
		if progress == nil {
			return nil
		}
		p.Total = total
		select {
		case progress <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var counts []model.TableCount
	err = dst.withTx(ctx, func(c conn) error {
		counts = nil
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := c.exec(ctx, `DELETE FROM {{tbl}}`+tables[i]); err != nil {
				return fmt.Errorf("failed to clear %s.%s: %w", dst.schema, tables[i], err)
			}
		}
		if err := report(service.CopyProgress{Step: 1, Message: "cleared " + dst.schema}); err != nil {
			return err
		}

		for i, table := range tables {
			count, err := copyTableTx(ctx, c, src.schema, table)
			if err != nil {
				return err
			}
			counts = append(counts, count)

			slog.Info("copied table",
				"from", src.schema,
				"to", dst.schema,
				"table", table,
				"rows", count.Destination)
			if err := report(service.CopyProgress{Step: i + 2, Table: table, Rows: count.Destination, Message: "copied " + table}); err != nil {
				return err
			}
		}

		for _, count := range counts {
			if !count.Matches() {
				return fmt.Errorf("row count mismatch in %s: %d copied, %d expected", count.Table, count.Destination, count.Source)
			}
		}
		return report(service.CopyProgress{Step: total, Message: "verified row counts"})
	})
	if err != nil {
		return counts, err
	}

	if err := report(service.CopyProgress{Step: total, Done: true, Message: "done"}); err != nil {
		return counts, err
	}
	return counts, nil
}

// copyTableTx copies one table from the source schema into the schema of c
// and returns both row counts.
func copyTableTx(ctx context.Context, c conn, srcSchema, table string) (model.TableCount, error) {
	count := model.TableCount{Table: table}
	columns := tableColumns[table]
	order := "id"
	if o, ok := tableOrder[table]; ok {
		order = o
	}
	dstTable := c.s.schema + "." + table

	if stmt := c.s.dialect.IdentityInsert(dstTable, true); stmt != "" {
		if _, err := c.exec(ctx, stmt); err != nil {
			return count, fmt.Errorf("failed to enable identity insert on %s: %w", dstTable, err)
		}
	}

	query := fmt.Sprintf(`INSERT INTO {{tbl}}%s (%s) SELECT %s FROM %s.%s ORDER BY %s`,
		table, columns, columns, srcSchema, table, order)
	if _, err := c.exec(ctx, query); err != nil {
		return count, fmt.Errorf("failed to copy %s: %w", table, err)
	}

	if stmt := c.s.dialect.IdentityInsert(dstTable, false); stmt != "" {
		if _, err := c.exec(ctx, stmt); err != nil {
			return count, fmt.Errorf("failed to disable identity insert on %s: %w", dstTable, err)
		}
	}

	if err := c.queryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, srcSchema, table)).Scan(&count.Source); err != nil {
		return count, fmt.Errorf("failed to count %s.%s: %w", srcSchema, table, err)
	}
	if err := c.queryRow(ctx, `SELECT COUNT(*) FROM {{tbl}}`+table).Scan(&count.Destination); err != nil {
		return count, fmt.Errorf("failed to count %s: %w", dstTable, err)
	}
	return count, nil
}
