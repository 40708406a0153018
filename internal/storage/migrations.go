package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration. Statements use the
// dialect tokens ({{tbl}}, {{pk}}, {{money}}, ...) so one list serves every
// engine and schema.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Statements: []string{
			`CREATE TABLE {{tbl}}categorias (
				id {{pk}},
				nome {{str}}(100) NOT NULL,
				tipo CHAR(1) NOT NULL,
				descricao {{str}}(255) NULL,
				categoria_pai_id INT NULL REFERENCES {{ref}}categorias(id),
				nivel INT NOT NULL DEFAULT 1,
				data_criacao {{datetime}} DEFAULT {{now}},
				ativo {{bool}} NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE {{tbl}}conta_dimensao (
				id {{pk}},
				nome {{str}}(100) NOT NULL,
				tipo {{str}}(50) NOT NULL,
				instituicao {{str}}(100) NULL,
				agencia {{str}}(20) NULL,
				conta_contabil {{str}}(30) NULL,
				numero_banco {{str}}(10) NULL,
				titular {{str}}(150) NULL,
				nome_gerente {{str}}(100) NULL,
				contato_gerente {{str}}(100) NULL,
				data_criacao {{datetime}} DEFAULT {{now}},
				ativo {{bool}} NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE {{tbl}}conta_saldos (
				id {{pk}},
				conta_dimensao_id INT NOT NULL REFERENCES {{ref}}conta_dimensao(id),
				saldo_inicial {{money}} NOT NULL,
				saldo_atual {{money}} NOT NULL,
				data_criacao {{datetime}} DEFAULT {{now}}
			)`,
			`CREATE UNIQUE INDEX {{idx}}ux_conta_saldos_conta ON {{on}}conta_saldos(conta_dimensao_id)`,
			`CREATE TABLE {{tbl}}meios_pagamento (
				id {{pk}},
				nome {{str}}(100) NOT NULL,
				tipo {{str}}(50) NOT NULL,
				descricao {{str}}(255) NULL,
				conta_id INT NULL REFERENCES {{ref}}conta_dimensao(id),
				data_criacao {{datetime}} DEFAULT {{now}},
				ativo {{bool}} NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE {{tbl}}transacoes (
				id {{pk}},
				descricao {{str}}(255) NOT NULL,
				valor {{money}} NOT NULL,
				data_transacao DATE NOT NULL,
				tipo CHAR(1) NOT NULL,
				categoria_id INT NULL REFERENCES {{ref}}categorias(id),
				conta_id INT NULL REFERENCES {{ref}}conta_dimensao(id),
				meio_pagamento_id INT NULL REFERENCES {{ref}}meios_pagamento(id),
				descricao_pagamento {{str}}(255) NULL,
				local_transacao {{str}}(255) NULL,
				observacao {{text}} NULL,
				data_criacao {{datetime}} DEFAULT {{now}},
				ativo {{bool}} NOT NULL DEFAULT 1
			)`,
			`CREATE INDEX {{idx}}ix_transacoes_data ON {{on}}transacoes(data_transacao)`,
			`CREATE INDEX {{idx}}ix_transacoes_conta ON {{on}}transacoes(conta_id)`,
		},
	},
	{
		Version:     2,
		Description: "Recurring expenses and monthly occurrences",
		Statements: []string{
			`CREATE TABLE {{tbl}}gastos_recorrentes (
				id {{pk}},
				nome {{str}}(100) NOT NULL,
				valor {{money}} NOT NULL,
				dia_vencimento INT NOT NULL,
				periodicidade {{str}}(20) NOT NULL DEFAULT 'Mensal',
				categoria_id INT NULL REFERENCES {{ref}}categorias(id),
				conta_id INT NULL REFERENCES {{ref}}conta_dimensao(id),
				meio_pagamento_id INT NULL REFERENCES {{ref}}meios_pagamento(id),
				data_inicio DATE NOT NULL,
				data_fim DATE NULL,
				gerar_transacao {{bool}} NOT NULL DEFAULT 0,
				observacao {{text}} NULL,
				data_criacao {{datetime}} DEFAULT {{now}},
				ativo {{bool}} NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE {{tbl}}pagamentos_recorrentes (
				id {{pk}},
				gasto_recorrente_id INT NOT NULL REFERENCES {{ref}}gastos_recorrentes(id),
				ano INT NOT NULL,
				mes INT NOT NULL,
				data_pagamento DATE NULL,
				valor_pago {{money}} NULL,
				transacao_id INT NULL REFERENCES {{ref}}transacoes(id)
			)`,
			`CREATE UNIQUE INDEX {{idx}}ux_pagamentos_mes ON {{on}}pagamentos_recorrentes(gasto_recorrente_id, ano, mes)`,
		},
	},
	{
		Version:     3,
		Description: "Transfer pairing columns",
		Statements: []string{
			`ALTER TABLE {{tbl}}transacoes {{add}} id_transferencia {{str}}(36) NULL`,
			`ALTER TABLE {{tbl}}transacoes {{add}} conta_destino_id INT NULL REFERENCES {{ref}}conta_dimensao(id)`,
			`ALTER TABLE {{tbl}}transacoes {{add}} lado_transferencia CHAR(1) NULL`,
			`CREATE INDEX {{idx}}ix_transacoes_transferencia ON {{on}}transacoes(id_transferencia)`,
		},
	},
	{
		Version:     4,
		Description: "External ids for imported statements",
		Statements: []string{
			`ALTER TABLE {{tbl}}transacoes {{add}} id_externo {{str}}(255) NULL`,
			`CREATE INDEX {{idx}}ix_transacoes_externo ON {{on}}transacoes(conta_id, id_externo)`,
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion, creating it first
// if needed. Each migration runs in its own database transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if err := s.dialect.EnsureSchema(ctx, s.db, s.schema); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.VersionTable(s.schema)); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		err := s.withTx(ctx, func(c conn) error {
			for _, stmt := range migration.Statements {
				if _, err := c.exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return s.setVersion(ctx, c, migration.Version)
		})
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"schema", s.schema,
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}

// SchemaVersion returns the applied migration version, 0 for a new schema.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.read(ctx, func(c conn) error {
		return c.queryRow(ctx, `SELECT versao FROM {{tbl}}schema_versao`).Scan(&version)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

func (s *Store) setVersion(ctx context.Context, c conn, version int) error {
	if _, err := c.exec(ctx, `DELETE FROM {{tbl}}schema_versao`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	if _, err := c.exec(ctx, `INSERT INTO {{tbl}}schema_versao (versao) VALUES (?)`, version); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}
