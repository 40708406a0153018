package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/financas/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness runs the CLI against a fresh SQLite directory.
type harness struct {
	t   *testing.T
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", dir)
	for _, key := range []string{"DB_SERVER", "DB_DATABASE", "DB_USERNAME", "DB_PASSWORD", "SQL_CONNECTION_STRING", "ENVIRONMENT"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	return &harness{t: t, dir: dir}
}

func (h *harness) run(input string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), args, strings.NewReader(input), &out, &out)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err, out)
	return out
}

func TestRootCommands(t *testing.T) {
	root := newApp().rootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"migrate", "categories", "accounts", "payment-methods", "transactions",
		"recurring", "recalculate", "clean", "copy", "import-ofx", "env", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"env", "config", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("version"), "financas dev")
}

func TestEnv(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("env")
	assert.Contains(t, out, "financas_pessoais")
	assert.Contains(t, out, "sqlite3")
	assert.Contains(t, out, h.dir)

	out = h.mustRun("--env", "dev", "env")
	assert.Contains(t, out, "financas_pessoais_dev")

	_, err := h.run("", "--env", "staging", "env")
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestEnvMasksPassword(t *testing.T) {
	h := newHarness(t)
	t.Setenv("DB_DRIVER", "ODBC Driver 17 for SQL Server")
	t.Setenv("DB_SERVER", "db.example.com")
	t.Setenv("DB_DATABASE", "financas")
	t.Setenv("DB_USERNAME", "app")
	t.Setenv("DB_PASSWORD", "s3cret")

	out := h.mustRun("env")
	assert.Contains(t, out, "sqlserver")
	assert.Contains(t, out, "db.example.com")
	assert.NotContains(t, out, "s3cret")
}

func TestMigrateBoth(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("migrate", "--env", "both")
	assert.Contains(t, out, "prod (financas_pessoais) at schema version 4 of 4")
	assert.Contains(t, out, "dev (financas_pessoais_dev) at schema version 4 of 4")

	_, err := h.run("", "accounts", "list", "--env", "both")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestLedgerFlow(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("accounts", "add", "Corrente", "--initial", "1000", "--institution", "Banco do Brasil"),
		`Added account "Corrente" (id 1) with balance R$1.000,00`)
	h.mustRun("categories", "add", "Salário", "--kind", "R")
	h.mustRun("categories", "add", "Alimentação", "--kind", "D")
	assert.Contains(t, h.mustRun("categories", "add", "Supermercado", "--parent", "2"), "level 2")

	h.mustRun("transactions", "add", "--description", "Salário", "--amount", "200", "--kind", "R",
		"--account", "1", "--category", "1", "--date", "2024-03-05")
	h.mustRun("transactions", "add", "--description", "Mercado", "--amount", "50,00",
		"--account", "1", "--category", "3", "--date", "2024-03-10")

	assert.Contains(t, h.mustRun("accounts", "total"), "R$1.150,00")

	out := h.mustRun("transactions", "list", "--account", "1")
	assert.Contains(t, out, "Mercado")
	assert.Contains(t, out, "-R$50,00")

	out = h.mustRun("transactions", "summary", "--from", "2024-03-01", "--to", "2024-03-31")
	assert.Contains(t, out, "R$200,00")
	assert.Contains(t, out, "R$50,00")
	assert.Contains(t, out, "Transactions: 2")

	assert.Contains(t, h.mustRun("categories", "path", "3"), "Alimentação > Supermercado")
	assert.Contains(t, h.mustRun("categories", "tree", "--kind", "D"), "  Supermercado")

	// Moving the expense to a new amount shifts the balance by the difference.
	h.mustRun("transactions", "update", "2", "--amount", "80")
	assert.Contains(t, h.mustRun("accounts", "total"), "R$1.120,00")

	// Raising the initial balance moves the current one as well.
	h.mustRun("accounts", "update", "1", "--initial", "1100")
	assert.Contains(t, h.mustRun("accounts", "list"), "R$1.220,00")
}

func TestTransferAndDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun("accounts", "add", "Corrente", "--initial", "100")
	h.mustRun("accounts", "add", "Poupança", "--initial", "0", "--type", "Poupança")

	assert.Contains(t, h.mustRun("transactions", "transfer", "--from-account", "1", "--to-account", "2", "--amount", "40"),
		"R$40,00 from account 1 to account 2")

	out := h.mustRun("accounts", "list")
	assert.Contains(t, out, "R$60,00")
	assert.Contains(t, out, "R$40,00")

	assert.Contains(t, h.mustRun("transactions", "show", "2"), "from account 1 (leg 1) to account 2 (leg 2)")

	// Declining the prompt keeps the transfer.
	out, err := h.run("n\n", "transactions", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, h.mustRun("accounts", "list"), "R$60,00")

	// Deleting the credit leg removes both.
	out, err = h.run("y\n", "transactions", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted transaction 2")

	out = h.mustRun("accounts", "list")
	assert.Contains(t, out, "R$100,00")
	assert.Contains(t, out, "R$0,00")

	_, err = h.run("", "transactions", "update", "1", "--amount", "10")
	require.ErrorIs(t, err, common.ErrTransferLeg)
}

func TestPaymentMethods(t *testing.T) {
	h := newHarness(t)
	h.mustRun("accounts", "add", "Corrente")

	assert.Contains(t, h.mustRun("payment-methods", "add", "Nubank", "--type", "Cartão de Crédito", "--account", "1"), "(id 1)")
	assert.Contains(t, h.mustRun("pm", "list"), "Nubank")

	h.mustRun("payment-methods", "update", "1", "--name", "Nubank Roxinho", "--account", "0")
	out := h.mustRun("payment-methods", "list")
	assert.Contains(t, out, "Nubank Roxinho")

	h.mustRun("payment-methods", "delete", "1", "--force")
	assert.Contains(t, h.mustRun("payment-methods", "list"), "No payment methods found")
	assert.Contains(t, h.mustRun("payment-methods", "list", "--all"), "Nubank Roxinho")
}

func TestRecurringFlow(t *testing.T) {
	h := newHarness(t)
	h.mustRun("accounts", "add", "Corrente", "--initial", "1000")
	h.mustRun("recurring", "add", "Aluguel", "--amount", "800", "--due-day", "10", "--start", "2024-01-01", "--account", "1")

	out := h.mustRun("recurring", "pending", "2024-03")
	assert.Contains(t, out, "Aluguel")
	assert.Contains(t, out, "2024-03-10")

	assert.Contains(t, h.mustRun("recurring", "pay", "1", "2024-03", "--date", "2024-03-10"), "(transaction 1)")
	assert.Contains(t, h.mustRun("accounts", "total"), "R$200,00")
	assert.Contains(t, h.mustRun("recurring", "status", "1", "2024-03"), "paid")
	assert.Contains(t, h.mustRun("recurring", "pending", "2024-03"), "Nothing pending in 2024-03")

	h.mustRun("recurring", "unpay", "1", "2024-03")
	assert.Contains(t, h.mustRun("accounts", "total"), "R$1.000,00")
	assert.Contains(t, h.mustRun("recurring", "pending", "2024-03"), "Aluguel")

	out = h.mustRun("recurring", "status", "1")
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "2024-12")

	assert.Contains(t, h.mustRun("recurring", "pay", "1", "2024-04", "--no-transaction", "--amount", "750"), "R$750,00")
	assert.Contains(t, h.mustRun("accounts", "total"), "R$1.000,00")

	_, err := h.run("", "recurring", "pay", "1", "2024-13")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRecalculateAndClean(t *testing.T) {
	h := newHarness(t)
	h.mustRun("accounts", "add", "Corrente", "--initial", "10")
	h.mustRun("transactions", "add", "--description", "Café", "--amount", "4", "--account", "1")

	assert.Contains(t, h.mustRun("recalculate", "--dry-run"), "All balances match")

	out, err := h.run("confirmar\n", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, h.mustRun("accounts", "list"), "Corrente")

	out, err = h.run("CONFIRMAR\n", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleaned prod")
	assert.Contains(t, h.mustRun("accounts", "list"), "No accounts found")
}

func TestCopy(t *testing.T) {
	h := newHarness(t)
	h.mustRun("accounts", "add", "Corrente", "--initial", "10")
	h.mustRun("categories", "add", "Moradia", "--kind", "D")
	h.mustRun("transactions", "add", "--description", "Luz", "--amount", "3", "--account", "1", "--category", "1")

	out := h.mustRun("copy", "--force")
	assert.Contains(t, out, "Copied prod into dev")
	assert.Contains(t, out, "transacoes")

	out = h.mustRun("--env", "dev", "accounts", "list")
	assert.Contains(t, out, "Corrente")
	assert.Contains(t, out, "R$7,00")

	out, err := h.run("n\n", "copy", "--from", "dev", "--to", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	_, err = h.run("", "copy", "--from", "dev", "--to", "dev", "--force")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

const importOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0001
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101
<DTEND>20240131
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115
<TRNAMT>-25.50
<FITID>2024011501
<NAME>PADARIA REAL
</STMTTRN>
<STMTTRN>
<TRNTYPE>FEE
<DTPOSTED>20240130
<TRNAMT>-19.90
<FITID>2024013001
<NAME>TARIFA PACOTE
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestImportOFX(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "extrato.ofx")
	require.NoError(t, os.WriteFile(path, []byte(importOFX), 0o600))

	h.mustRun("accounts", "add", "Corrente", "--initial", "100")

	out := h.mustRun("import-ofx", "--account", "1", "--dry-run", path)
	assert.Contains(t, out, "2024011501")
	assert.Contains(t, out, "Dry run complete")
	assert.Contains(t, h.mustRun("accounts", "total"), "R$100,00")

	out = h.mustRun("import-ofx", "--account", "1", path)
	assert.Contains(t, out, "Imported 2 transactions, skipped 0 already imported, created 1 categories")
	assert.Contains(t, h.mustRun("accounts", "total"), "R$54,60")
	assert.Contains(t, h.mustRun("categories", "list"), "Tarifas Bancárias")

	out = h.mustRun("import-ofx", "--account", "1", filepath.Join(filepath.Dir(path), "*.ofx"))
	assert.Contains(t, out, "Imported 0 transactions, skipped 2 already imported")

	_, err := h.run("", "import-ofx", "--account", "1", filepath.Join(t.TempDir(), "missing.ofx"))
	require.Error(t, err)

	_, err = h.run("", "import-ofx", "--account", "9", path)
	require.ErrorIs(t, err, common.ErrNotFound)
}
