package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRender(t *testing.T) {
	table := &Table{
		Headers:    []string{"Nome", "Saldo"},
		RightAlign: map[int]bool{1: true},
	}
	table.AddRow("Corrente", "R$1.000,00")
	table.AddRow("Poupança", "R$50,00")

	lines := strings.Split(table.Render(), "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "Nome"))
	assert.True(t, strings.HasSuffix(lines[0], "Saldo"))
	assert.Equal(t, "Corrente  R$1.000,00", lines[1])
	assert.Equal(t, "Poupança     R$50,00", lines[2])
}

func TestTableShortRows(t *testing.T) {
	table := &Table{Headers: []string{"ID", "Nome", "Nível"}}
	table.AddRow("1", "Alimentação")

	lines := strings.Split(table.Render(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1   Alimentação", lines[1])
}
