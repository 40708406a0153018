package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{amount: "0", expected: "R$0,00"},
		{amount: "1234.56", expected: "R$1.234,56"},
		{amount: "1000000", expected: "R$1.000.000,00"},
		{amount: "-19.9", expected: "-R$19,90"},
		{amount: "0.005", expected: "R$0,01"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoney(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestFormatSignedMoney(t *testing.T) {
	assert.Contains(t, FormatSignedMoney(decimal.NewFromInt(10)), "+R$10,00")
	assert.Contains(t, FormatSignedMoney(decimal.NewFromInt(-10)), "-R$10,00")
	assert.Equal(t, "R$0,00", FormatSignedMoney(decimal.Zero))
}
