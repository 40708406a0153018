package main

import (
	"testing"
	"time"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "1234.56", expected: "1234.56"},
		{input: "1.234,56", expected: "1234.56"},
		{input: "R$ 50,00", expected: "50"},
		{input: " 7 ", expected: "7"},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), got.String())
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, model.Date(2024, time.February, 29), got)

	got, err = parseDate("")
	require.NoError(t, err)
	assert.Equal(t, model.DateOf(time.Now()), got)

	_, err = parseDate("29/02/2024")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestParseMonth(t *testing.T) {
	got, err := parseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, model.YearMonth{Year: 2024, Month: time.March}, got)

	_, err = parseMonth("março")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseID(bad)
		require.ErrorIs(t, err, common.ErrInvalidInput, bad)
	}
}
