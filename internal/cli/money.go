package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the ISO code every ledger amount is kept in.
const Currency = "BRL"

// FormatMoney renders an amount in reais, e.g. "R$1.234,56".
func FormatMoney(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	return money.New(cents, Currency).Display()
}

// FormatSignedMoney renders amount colored by its sign, with an explicit "+"
// on positive values.
func FormatSignedMoney(amount decimal.Decimal) string {
	switch {
	case amount.IsPositive():
		return PositiveStyle.Render("+" + FormatMoney(amount))
	case amount.IsNegative():
		return NegativeStyle.Render(FormatMoney(amount))
	}
	return FormatMoney(amount)
}
