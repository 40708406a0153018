// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// Kind classifies categories and transactions by the direction of money.
type Kind string

// Kind constants, stored as single letters in the tipo columns.
const (
	KindReceipt  Kind = "R"
	KindExpense  Kind = "D"
	KindTransfer Kind = "T"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindReceipt, KindExpense, KindTransfer:
		return true
	}
	return false
}

// Opposite returns the kind that undoes k. Transfers are their own opposite;
// the transfer side carries the direction instead.
func (k Kind) Opposite() Kind {
	switch k {
	case KindReceipt:
		return KindExpense
	case KindExpense:
		return KindReceipt
	default:
		return k
	}
}

// Label returns the display name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindReceipt:
		return "Receita"
	case KindExpense:
		return "Despesa"
	case KindTransfer:
		return "Transferência"
	default:
		return string(k)
	}
}

// ParseKind accepts the stored letter or a Portuguese/English name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "receita", "receipt", "income":
		return KindReceipt, nil
	case "d", "despesa", "expense":
		return KindExpense, nil
	case "t", "transferencia", "transferência", "transfer":
		return KindTransfer, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}
