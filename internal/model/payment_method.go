package model

import "time"

// PaymentMethod is a way of paying (card, pix, cash), optionally tied to the
// account it draws from.
type PaymentMethod struct {
	CreatedAt   time.Time
	AccountID   *int64
	Name        string
	Type        string
	Description string
	ID          int64
	Active      bool
}
