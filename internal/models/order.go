package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the immutable record of one successful checkout. Guests
// cannot check out, so UserID is always set.
type Order struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    string          `gorm:"not null;index" json:"user_id"`
	Total     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	CreatedAt time.Time       `json:"created_at"`

	Tickets []Ticket `gorm:"foreignKey:OrderID" json:"tickets,omitempty"`
}
