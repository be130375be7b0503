package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a read-only mirror of the catalog service's events, kept in
// sync over RabbitMQ. The checkout service never mutates it.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `gorm:"not null" json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Offer is a purchasable ticket type for one event. Stock is the only
// field mutated by this service, and only through OfferRepository
// Reserve/Release.
type Offer struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	EventID   uint            `gorm:"not null;index" json:"event_id"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock     int             `gorm:"not null" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}
