package models

import "time"

// Ticket is one admission unit minted during checkout. PurchaseKey is
// the purchase credential, QRCode the payload encoded in the ticket's
// QR image; both carry DB unique indexes. Used flips to true exactly
// once, on the first successful scan, and never back.
type Ticket struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	OfferID     uint      `gorm:"not null;index" json:"offer_id"`
	PurchaseKey string    `gorm:"not null;uniqueIndex" json:"purchase_key"`
	QRCode      string    `gorm:"not null;uniqueIndex" json:"qr_code"`
	Used        bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt   time.Time `json:"created_at"`

	Offer *Offer `gorm:"foreignKey:OfferID" json:"offer,omitempty"`
}
