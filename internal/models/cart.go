package models

import "time"

// Cart belongs to either a guest session (SessionID set, UserID empty)
// or a user (UserID set). Adoption at login moves a guest cart to its
// user by setting UserID; a DB CHECK constraint rules out the case
// where neither is set.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID *string   `gorm:"uniqueIndex" json:"session_id,omitempty"`
	UserID    *string   `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

// IsGuest reports whether the cart has not been adopted by a user yet.
func (c *Cart) IsGuest() bool {
	return c.UserID == nil
}

// OwnedBy reports whether the cart belongs to the given user.
func (c *Cart) OwnedBy(userID string) bool {
	return c.UserID != nil && *c.UserID == userID
}

// CartItem holds the quantity of one offer in one cart. The unique
// (cart_id, offer_id) index keeps re-adds as increments, never
// duplicate rows.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_offer" json:"cart_id"`
	OfferID   uint      `gorm:"not null;uniqueIndex:idx_cart_offer" json:"offer_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Offer *Offer `gorm:"foreignKey:OfferID" json:"offer,omitempty"`
}
