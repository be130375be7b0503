package repository

import (
	"context"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"gorm.io/gorm"
)

type CartRepository interface {
	Create(ctx context.Context, cart *models.Cart) error
	Save(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
	Delete(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
	FindByID(ctx context.Context, id uint) (*models.Cart, error)
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	FindGuestBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	// ForUpdate variants acquire a row-level lock within the given
	// transaction: the merge pins both carts for its whole run, the
	// checkout pins its cart so a racing resubmission serializes
	// behind it.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Cart, error)
	FindByUserForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.Cart, error)
	FindGuestBySessionForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Cart, error)

	FindItemByID(ctx context.Context, itemID uint) (*models.CartItem, error)
	FindItem(ctx context.Context, cartID, offerID uint) (*models.CartItem, error)
	SaveItem(ctx context.Context, tx *gorm.DB, item *models.CartItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, item *models.CartItem) error
	ClearItems(ctx context.Context, tx *gorm.DB, cartID uint) error

	// Transaction runs fn inside one durable transaction; the tx it
	// hands out is what the tx-taking methods above expect. A nil tx
	// on those methods means "outside any transaction".
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *cartRepository) dbOr(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *cartRepository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *cartRepository) Save(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	return r.dbOr(tx).WithContext(ctx).Save(cart).Error
}

func (r *cartRepository) Delete(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	if err := r.dbOr(tx).WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.dbOr(tx).WithContext(ctx).Delete(cart).Error
}

func (r *cartRepository) FindByID(ctx context.Context, id uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Preload("Items").First(&cart, id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindGuestBySession returns the not-yet-adopted cart for the session.
// The unique index on session_id allows at most one live guest cart
// per token; adoption clears the session id and frees the token.
func (r *cartRepository) FindGuestBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Preload("Items").
		Where("session_id = ? AND user_id IS NULL", sessionID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		First(&cart, id).Error
	if err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByUserForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindGuestBySessionForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		Where("session_id = ? AND user_id IS NULL", sessionID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindItemByID(ctx context.Context, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, offerID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND offer_id = ?", cartID, offerID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) SaveItem(ctx context.Context, tx *gorm.DB, item *models.CartItem) error {
	return r.dbOr(tx).WithContext(ctx).Save(item).Error
}

func (r *cartRepository) DeleteItem(ctx context.Context, tx *gorm.DB, item *models.CartItem) error {
	return r.dbOr(tx).WithContext(ctx).Delete(item).Error
}

func (r *cartRepository) ClearItems(ctx context.Context, tx *gorm.DB, cartID uint) error {
	return r.dbOr(tx).WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
