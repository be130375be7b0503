package repository

import (
	"context"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReserveResult reports the outcome of one stock reservation. When
// Granted is false, Available carries the stock left at the time the
// reservation was refused.
type ReserveResult struct {
	Granted   bool
	Available int
}

type OfferRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Offer, error)
	// Reserve atomically decrements the offer's stock by qty when at
	// least qty units are available. All-or-nothing: it never grants a
	// partial quantity.
	Reserve(ctx context.Context, offerID uint, qty int) (ReserveResult, error)
	// Release returns a previously reserved quantity to stock. Only
	// called when a checkout fails before its payment commits.
	Release(ctx context.Context, offerID uint, qty int) error
	Upsert(ctx context.Context, offer *models.Offer) error
	UpsertEvent(ctx context.Context, event *models.Event) error
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) FindByID(ctx context.Context, id uint) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).First(&offer, id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// Reserve runs a single conditional UPDATE so concurrent reservations
// against the same offer serialize on the row; the stock >= qty guard
// in the WHERE clause makes oversell impossible regardless of
// interleaving.
func (r *offerRepository) Reserve(ctx context.Context, offerID uint, qty int) (ReserveResult, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND stock >= ?", offerID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return ReserveResult{}, res.Error
	}

	if res.RowsAffected == 0 {
		// Refused: report how much is actually left. The offer may
		// also simply not exist, which First surfaces as not found.
		var offer models.Offer
		if err := r.db.WithContext(ctx).First(&offer, offerID).Error; err != nil {
			return ReserveResult{}, err
		}
		return ReserveResult{Granted: false, Available: offer.Stock}, nil
	}

	var offer models.Offer
	if err := r.db.WithContext(ctx).First(&offer, offerID).Error; err != nil {
		return ReserveResult{}, err
	}
	return ReserveResult{Granted: true, Available: offer.Stock}, nil
}

func (r *offerRepository) Release(ctx context.Context, offerID uint, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ?", offerID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *offerRepository) Upsert(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "name", "price", "stock", "updated_at"}),
	}).Create(offer).Error
}

func (r *offerRepository) UpsertEvent(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "venue", "starts_at", "updated_at"}),
	}).Create(event).Error
}
