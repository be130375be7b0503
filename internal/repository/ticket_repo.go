package repository

import (
	"context"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error
	FindByID(ctx context.Context, id uint) (*models.Ticket, error)
	FindByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error)
	FindByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	FindByOrder(ctx context.Context, orderID uint) ([]models.Ticket, error)
	CountByOffer(ctx context.Context, offerID uint) (int64, error)
	// MarkUsed flips used to true for the given code only when it is
	// still false, returning the number of rows changed. Zero means the
	// ticket was already redeemed (or the code is unknown).
	MarkUsed(ctx context.Context, qrCode string) (int64, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	return tx.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Preload("Offer").First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Where("qr_code = ?", qrCode).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).Preload("Offer").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) FindByOrder(ctx context.Context, orderID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).Preload("Offer").
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) CountByOffer(ctx context.Context, offerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("offer_id = ?", offerID).
		Count(&count).Error
	return count, err
}

func (r *ticketRepository) MarkUsed(ctx context.Context, qrCode string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("qr_code = ? AND used = false", qrCode).
		Update("used", true)
	return res.RowsAffected, res.Error
}
