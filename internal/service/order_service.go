package service

import (
	"context"
	"errors"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	"gorm.io/gorm"
)

// OrderService is the read side of completed checkouts.
type OrderService interface {
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetUserOrder(ctx context.Context, orderID uint, userID string) (*models.Order, error)
}

type orderService struct {
	orderRepo  repository.OrderRepository
	ticketRepo repository.TicketRepository
}

func NewOrderService(orderRepo repository.OrderRepository, ticketRepo repository.TicketRepository) OrderService {
	return &orderService{orderRepo: orderRepo, ticketRepo: ticketRepo}
}

func (s *orderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orderRepo.FindByUser(ctx, userID)
}

// GetUserOrder returns the order with its tickets, owner-checked.
func (s *orderService) GetUserOrder(ctx context.Context, orderID uint, userID string) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOwner
	}

	tickets, err := s.ticketRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Tickets = tickets
	return order, nil
}
