package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrGuestCheckout = errors.New("guest carts cannot check out")
	ErrEmptyCart     = errors.New("cart is empty")
	// ErrIssuanceFailed marks the one genuinely bad failure mode: the
	// charge succeeded but the local order/ticket writes did not.
	ErrIssuanceFailed = errors.New("ticket issuance failed after successful charge")
)

// EventPublisher emits this service's domain events. Publishing is
// best effort: a failure is logged and never surfaces to the caller.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// CheckoutResult is the response shape of one checkout attempt.
// Insufficient stock and payment declines come back here with OK=false;
// they are expected business outcomes, not errors.
type CheckoutResult struct {
	OK              bool            `json:"ok"`
	Total           decimal.Decimal `json:"total"`
	Errors          []string        `json:"errors"`
	RedemptionCodes []string        `json:"redemption_codes"`
}

type CheckoutService interface {
	Checkout(ctx context.Context, cartID uint, userID, paymentToken string) (*CheckoutResult, error)
}

type checkoutService struct {
	cartRepo       repository.CartRepository
	offerRepo      repository.OfferRepository
	orderRepo      repository.OrderRepository
	issuer         TicketIssuer
	gateway        PaymentGateway
	publisher      EventPublisher
	paymentTimeout time.Duration
}

func NewCheckoutService(
	cartRepo repository.CartRepository,
	offerRepo repository.OfferRepository,
	orderRepo repository.OrderRepository,
	issuer TicketIssuer,
	gateway PaymentGateway,
	publisher EventPublisher,
	paymentTimeout time.Duration,
) CheckoutService {
	return &checkoutService{
		cartRepo:       cartRepo,
		offerRepo:      offerRepo,
		orderRepo:      orderRepo,
		issuer:         issuer,
		gateway:        gateway,
		publisher:      publisher,
		paymentTimeout: paymentTimeout,
	}
}

type reservation struct {
	offerID uint
	qty     int
}

// Checkout converts a cart into a paid order and tickets. The whole
// attempt runs with the cart row locked FOR UPDATE, so overlapping
// submissions of the same cart serialize: the loser re-reads the cart
// after the winner committed and finds it already cleared. Admission
// control is the stock reservation: each item's quantity is taken with
// one conditional decrement before any money moves. Reservations are
// released only when the attempt fails before the charge commits;
// after a successful charge the decremented stock is the inventory
// transfer and is never restored.
func (s *checkoutService) Checkout(ctx context.Context, cartID uint, userID, paymentToken string) (*CheckoutResult, error) {
	var (
		result  *CheckoutResult
		order   *models.Order
		total   decimal.Decimal
		charged bool
	)

	err := s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cart, err := s.cartRepo.FindByIDForUpdate(ctx, tx, cartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}

		if cart.IsGuest() {
			return ErrGuestCheckout
		}
		if !cart.OwnedBy(userID) {
			return ErrNotOwner
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		// Reserve stock per item, pricing each at this moment. Every
		// shortfall is reported, then everything granted so far is
		// given back. The decrements commit outside this transaction
		// and are compensated explicitly.
		total = decimal.Zero
		var granted []reservation
		var stockErrs []string

		for _, item := range cart.Items {
			offer, err := s.offerRepo.FindByID(ctx, item.OfferID)
			if err != nil {
				s.release(ctx, granted)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: offer %d", ErrOfferNotFound, item.OfferID)
				}
				return err
			}

			total = total.Add(offer.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))

			res, err := s.offerRepo.Reserve(ctx, item.OfferID, item.Quantity)
			if err != nil {
				s.release(ctx, granted)
				return err
			}
			if !res.Granted {
				stockErrs = append(stockErrs, fmt.Sprintf(
					"insufficient stock for %q: requested %d, available %d",
					offer.Name, item.Quantity, res.Available,
				))
				continue
			}
			granted = append(granted, reservation{offerID: item.OfferID, qty: item.Quantity})
		}

		if len(stockErrs) > 0 {
			s.release(ctx, granted)
			result = &CheckoutResult{OK: false, Total: total, Errors: stockErrs, RedemptionCodes: []string{}}
			return nil
		}

		// The charge is the commit point, bounded so the cart lock is
		// held at most for the payment timeout; a timeout is a decline.
		chargeCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
		defer cancel()
		if err := s.gateway.Charge(chargeCtx, total, paymentToken); err != nil {
			s.release(ctx, granted)
			result = &CheckoutResult{
				OK:              false,
				Total:           total,
				Errors:          []string{fmt.Sprintf("payment failed: %v", err)},
				RedemptionCodes: []string{},
			}
			return nil
		}
		charged = true

		// Money has moved. Order, tickets and the cart clear commit
		// together with the lock release; if these writes fail the
		// charge stands and stock stays decremented.
		order = &models.Order{UserID: userID, Total: total}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return err
		}

		var codes []string
		for _, item := range cart.Items {
			for i := 0; i < item.Quantity; i++ {
				ticket, err := s.issuer.Issue(ctx, tx, userID, order.ID, item.OfferID)
				if err != nil {
					return err
				}
				codes = append(codes, ticket.QRCode)
			}
		}

		if err := s.cartRepo.ClearItems(ctx, tx, cart.ID); err != nil {
			return err
		}

		result = &CheckoutResult{OK: true, Total: total, Errors: []string{}, RedemptionCodes: codes}
		return nil
	})
	if err != nil {
		if charged {
			log.Printf("[Checkout] ALERT: charge for cart %d (user %s, total %s) succeeded but local writes failed: %v",
				cartID, userID, total.StringFixed(2), err)
			return nil, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
		}
		return nil, err
	}

	if result.OK && s.publisher != nil {
		if perr := s.publisher.Publish("order.completed", map[string]any{
			"order_id":     order.ID,
			"user_id":      userID,
			"total":        total.StringFixed(2),
			"ticket_count": len(result.RedemptionCodes),
		}); perr != nil {
			log.Printf("[Checkout] failed to publish order.completed for order %d: %v", order.ID, perr)
		}
	}

	return result, nil
}

// release gives reserved quantities back to stock. Compensation must
// not be lost: a failed release is only logged, the remaining ones
// still run.
func (s *checkoutService) release(ctx context.Context, granted []reservation) {
	for _, g := range granted {
		if err := s.offerRepo.Release(ctx, g.offerID, g.qty); err != nil {
			log.Printf("[Checkout] failed to release %d units of offer %d: %v", g.qty, g.offerID, err)
		}
	}
}
