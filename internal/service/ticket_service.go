package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrOrderNotFound  = errors.New("order not found")
)

// ScanStatus is the outcome of redeeming a QR code. Already-used is a
// defined negative outcome, not an error.
type ScanStatus string

const (
	ScanScanned     ScanStatus = "SCANNED"
	ScanAlreadyUsed ScanStatus = "ALREADY_USED"
)

// TicketIssuer mints tickets during checkout. The purchase key comes
// from a v4 UUID (crypto/rand underneath) and the QR payload is
// derived from the owner and the purchase key; the DB unique indexes
// are the uniqueness authority, and a violation there fails the insert
// loudly instead of retrying with a weaker identifier.
type TicketIssuer interface {
	Issue(ctx context.Context, tx *gorm.DB, userID string, orderID, offerID uint) (*models.Ticket, error)
}

type ticketIssuer struct {
	ticketRepo repository.TicketRepository
}

func NewTicketIssuer(ticketRepo repository.TicketRepository) TicketIssuer {
	return &ticketIssuer{ticketRepo: ticketRepo}
}

func (i *ticketIssuer) Issue(ctx context.Context, tx *gorm.DB, userID string, orderID, offerID uint) (*models.Ticket, error) {
	purchaseKey := uuid.NewString()
	ticket := &models.Ticket{
		UserID:      userID,
		OrderID:     orderID,
		OfferID:     offerID,
		PurchaseKey: purchaseKey,
		QRCode:      deriveQRCode(userID, purchaseKey),
	}
	if err := i.ticketRepo.Create(ctx, tx, ticket); err != nil {
		return nil, fmt.Errorf("issue ticket for offer %d: %w", offerID, err)
	}
	return ticket, nil
}

func deriveQRCode(userID, purchaseKey string) string {
	sum := sha256.Sum256([]byte(userID + ":" + purchaseKey))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// TicketService covers everything after issuance: owner-scoped reads
// and the scan state machine.
type TicketService interface {
	Scan(ctx context.Context, qrCode string) (ScanStatus, error)
	ListUserTickets(ctx context.Context, userID string) ([]models.Ticket, error)
	GetUserTicket(ctx context.Context, ticketID uint, userID string) (*models.Ticket, error)
	SoldCount(ctx context.Context, offerID uint) (int64, error)
}

type ticketService struct {
	ticketRepo repository.TicketRepository
	publisher  EventPublisher
}

func NewTicketService(ticketRepo repository.TicketRepository, publisher EventPublisher) TicketService {
	return &ticketService{ticketRepo: ticketRepo, publisher: publisher}
}

// Scan transitions a ticket from issued to used exactly once. The
// conditional UPDATE serializes racing scanners on the ticket row:
// exactly one of them sees SCANNED, the rest ALREADY_USED.
func (s *ticketService) Scan(ctx context.Context, qrCode string) (ScanStatus, error) {
	rows, err := s.ticketRepo.MarkUsed(ctx, qrCode)
	if err != nil {
		return "", err
	}

	if rows == 0 {
		// Nothing flipped: either the code is unknown or the ticket
		// was already redeemed.
		if _, err := s.ticketRepo.FindByQRCode(ctx, qrCode); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrTicketNotFound
			}
			return "", err
		}
		return ScanAlreadyUsed, nil
	}

	if s.publisher != nil {
		if perr := s.publisher.Publish("ticket.scanned", map[string]string{"qr_code": qrCode}); perr != nil {
			log.Printf("[TicketScan] failed to publish ticket.scanned: %v", perr)
		}
	}
	return ScanScanned, nil
}

func (s *ticketService) ListUserTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	return s.ticketRepo.FindByUser(ctx, userID)
}

func (s *ticketService) GetUserTicket(ctx context.Context, ticketID uint, userID string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, ErrNotOwner
	}
	return ticket, nil
}

func (s *ticketService) SoldCount(ctx context.Context, offerID uint) (int64, error) {
	return s.ticketRepo.CountByOffer(ctx, offerID)
}
