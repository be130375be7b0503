package service

import (
	"context"
	"errors"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrOfferNotFound   = errors.New("offer not found")
	ErrNotOwner        = errors.New("not the owner of this resource")
	ErrMissingIdentity = errors.New("a user or session identity is required")
)

// CartService owns carts and their items. Every method takes both the
// guest session token and the user identity; a non-empty userID always
// takes precedence.
type CartService interface {
	GetOrCreateCart(ctx context.Context, sessionID, userID string) (*models.Cart, error)
	GetCart(ctx context.Context, sessionID, userID string) (*models.Cart, error)
	AddItem(ctx context.Context, sessionID, userID string, offerID uint, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, sessionID, userID string, itemID uint, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, sessionID, userID string, itemID uint) (*models.Cart, error)
	MergeCarts(ctx context.Context, sessionID, userID string) (*models.Cart, error)
}

type cartService struct {
	cartRepo  repository.CartRepository
	offerRepo repository.OfferRepository
}

func NewCartService(cartRepo repository.CartRepository, offerRepo repository.OfferRepository) CartService {
	return &cartService{cartRepo: cartRepo, offerRepo: offerRepo}
}

func (s *cartService) GetOrCreateCart(ctx context.Context, sessionID, userID string) (*models.Cart, error) {
	if userID != "" {
		cart, err := s.cartRepo.FindByUser(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// No user cart yet: adopt a guest cart left under the session
		// token, if there is one. Adoption clears the session id so the
		// cart has exactly one owner classification.
		if sessionID != "" {
			guest, err := s.cartRepo.FindGuestBySession(ctx, sessionID)
			if err == nil {
				guest.UserID = &userID
				guest.SessionID = nil
				if err := s.cartRepo.Save(ctx, nil, guest); err != nil {
					return nil, err
				}
				return guest, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}

		cart = &models.Cart{UserID: &userID}
		if err := s.cartRepo.Create(ctx, cart); err != nil {
			return nil, err
		}
		return cart, nil
	}

	if sessionID == "" {
		return nil, ErrMissingIdentity
	}

	cart, err := s.cartRepo.FindGuestBySession(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &models.Cart{SessionID: &sessionID}
	if err := s.cartRepo.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, sessionID, userID string) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	switch {
	case userID != "":
		cart, err = s.cartRepo.FindByUser(ctx, userID)
	case sessionID != "":
		cart, err = s.cartRepo.FindGuestBySession(ctx, sessionID)
	default:
		return nil, ErrMissingIdentity
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, sessionID, userID string, offerID uint, quantity int) (*models.Cart, error) {
	cart, err := s.GetOrCreateCart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.offerRepo.FindByID(ctx, offerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}

	item, err := s.cartRepo.FindItem(ctx, cart.ID, offerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = &models.CartItem{CartID: cart.ID, OfferID: offerID}
	} else if err != nil {
		return nil, err
	}

	// Re-adding the same offer sums quantities instead of creating a
	// second row.
	item.Quantity += quantity
	if err := s.cartRepo.SaveItem(ctx, nil, item); err != nil {
		return nil, err
	}

	return s.cartRepo.FindByID(ctx, cart.ID)
}

func (s *cartService) UpdateItem(ctx context.Context, sessionID, userID string, itemID uint, quantity int) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.FindItemByID(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, ErrNotOwner
	}

	if quantity <= 0 {
		if err := s.cartRepo.DeleteItem(ctx, nil, item); err != nil {
			return nil, err
		}
	} else {
		item.Quantity = quantity
		if err := s.cartRepo.SaveItem(ctx, nil, item); err != nil {
			return nil, err
		}
	}

	return s.cartRepo.FindByID(ctx, cart.ID)
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, userID string, itemID uint) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.FindItemByID(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, ErrNotOwner
	}

	if err := s.cartRepo.DeleteItem(ctx, nil, item); err != nil {
		return nil, err
	}

	return s.cartRepo.FindByID(ctx, cart.ID)
}

// MergeCarts folds the session's guest cart into the user's cart after
// login. Both cart rows stay locked for the whole merge so a
// concurrent AddItem on the guest cart cannot slip in between the copy
// and the delete. Invoked twice with the same token, the second call
// finds no guest cart left and is a no-op.
func (s *cartService) MergeCarts(ctx context.Context, sessionID, userID string) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrMissingIdentity
	}

	var merged *models.Cart

	err := s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
		userCart, err := s.cartRepo.FindByUserForUpdate(ctx, tx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			// No user cart yet: adopting the guest cart is the whole
			// merge.
			if sessionID != "" {
				guest, gerr := s.cartRepo.FindGuestBySessionForUpdate(ctx, tx, sessionID)
				if gerr == nil {
					guest.UserID = &userID
					guest.SessionID = nil
					if err := s.cartRepo.Save(ctx, tx, guest); err != nil {
						return err
					}
					merged = guest
					return nil
				}
				if !errors.Is(gerr, gorm.ErrRecordNotFound) {
					return gerr
				}
			}

			userCart = &models.Cart{UserID: &userID}
			if err := s.cartRepo.Save(ctx, tx, userCart); err != nil {
				return err
			}
			merged = userCart
			return nil
		}

		if sessionID == "" {
			merged = userCart
			return nil
		}

		guest, err := s.cartRepo.FindGuestBySessionForUpdate(ctx, tx, sessionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			merged = userCart
			return nil
		}
		if err != nil {
			return err
		}

		for _, gi := range guest.Items {
			existing := findItemByOffer(userCart.Items, gi.OfferID)
			if existing != nil {
				existing.Quantity += gi.Quantity
				if err := s.cartRepo.SaveItem(ctx, tx, existing); err != nil {
					return err
				}
				continue
			}
			// Copy, not reparent: the guest row dies with its cart.
			copied := &models.CartItem{
				CartID:   userCart.ID,
				OfferID:  gi.OfferID,
				Quantity: gi.Quantity,
			}
			if err := s.cartRepo.SaveItem(ctx, tx, copied); err != nil {
				return err
			}
			userCart.Items = append(userCart.Items, *copied)
		}

		if err := s.cartRepo.Delete(ctx, tx, guest); err != nil {
			return err
		}

		merged = userCart
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.cartRepo.FindByID(ctx, merged.ID)
}

func findItemByOffer(items []models.CartItem, offerID uint) *models.CartItem {
	for i := range items {
		if items[i].OfferID == offerID {
			return &items[i]
		}
	}
	return nil
}
