package service

import (
	"context"
	"sync"
	"testing"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- In-memory CartRepository ---

// memCartRepo backs the cart service with maps so the merge and
// ownership logic can be exercised without a database. Transactions
// run one at a time under txMu, standing in for the row locks the real
// repo takes inside a transaction.
type memCartRepo struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	carts      map[uint]*models.Cart
	items      map[uint]*models.CartItem
	nextCartID uint
	nextItemID uint
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{
		carts: make(map[uint]*models.Cart),
		items: make(map[uint]*models.CartItem),
	}
}

func (m *memCartRepo) Create(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCartID++
	cart.ID = m.nextCartID
	stored := *cart
	m.carts[cart.ID] = &stored
	return nil
}

func (m *memCartRepo) Save(ctx context.Context, _ *gorm.DB, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart.ID == 0 {
		m.nextCartID++
		cart.ID = m.nextCartID
	}
	stored := *cart
	m.carts[cart.ID] = &stored
	return nil
}

func (m *memCartRepo) Delete(_ context.Context, _ *gorm.DB, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, it := range m.items {
		if it.CartID == cart.ID {
			delete(m.items, id)
		}
	}
	delete(m.carts, cart.ID)
	return nil
}

func (m *memCartRepo) FindByID(_ context.Context, id uint) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withItems(cart), nil
}

func (m *memCartRepo) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cart := range m.carts {
		if cart.UserID != nil && *cart.UserID == userID {
			return m.withItems(cart), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) FindGuestBySession(_ context.Context, sessionID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cart := range m.carts {
		if cart.UserID == nil && cart.SessionID != nil && *cart.SessionID == sessionID {
			return m.withItems(cart), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uint) (*models.Cart, error) {
	return m.FindByID(ctx, id)
}

func (m *memCartRepo) FindByUserForUpdate(ctx context.Context, _ *gorm.DB, userID string) (*models.Cart, error) {
	return m.FindByUser(ctx, userID)
}

func (m *memCartRepo) FindGuestBySessionForUpdate(ctx context.Context, _ *gorm.DB, sessionID string) (*models.Cart, error) {
	return m.FindGuestBySession(ctx, sessionID)
}

func (m *memCartRepo) FindItemByID(_ context.Context, itemID uint) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memCartRepo) FindItem(_ context.Context, cartID, offerID uint) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.CartID == cartID && item.OfferID == offerID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) SaveItem(_ context.Context, _ *gorm.DB, item *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == 0 {
		m.nextItemID++
		item.ID = m.nextItemID
	}
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *memCartRepo) DeleteItem(_ context.Context, _ *gorm.DB, item *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, item.ID)
	return nil
}

func (m *memCartRepo) ClearItems(_ context.Context, _ *gorm.DB, cartID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, it := range m.items {
		if it.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memCartRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(nil)
}

func (m *memCartRepo) withItems(cart *models.Cart) *models.Cart {
	cp := *cart
	cp.Items = nil
	for _, item := range m.items {
		if item.CartID == cart.ID {
			cp.Items = append(cp.Items, *item)
		}
	}
	return &cp
}

// --- Mock OfferRepository ---

type stubOfferRepo struct {
	offers map[uint]*models.Offer
}

func (s *stubOfferRepo) FindByID(_ context.Context, id uint) (*models.Offer, error) {
	offer, ok := s.offers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return offer, nil
}

func (s *stubOfferRepo) Reserve(context.Context, uint, int) (repository.ReserveResult, error) {
	return repository.ReserveResult{}, nil
}
func (s *stubOfferRepo) Release(context.Context, uint, int) error { return nil }

func (s *stubOfferRepo) Upsert(context.Context, *models.Offer) error { return nil }

func (s *stubOfferRepo) UpsertEvent(context.Context, *models.Event) error { return nil }

func newCartFixture() (CartService, *memCartRepo) {
	repo := newMemCartRepo()
	offers := &stubOfferRepo{offers: map[uint]*models.Offer{
		1: {ID: 1, EventID: 1, Name: "100m Final - Cat A", Price: decimal.RequireFromString("120.00"), Stock: 50},
		2: {ID: 2, EventID: 1, Name: "100m Final - Cat B", Price: decimal.RequireFromString("60.00"), Stock: 100},
	}}
	return NewCartService(repo, offers), repo
}

// --- Tests ---

func TestGetOrCreateCart_GuestCreatesAndReuses(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	cart1, err := svc.GetOrCreateCart(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.True(t, cart1.IsGuest())
	require.NotNil(t, cart1.SessionID)
	assert.Equal(t, "sess-1", *cart1.SessionID)

	cart2, err := svc.GetOrCreateCart(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, cart1.ID, cart2.ID)
}

func TestGetOrCreateCart_NoIdentity(t *testing.T) {
	svc, _ := newCartFixture()

	_, err := svc.GetOrCreateCart(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestGetOrCreateCart_AdoptsGuestCart(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	guest, err := svc.GetOrCreateCart(ctx, "sess-1", "")
	require.NoError(t, err)

	adopted, err := svc.GetOrCreateCart(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, adopted.ID)
	assert.True(t, adopted.OwnedBy("user-1"))
	assert.Nil(t, adopted.SessionID, "adoption must drop the guest classification")

	// The session token no longer resolves to a guest cart.
	_, err = svc.GetCart(ctx, "sess-1", "")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetOrCreateCart_UserTakesPrecedence(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	userCart, err := svc.GetOrCreateCart(ctx, "", "user-1")
	require.NoError(t, err)

	guest, err := svc.GetOrCreateCart(ctx, "sess-1", "")
	require.NoError(t, err)
	require.NotEqual(t, userCart.ID, guest.ID)

	// With both identities present the existing user cart wins; the
	// guest cart stays untouched for the merge to pick up.
	got, err := svc.GetOrCreateCart(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, userCart.ID, got.ID)

	still, err := svc.GetCart(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, still.ID)
}

func TestAddItem_IncrementsExistingRow(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "sess-1", "", 1, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, "sess-1", "", 1, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "re-adding the same offer must not create a second row")
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_UnknownOffer(t *testing.T) {
	svc, _ := newCartFixture()

	_, err := svc.AddItem(context.Background(), "sess-1", "", 999, 1)
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestUpdateItem_ZeroQuantityRemoves(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "sess-1", "", 1, 2)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItem(ctx, "sess-1", "", itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestUpdateItem_RejectsForeignItem(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	cartA, err := svc.AddItem(ctx, "sess-a", "", 1, 2)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "sess-b", "", 2, 1)
	require.NoError(t, err)

	// sess-b tries to touch sess-a's item.
	_, err = svc.UpdateItem(ctx, "sess-b", "", cartA.Items[0].ID, 5)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.RemoveItem(ctx, "sess-b", "", cartA.Items[0].ID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestMergeCarts_SumsAndDeletesGuestCart(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	// User cart: {offer1: 1, offer2: 3}; guest cart: {offer1: 2}.
	_, err := svc.AddItem(ctx, "", "user-1", 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "", "user-1", 2, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "sess-1", "", 1, 2)
	require.NoError(t, err)

	merged, err := svc.MergeCarts(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.True(t, merged.OwnedBy("user-1"))

	quantities := map[uint]int{}
	for _, item := range merged.Items {
		quantities[item.OfferID] = item.Quantity
	}
	assert.Equal(t, map[uint]int{1: 3, 2: 3}, quantities)

	_, err = svc.GetCart(ctx, "sess-1", "")
	assert.ErrorIs(t, err, ErrCartNotFound, "guest cart must be gone after the merge")
}

func TestMergeCarts_SecondMergeIsNoOp(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "", "user-1", 2, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "sess-1", "", 1, 2)
	require.NoError(t, err)

	first, err := svc.MergeCarts(ctx, "sess-1", "user-1")
	require.NoError(t, err)

	second, err := svc.MergeCarts(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	quantities := map[uint]int{}
	for _, item := range second.Items {
		quantities[item.OfferID] = item.Quantity
	}
	assert.Equal(t, map[uint]int{1: 2, 2: 3}, quantities, "quantities must not double up")
}

func TestMergeCarts_NoUserCartAdoptsGuest(t *testing.T) {
	svc, _ := newCartFixture()
	ctx := context.Background()

	guest, err := svc.AddItem(ctx, "sess-1", "", 1, 2)
	require.NoError(t, err)

	merged, err := svc.MergeCarts(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, merged.ID)
	assert.True(t, merged.OwnedBy("user-1"))
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}
