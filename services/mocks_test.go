package services_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/repository"
	"github.com/Hephaestack/pnoh-eshop/services"
)

// ---- in-memory cart repository ----

type memCartRepo struct {
	carts    map[uuid.UUID]*models.Cart
	items    map[uuid.UUID]*models.CartItem
	products map[uuid.UUID]models.Product

	deletedCarts  []uuid.UUID
	createItemErr error
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{
		carts:    make(map[uuid.UUID]*models.Cart),
		items:    make(map[uuid.UUID]*models.CartItem),
		products: make(map[uuid.UUID]models.Product),
	}
}

func (m *memCartRepo) addProduct(p models.Product) {
	m.products[p.ID] = p
}

func (m *memCartRepo) FindByIdentity(_ context.Context, identity models.CartIdentity) (*models.Cart, error) {
	if identity.Empty() {
		return nil, nil
	}
	for _, cart := range m.carts {
		if identity.Authenticated() {
			if cart.UserID != nil && *cart.UserID == identity.UserID {
				return cart, nil
			}
		} else if cart.GuestSessionID != nil && *cart.GuestSessionID == identity.GuestSessionID {
			return cart, nil
		}
	}
	return nil, nil
}

func (m *memCartRepo) FindByID(_ context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return m.carts[cartID], nil
}

func (m *memCartRepo) FindOrCreate(ctx context.Context, identity models.CartIdentity) (*models.Cart, error) {
	if cart, _ := m.FindByIdentity(ctx, identity); cart != nil {
		return cart, nil
	}
	cart := &models.Cart{ID: uuid.New(), CreatedAt: time.Now()}
	if identity.Authenticated() {
		userID := identity.UserID
		cart.UserID = &userID
	} else {
		sessionID := identity.GuestSessionID
		cart.GuestSessionID = &sessionID
	}
	m.carts[cart.ID] = cart
	return cart, nil
}

func (m *memCartRepo) FindItem(_ context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	for _, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, nil
}

func (m *memCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	if m.createItemErr != nil {
		return m.createItemErr
	}
	if existing, _ := m.FindItem(ctx, item.CartID, item.ProductID); existing != nil {
		return errs.New(errs.KindConflict, "cart item already exists")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()
	m.items[item.ID] = item
	return nil
}

func (m *memCartRepo) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	if item, ok := m.items[itemID]; ok {
		item.Quantity = quantity
	}
	return nil
}

func (m *memCartRepo) DeleteItem(_ context.Context, cartID, productID uuid.UUID) (bool, error) {
	for id, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			delete(m.items, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *memCartRepo) ItemsWithProducts(_ context.Context, cartID uuid.UUID) ([]repository.CartLineRow, error) {
	var rows []repository.CartLineRow
	for _, item := range m.items {
		if item.CartID != cartID {
			continue
		}
		product, ok := m.products[item.ProductID]
		if !ok {
			continue
		}
		rows = append(rows, repository.CartLineRow{Item: *item, Product: product})
	}
	return rows, nil
}

func (m *memCartRepo) ProductIDs(_ context.Context, cartID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, item := range m.items {
		if item.CartID == cartID {
			ids = append(ids, item.ProductID)
		}
	}
	return ids, nil
}

func (m *memCartRepo) MergeInto(_ context.Context, guestCartID, userCartID uuid.UUID, skipProducts []uuid.UUID) error {
	skip := make(map[uuid.UUID]bool, len(skipProducts))
	for _, id := range skipProducts {
		skip[id] = true
	}
	for id, item := range m.items {
		if item.CartID != guestCartID {
			continue
		}
		if skip[item.ProductID] {
			delete(m.items, id)
		} else {
			item.CartID = userCartID
		}
	}
	delete(m.carts, guestCartID)
	return nil
}

func (m *memCartRepo) DeleteCart(_ context.Context, cartID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	delete(m.carts, cartID)
	m.deletedCarts = append(m.deletedCarts, cartID)
	return nil
}

// ---- product repository ----

type memProductRepo struct {
	products map[uuid.UUID]*models.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[uuid.UUID]*models.Product)}
}

func (m *memProductRepo) add(p models.Product) {
	stored := p
	m.products[p.ID] = &stored
}

func (m *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	return m.products[id], nil
}

// ---- order repository ----

type memOrderRepo struct {
	bySession map[string]*models.Order
	byID      map[uuid.UUID]*models.Order

	createErr        error
	conflictOnCreate bool
	createAttempts   int
	// hideUntilCreateAttempt makes the session lookup miss until an insert
	// has been tried, simulating a concurrent delivery winning the race
	// between the lookup and the insert.
	hideUntilCreateAttempt bool
	statusUpdates          []models.OrderStatus
	paymentUpdates         []models.PaymentStatus
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		bySession: make(map[string]*models.Order),
		byID:      make(map[uuid.UUID]*models.Order),
	}
}

func (m *memOrderRepo) FindByCheckoutSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	if m.hideUntilCreateAttempt && m.createAttempts == 0 {
		return nil, nil
	}
	return m.bySession[sessionID], nil
}

func (m *memOrderRepo) FindByPaymentIntentID(_ context.Context, paymentIntentID string) (*models.Order, error) {
	for _, order := range m.byID {
		if order.PaymentIntentID != nil && *order.PaymentIntentID == paymentIntentID {
			return order, nil
		}
	}
	return nil, nil
}

func (m *memOrderRepo) CreateWithItems(_ context.Context, order *models.Order) error {
	m.createAttempts++
	if m.createErr != nil {
		return m.createErr
	}
	if m.conflictOnCreate {
		return errs.New(errs.KindConflict, "order already exists for checkout session")
	}
	if order.CheckoutSessionID != nil {
		if _, exists := m.bySession[*order.CheckoutSessionID]; exists {
			return errs.New(errs.KindConflict, "order already exists for checkout session")
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	m.byID[order.ID] = order
	if order.CheckoutSessionID != nil {
		m.bySession[*order.CheckoutSessionID] = order
	}
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	return m.byID[orderID], nil
}

func (m *memOrderRepo) FindByIDAndUserID(_ context.Context, orderID uuid.UUID, userID string) (*models.Order, error) {
	order := m.byID[orderID]
	if order == nil || order.UserID == nil || *order.UserID != userID {
		return nil, nil
	}
	return order, nil
}

func (m *memOrderRepo) FindByUserID(_ context.Context, userID string, _, _ int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, order := range m.byID {
		if order.UserID != nil && *order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) FindAll(_ context.Context, _, _ int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, order := range m.byID {
		out = append(out, *order)
	}
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, orderID uuid.UUID, status models.OrderStatus) error {
	if order, ok := m.byID[orderID]; ok {
		order.Status = status
	}
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}

func (m *memOrderRepo) UpdatePaymentStatus(_ context.Context, orderID uuid.UUID, status models.PaymentStatus) error {
	if order, ok := m.byID[orderID]; ok {
		order.PaymentStatus = status
	}
	m.paymentUpdates = append(m.paymentUpdates, status)
	return nil
}

// ---- checkout provider ----

type mockProvider struct {
	lastRequest *services.CheckoutSessionRequest
	createCount int
	result      *services.CheckoutSessionResult
	createErr   error

	retrieved   *models.CheckoutNotification
	retrieveErr error
}

func (m *mockProvider) CreateCheckoutSession(_ context.Context, req *services.CheckoutSessionRequest) (*services.CheckoutSessionResult, error) {
	m.lastRequest = req
	m.createCount++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &services.CheckoutSessionResult{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

func (m *mockProvider) RetrieveSession(_ context.Context, _ string) (*models.CheckoutNotification, error) {
	return m.retrieved, m.retrieveErr
}

// ---- session cache ----

type memSessionCache struct {
	values map[string]string
	getErr error
	setErr error
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{values: make(map[string]string)}
}

func (m *memSessionCache) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[key], nil
}

func (m *memSessionCache) Set(_ context.Context, key, url string, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = url
	return nil
}

// ---- order event publisher ----

type mockPublisher struct {
	events     []models.OrderEvent
	publishErr error
}

func (m *mockPublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.events = append(m.events, event)
	return nil
}

// ---- admin repository ----

type mockAdminRepo struct {
	admin   *models.Admin
	findErr error
}

func (m *mockAdminRepo) FindByUsername(_ context.Context, _ string) (*models.Admin, error) {
	return m.admin, m.findErr
}
