package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/services"
)

func newCartFixture() (*services.CartService, *memCartRepo, *memProductRepo) {
	cartRepo := newMemCartRepo()
	productRepo := newMemProductRepo()
	logger, _ := zap.NewDevelopment()
	svc := services.NewCartService(cartRepo, productRepo, services.DefaultShippingQuoter(), logger)
	return svc, cartRepo, productRepo
}

func newCatalogProduct(name, price string) models.Product {
	return models.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
}

func TestAddItem_CreatesCartAndLine(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)
	cartRepo.addProduct(product)

	identity := models.GuestIdentity("guest-1")
	got, err := svc.AddItem(context.Background(), identity, product.ID, 2)

	assert.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)

	cart, _ := cartRepo.FindByIdentity(context.Background(), identity)
	assert.NotNil(t, cart)
	item, _ := cartRepo.FindItem(context.Background(), cart.ID, product.ID)
	assert.NotNil(t, item)
	assert.Equal(t, 2, item.Quantity)
}

func TestAddItem_RepeatedAddsAccumulate(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)
	cartRepo.addProduct(product)

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, product.ID, 2)
	assert.NoError(t, err)
	_, err = svc.AddItem(context.Background(), identity, product.ID, 3)
	assert.NoError(t, err)

	cart, _ := cartRepo.FindByIdentity(context.Background(), identity)
	item, _ := cartRepo.FindItem(context.Background(), cart.ID, product.ID)
	assert.Equal(t, 5, item.Quantity)
}

func TestAddItem_ClampsAtMaxQuantity(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)
	cartRepo.addProduct(product)

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, product.ID, 998)
	assert.NoError(t, err)
	_, err = svc.AddItem(context.Background(), identity, product.ID, 50)
	assert.NoError(t, err)

	cart, _ := cartRepo.FindByIdentity(context.Background(), identity)
	item, _ := cartRepo.FindItem(context.Background(), cart.ID, product.ID)
	assert.Equal(t, models.MaxItemQuantity, item.Quantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _, _ := newCartFixture()

	_, err := svc.AddItem(context.Background(), models.GuestIdentity("guest-1"), uuid.New(), 1)

	assert.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc, _, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)

	_, err := svc.AddItem(context.Background(), models.GuestIdentity("guest-1"), product.ID, 0)

	assert.Error(t, err)
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
}

func TestRemoveItem_MissingCart(t *testing.T) {
	svc, _, _ := newCartFixture()

	err := svc.RemoveItem(context.Background(), models.GuestIdentity("guest-1"), uuid.New())

	assert.True(t, errs.IsNotFound(err))
}

func TestRemoveItem_MissingLine(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)
	cartRepo.addProduct(product)

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, product.ID, 1)
	assert.NoError(t, err)

	err = svc.RemoveItem(context.Background(), identity, uuid.New())
	assert.True(t, errs.IsNotFound(err))
}

func TestRemoveItem_Success(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)
	cartRepo.addProduct(product)

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, product.ID, 1)
	assert.NoError(t, err)

	assert.NoError(t, svc.RemoveItem(context.Background(), identity, product.ID))

	cart, _ := cartRepo.FindByIdentity(context.Background(), identity)
	item, _ := cartRepo.FindItem(context.Background(), cart.ID, product.ID)
	assert.Nil(t, item)
}

func TestGetCart_EmptyIdentity(t *testing.T) {
	svc, _, _ := newCartFixture()

	summary, err := svc.GetCart(context.Background(), models.CartIdentity{}, "")

	assert.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Subtotal.IsZero())
	assert.True(t, summary.Total.IsZero())
}

func TestGetCart_TotalsAndShipping(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	candle := newCatalogProduct("Candle", "19.99")
	vase := newCatalogProduct("Vase", "35.00")
	for _, p := range []models.Product{candle, vase} {
		productRepo.add(p)
		cartRepo.addProduct(p)
	}

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, candle.ID, 2)
	assert.NoError(t, err)
	_, err = svc.AddItem(context.Background(), identity, vase.ID, 1)
	assert.NoError(t, err)

	summary, err := svc.GetCart(context.Background(), identity, "boxnow")

	assert.NoError(t, err)
	assert.Len(t, summary.Items, 2)
	assert.Equal(t, 3, summary.TotalItems)
	assert.Equal(t, "74.98", summary.Subtotal.StringFixed(2))
	assert.Equal(t, "boxnow", summary.SelectedMethod)
	assert.Equal(t, "2.90", summary.ShippingAmount.StringFixed(2))
	assert.Equal(t, "77.88", summary.Total.StringFixed(2))
	assert.Len(t, summary.ShippingOptions, 2)
}

func TestGetCart_MixedCartBelowThreshold(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	x := newCatalogProduct("Ceramic Bowl", "39.99")
	y := newCatalogProduct("Coaster", "10.00")
	for _, p := range []models.Product{x, y} {
		productRepo.add(p)
		cartRepo.addProduct(p)
	}

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, x.ID, 1)
	assert.NoError(t, err)
	_, err = svc.AddItem(context.Background(), identity, y.ID, 2)
	assert.NoError(t, err)

	summary, err := svc.GetCart(context.Background(), identity, "")

	assert.NoError(t, err)
	assert.Equal(t, "59.99", summary.Subtotal.StringFixed(2))
	for _, q := range summary.ShippingOptions {
		assert.False(t, q.FreeApplied)
		assert.True(t, q.Amount.IsPositive(), "method %s keeps its base fee", q.Method)
	}
}

func TestGetCart_FreeShippingOverThreshold(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Rug", "75.00")
	productRepo.add(product)
	cartRepo.addProduct(product)

	identity := models.GuestIdentity("guest-1")
	_, err := svc.AddItem(context.Background(), identity, product.ID, 2)
	assert.NoError(t, err)

	summary, err := svc.GetCart(context.Background(), identity, "")

	assert.NoError(t, err)
	assert.Equal(t, "150.00", summary.Subtotal.StringFixed(2))
	assert.True(t, summary.ShippingAmount.IsZero())
	assert.Equal(t, "150.00", summary.Total.StringFixed(2))
}

func TestMerge_RequiresAuthenticatedUser(t *testing.T) {
	svc, _, _ := newCartFixture()

	err := svc.Merge(context.Background(), "guest-1", models.GuestIdentity("guest-2"))

	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))
}

func TestMerge_MissingGuestCartIsNoop(t *testing.T) {
	svc, _, _ := newCartFixture()

	err := svc.Merge(context.Background(), "guest-1", models.AuthenticatedIdentity("user-1"))

	assert.NoError(t, err)
}

func TestMerge_UserQuantityWinsOnDuplicates(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	shared := newCatalogProduct("Candle", "19.99")
	guestOnly := newCatalogProduct("Vase", "35.00")
	for _, p := range []models.Product{shared, guestOnly} {
		productRepo.add(p)
		cartRepo.addProduct(p)
	}

	guest := models.GuestIdentity("guest-1")
	user := models.AuthenticatedIdentity("user-1")

	_, err := svc.AddItem(context.Background(), guest, shared.ID, 5)
	assert.NoError(t, err)
	_, err = svc.AddItem(context.Background(), guest, guestOnly.ID, 1)
	assert.NoError(t, err)
	_, err = svc.AddItem(context.Background(), user, shared.ID, 2)
	assert.NoError(t, err)

	assert.NoError(t, svc.Merge(context.Background(), "guest-1", user))

	userCart, _ := cartRepo.FindByIdentity(context.Background(), user)
	sharedItem, _ := cartRepo.FindItem(context.Background(), userCart.ID, shared.ID)
	assert.Equal(t, 2, sharedItem.Quantity, "user quantity wins over guest duplicate")
	movedItem, _ := cartRepo.FindItem(context.Background(), userCart.ID, guestOnly.ID)
	assert.NotNil(t, movedItem)
	assert.Equal(t, 1, movedItem.Quantity)

	guestCart, _ := cartRepo.FindByIdentity(context.Background(), guest)
	assert.Nil(t, guestCart, "guest cart deleted after merge")
}

func TestMerge_Idempotent(t *testing.T) {
	svc, cartRepo, productRepo := newCartFixture()
	product := newCatalogProduct("Candle", "19.99")
	productRepo.add(product)
	cartRepo.addProduct(product)

	guest := models.GuestIdentity("guest-1")
	user := models.AuthenticatedIdentity("user-1")
	_, err := svc.AddItem(context.Background(), guest, product.ID, 3)
	assert.NoError(t, err)

	assert.NoError(t, svc.Merge(context.Background(), "guest-1", user))
	assert.NoError(t, svc.Merge(context.Background(), "guest-1", user))

	userCart, _ := cartRepo.FindByIdentity(context.Background(), user)
	item, _ := cartRepo.FindItem(context.Background(), userCart.ID, product.ID)
	assert.Equal(t, 3, item.Quantity)
}
