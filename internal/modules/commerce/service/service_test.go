package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/commerce/dto"
	"anoa.com/fandomspace/internal/modules/commerce/repository"
	commerceService "anoa.com/fandomspace/internal/modules/commerce/service"
	notifRepo "anoa.com/fandomspace/internal/modules/notification/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db     *gorm.DB
	svc    commerceService.CommerceService
	clock  *clock
	artist *entity.User
	fan    *entity.User
}

func setup(t *testing.T) fixture {
	db := testutil.NewDB(t)
	hub := testutil.NewHub(t)
	notifs := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, hub)
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := commerceService.NewCommerceService(db, repository.NewCommerceRepository(db), nil, notifs, hub, clk.Now, commerceService.DefaultOptions())

	artist := testutil.CreateArtist(t, db, "artist")
	fan := testutil.CreateFan(t, db, "fan")
	testutil.Follow(t, db, fan.ID, artist.ID)
	return fixture{db: db, svc: svc, clock: clk, artist: artist, fan: fan}
}

func checkout() dto.CheckoutInput {
	return dto.CheckoutInput{ShippingAddress: "Jl. X", PaymentMethod: "E-Wallet"}
}

func cartCount(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	var n int64
	require.NoError(t, db.Model(&entity.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

// Single unit of stock, bought, then attempted again.
func TestCheckoutLastUnit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Lightstick", 50000, 1)

	_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID})
	require.NoError(t, err)

	cart, err := f.svc.GetCart(ctx, f.fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70500), cart.Total)

	orders, err := f.svc.CreateOrder(ctx, f.fan.ID, checkout())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	order := orders[0]
	assert.Equal(t, entity.OrderPending, order.Status)
	assert.Equal(t, int64(50000), order.Subtotal)
	assert.Equal(t, int64(5500), order.Tax)
	assert.Equal(t, int64(15000), order.ShippingFee)
	assert.Equal(t, int64(70500), order.TotalAmount)
	assert.Equal(t, "Jl. X", order.ShippingAddress)
	assert.Equal(t, "E-Wallet", order.PaymentMethod)

	product := testutil.Reload[entity.Product](t, f.db, "id = ?", p.ID)
	assert.Equal(t, 0, product.Stock)
	assert.Equal(t, 1, product.SoldCount)
	assert.Zero(t, cartCount(t, f.db, f.fan.ID))

	_, err = f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Zero(t, cartCount(t, f.db, f.fan.ID))
}

func TestOrderLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Album", 50000, 5)
	_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID})
	require.NoError(t, err)
	orders, err := f.svc.CreateOrder(ctx, f.fan.ID, checkout())
	require.NoError(t, err)
	id := orders[0].ID

	_, err = f.svc.ProcessOrder(ctx, f.fan.ID, id)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	stranger := testutil.CreateFan(t, f.db, "stranger")
	_, err = f.svc.RequestRefund(ctx, stranger.ID, id)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.svc.ShipOrder(ctx, f.artist.ID, id)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.svc.ProcessOrder(ctx, f.artist.ID, id)
	require.NoError(t, err)
	_, err = f.svc.ShipOrder(ctx, f.artist.ID, id)
	require.NoError(t, err)

	_, err = f.svc.ConfirmReceipt(ctx, f.artist.ID, id)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	delivered, err := f.svc.ConfirmReceipt(ctx, f.fan.ID, id)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderDelivered, delivered.Status)

	_, err = f.svc.UpdateOrderStatus(ctx, f.artist.ID, id, entity.OrderShipped)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	_, err = f.svc.RequestRefund(ctx, f.fan.ID, id)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.svc.UpdateOrderStatus(ctx, f.artist.ID, uuid.New(), entity.OrderProcessed)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRefundFlowAndAdminOverride(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, f.db, "admin")
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Poster", 10000, 5)

	place := func() uuid.UUID {
		_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID})
		require.NoError(t, err)
		orders, err := f.svc.CreateOrder(ctx, f.fan.ID, checkout())
		require.NoError(t, err)
		return orders[0].ID
	}

	first := place()
	_, err := f.svc.RequestRefund(ctx, f.fan.ID, first)
	require.NoError(t, err)
	refunded, err := f.svc.ApproveRefund(ctx, f.artist.ID, first)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderRefunded, refunded.Status)
	_, err = f.svc.RejectRefund(ctx, f.artist.ID, first)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	second := place()
	_, err = f.svc.UpdateOrderStatus(ctx, admin.ID, second, entity.OrderProcessed)
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, admin.ID, second, entity.OrderDelivered)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	views, err := f.svc.GetOrders(ctx, f.fan.ID)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestStockIsConserved(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	const initial = 3
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Photocard", 1000, initial)
	fans := []*entity.User{f.fan, testutil.CreateFan(t, f.db, "b"), testutil.CreateFan(t, f.db, "c")}

	_, err := f.svc.AddToCart(ctx, fans[0].ID, dto.AddToCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, fans[1].ID, dto.AddToCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, fans[2].ID, dto.AddToCartInput{ProductID: p.ID, Quantity: 4})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	_, err = f.svc.CreateOrder(ctx, fans[0].ID, checkout())
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, fans[1].ID, checkout())
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, int64(1), cartCount(t, f.db, fans[1].ID))

	product := testutil.Reload[entity.Product](t, f.db, "id = ?", p.ID)
	assert.Equal(t, 1, product.Stock)
	assert.Equal(t, initial, product.Stock+product.SoldCount)

	require.NoError(t, f.svc.UpdateCartQuantity(ctx, fans[1].ID, p.ID, 1))
	_, err = f.svc.CreateOrder(ctx, fans[1].ID, checkout())
	require.NoError(t, err)

	product = testutil.Reload[entity.Product](t, f.db, "id = ?", p.ID)
	assert.Equal(t, 0, product.Stock)
	assert.Equal(t, initial, product.Stock+product.SoldCount)
}

func TestCheckoutFailsWholeCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := testutil.CreateArtist(t, f.db, "other")
	plenty := testutil.CreateProduct(t, f.db, f.artist.ID, "Plenty", 1000, 10)
	scarce := testutil.CreateProduct(t, f.db, other.ID, "Scarce", 1000, 1)

	_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: plenty.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: scarce.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&entity.Product{}).Where("id = ?", scarce.ID).Update("stock", 0).Error)
	_, err = f.svc.CreateOrder(ctx, f.fan.ID, checkout())
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, 10, testutil.Reload[entity.Product](t, f.db, "id = ?", plenty.ID).Stock)
	assert.Equal(t, int64(2), cartCount(t, f.db, f.fan.ID))

	require.NoError(t, f.db.Model(&entity.Product{}).Where("id = ?", scarce.ID).Update("stock", 1).Error)
	orders, err := f.svc.CreateOrder(ctx, f.fan.ID, checkout())
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestCheckoutSubset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.CreateProduct(t, f.db, f.artist.ID, "A", 1000, 10)
	b := testutil.CreateProduct(t, f.db, f.artist.ID, "B", 2000, 10)
	_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: a.ID})
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: b.ID})
	require.NoError(t, err)

	input := checkout()
	input.ProductIDs = []uuid.UUID{b.ID}
	orders, err := f.svc.CreateOrder(ctx, f.fan.ID, input)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(2000), orders[0].Subtotal)
	assert.Equal(t, int64(1), cartCount(t, f.db, f.fan.ID))

	input.ProductIDs = []uuid.UUID{uuid.New()}
	_, err = f.svc.CreateOrder(ctx, f.fan.ID, input)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
}

func TestOrderSnapshotIsFrozen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Hoodie", 250000, 2)
	_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	orders, err := f.svc.CreateOrder(ctx, f.fan.ID, checkout())
	require.NoError(t, err)

	name, price := "Hoodie v2", int64(300000)
	_, err = f.svc.UpdateProduct(ctx, f.artist.ID, p.ID, dto.UpdateProductInput{Name: &name, Price: &price})
	require.NoError(t, err)

	view, err := f.svc.GetOrder(ctx, f.fan.ID, orders[0].ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Hoodie", view.Items[0].Name)
	assert.Equal(t, int64(250000), view.Items[0].Price)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, int64(500000), view.Subtotal)

	require.NoError(t, f.svc.DeleteProduct(ctx, f.artist.ID, p.ID))
	view, err = f.svc.GetOrder(ctx, f.artist.ID, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Hoodie", view.Items[0].Name)
}

func TestCartRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Badge", 5000, 3)

	_, err := f.svc.AddToCart(ctx, f.artist.ID, dto.AddToCartInput{ProductID: p.ID})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	item, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	item, err = f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	assert.ErrorIs(t, f.svc.UpdateCartQuantity(ctx, f.fan.ID, p.ID, 4), apperror.ErrInsufficientStock)
	require.NoError(t, f.svc.UpdateCartQuantity(ctx, f.fan.ID, p.ID, 0))
	assert.Zero(t, cartCount(t, f.db, f.fan.ID))
	assert.ErrorIs(t, f.svc.RemoveFromCart(ctx, f.fan.ID, p.ID), apperror.ErrNotFound)
}

func TestObserveCartFollowsMutations(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Badge", 5000, 3)

	sub, err := f.svc.ObserveCart(ctx, f.fan.ID)
	require.NoError(t, err)
	defer sub.Close()
	testutil.Await(t, sub, func(v *dto.CartView) bool { return len(v.Items) == 0 && v.Total == 0 })

	_, err = f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	got := testutil.Await(t, sub, func(v *dto.CartView) bool { return len(v.Items) == 1 })
	assert.Equal(t, int64(10000), got.Subtotal)
	assert.Equal(t, int64(10000+1100+15000), got.Total)
}

func TestSubscriptionWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.svc.GetSubscription(ctx, f.artist.ID, f.fan.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Subscription)
	assert.False(t, view.Active)

	_, err = f.svc.ToggleCancel(ctx, f.fan.ID, f.artist.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	sub, err := f.svc.RenewSubscription(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	period := commerceService.DefaultOptions().SubscriptionPeriod.Milliseconds()
	start := f.clock.Now().UnixMilli()
	assert.Equal(t, start+period, sub.ValidUntil)

	// renewing early stacks on top of the current window
	f.clock.Advance(24 * time.Hour)
	sub, err = f.svc.RenewSubscription(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	assert.Equal(t, start+2*period, sub.ValidUntil)

	cancelled, err := f.svc.ToggleCancel(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)
	view, err = f.svc.GetSubscription(ctx, f.artist.ID, f.fan.ID)
	require.NoError(t, err)
	assert.False(t, view.Active)
	assert.True(t, view.CanAccess)
	assert.Equal(t, start+2*period, view.Subscription.ValidUntil)

	ok, err := f.svc.CanDirectMessage(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// after expiry a renewal starts from now, and clears the cancel flag
	f.clock.Advance(90 * 24 * time.Hour)
	ok, err = f.svc.CanDirectMessage(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	before := sub.ValidUntil
	sub, err = f.svc.RenewSubscription(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sub.ValidUntil, before)
	assert.Equal(t, f.clock.Now().UnixMilli()+period, sub.ValidUntil)
	assert.False(t, sub.IsCancelled)
}

func TestCanDirectMessageNeedsDmOpen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.RenewSubscription(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&entity.User{}).Where("id = ?", f.artist.ID).Update("is_dm_active", false).Error)
	ok, err := f.svc.CanDirectMessage(ctx, f.fan.ID, f.artist.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.RenewSubscription(ctx, f.fan.ID, f.fan.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
}

func TestProductOwnership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, f.fan.ID, dto.CreateProductInput{Name: "x", Price: 1})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	_, err = f.svc.CreateProduct(ctx, f.artist.ID, dto.CreateProductInput{Name: "x", Price: 0})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	p, err := f.svc.CreateProduct(ctx, f.artist.ID, dto.CreateProductInput{Name: "Tote", Price: 30000, Stock: 4})
	require.NoError(t, err)

	stock := 9
	_, err = f.svc.UpdateProduct(ctx, f.fan.ID, p.ID, dto.UpdateProductInput{Stock: &stock})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, f.fan.ID, p.ID), apperror.ErrPermissionDenied)

	products, err := f.svc.GetArtistProducts(ctx, f.artist.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Tote", products[0].Name)
}

func TestUpdateProductOnlyRestocks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.artist.ID, "Photocard", 20000, 4)
	_, err := f.svc.AddToCart(ctx, f.fan.ID, dto.AddToCartInput{ProductID: p.ID})
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, f.fan.ID, checkout())
	require.NoError(t, err)

	lower := 1
	_, err = f.svc.UpdateProduct(ctx, f.artist.ID, p.ID, dto.UpdateProductInput{Stock: &lower})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
	assert.Equal(t, 3, testutil.Reload[entity.Product](t, f.db, "id = ?", p.ID).Stock)

	higher := 10
	updated, err := f.svc.UpdateProduct(ctx, f.artist.ID, p.ID, dto.UpdateProductInput{Stock: &higher})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Stock)
}
