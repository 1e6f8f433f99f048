package repository

import (
	"context"
	"errors"

	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommerceRepository interface {
	WithTx(tx *gorm.DB) CommerceRepository

	CreateProduct(ctx context.Context, product *entity.Product) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	FindProductsByArtist(ctx context.Context, artistID uuid.UUID) ([]entity.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	// DeleteProduct also drops the product from every cart.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// TakeStock moves qty from stock to sold_count, refusing to go below zero.
	TakeStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)

	FindCartItem(ctx context.Context, userID, productID uuid.UUID) (*entity.CartItem, error)
	FindCartItems(ctx context.Context, userID uuid.UUID) ([]entity.CartItem, error)
	SetCartQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	DeleteCartItems(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error

	CreateOrder(ctx context.Context, order *entity.Order) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	FindOrdersByUser(ctx context.Context, userID uuid.UUID) ([]entity.Order, error)
	FindOrdersByArtist(ctx context.Context, artistID uuid.UUID) ([]entity.Order, error)
	// SwapOrderStatus changes the status only if it still equals from.
	SwapOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	FindSubscription(ctx context.Context, artistID, userID uuid.UUID) (*entity.Subscription, error)
	FindSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]entity.Subscription, error)
	FindSubscribers(ctx context.Context, artistID uuid.UUID) ([]entity.Subscription, error)
	// ExtendSubscription pushes valid_until to max(now, valid_until) + periodMs
	// and clears the cancelled flag, creating the row when needed.
	ExtendSubscription(ctx context.Context, artistID, userID uuid.UUID, nowMs, periodMs int64) error
	FlipSubscriptionCancel(ctx context.Context, artistID, userID uuid.UUID) (bool, error)
}

type commerceRepository struct {
	db *gorm.DB
}

func NewCommerceRepository(db *gorm.DB) CommerceRepository {
	return &commerceRepository{db: db}
}

func (r *commerceRepository) WithTx(tx *gorm.DB) CommerceRepository {
	return &commerceRepository{db: tx}
}

func (r *commerceRepository) CreateProduct(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *commerceRepository) FindProductByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *commerceRepository) FindProductsByArtist(ctx context.Context, artistID uuid.UUID) ([]entity.Product, error) {
	products := []entity.Product{}
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("created_at desc").
		Find(&products).Error
	return products, err
}

func (r *commerceRepository) UpdateProduct(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&entity.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *commerceRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&entity.CartItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Product{}).Error
}

func (r *commerceRepository) TakeStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"sold_count": gorm.Expr("sold_count + ?", qty),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *commerceRepository) FindCartItem(ctx context.Context, userID, productID uuid.UUID) (*entity.CartItem, error) {
	var item entity.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *commerceRepository) FindCartItems(ctx context.Context, userID uuid.UUID) ([]entity.CartItem, error) {
	items := []entity.CartItem{}
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error
	return items, err
}

func (r *commerceRepository) SetCartQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	item := &entity.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(item).Error
}

func (r *commerceRepository) DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&entity.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *commerceRepository) DeleteCartItems(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&entity.CartItem{}).Error
}

func (r *commerceRepository) CreateOrder(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *commerceRepository) FindOrderByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *commerceRepository) FindOrdersByUser(ctx context.Context, userID uuid.UUID) ([]entity.Order, error) {
	orders := []entity.Order{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	return orders, err
}

func (r *commerceRepository) FindOrdersByArtist(ctx context.Context, artistID uuid.UUID) ([]entity.Order, error) {
	orders := []entity.Order{}
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	return orders, err
}

func (r *commerceRepository) SwapOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *commerceRepository) FindSubscription(ctx context.Context, artistID, userID uuid.UUID) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := r.db.WithContext(ctx).
		Where("artist_id = ? AND user_id = ?", artistID, userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *commerceRepository) FindSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]entity.Subscription, error) {
	subs := []entity.Subscription{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("valid_until desc").
		Find(&subs).Error
	return subs, err
}

func (r *commerceRepository) FindSubscribers(ctx context.Context, artistID uuid.UUID) ([]entity.Subscription, error) {
	subs := []entity.Subscription{}
	err := r.db.WithContext(ctx).
		Where("artist_id = ?", artistID).
		Order("valid_until desc").
		Find(&subs).Error
	return subs, err
}

func (r *commerceRepository) ExtendSubscription(ctx context.Context, artistID, userID uuid.UUID, nowMs, periodMs int64) error {
	db := r.db.WithContext(ctx)

	_, err := r.FindSubscription(ctx, artistID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&entity.Subscription{
			ArtistID:   artistID,
			UserID:     userID,
			ValidUntil: nowMs + periodMs,
		}).Error
	}
	if err != nil {
		return err
	}

	return db.Model(&entity.Subscription{}).
		Where("artist_id = ? AND user_id = ?", artistID, userID).
		Updates(map[string]interface{}{
			"valid_until":  gorm.Expr("CASE WHEN valid_until > ? THEN valid_until + ? ELSE ? END", nowMs, periodMs, nowMs+periodMs),
			"is_cancelled": false,
		}).Error
}

func (r *commerceRepository) FlipSubscriptionCancel(ctx context.Context, artistID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Subscription{}).
		Where("artist_id = ? AND user_id = ?", artistID, userID).
		Update("is_cancelled", gorm.Expr("NOT is_cancelled"))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}

	sub, err := r.FindSubscription(ctx, artistID, userID)
	if err != nil {
		return false, err
	}
	return sub.IsCancelled, nil
}
