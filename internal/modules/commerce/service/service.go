package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/commerce/dto"
	"anoa.com/fandomspace/internal/modules/commerce/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/storage"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommerceService interface {
	CreateProduct(ctx context.Context, artistID uuid.UUID, input dto.CreateProductInput) (*entity.Product, error)
	UpdateProduct(ctx context.Context, artistID, productID uuid.UUID, input dto.UpdateProductInput) (*entity.Product, error)
	DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*entity.Product, error)
	GetArtistProducts(ctx context.Context, artistID uuid.UUID) ([]entity.Product, error)
	ObserveArtistProducts(ctx context.Context, artistID uuid.UUID) (*live.Subscription[[]entity.Product], error)

	AddToCart(ctx context.Context, userID uuid.UUID, input dto.AddToCartInput) (*entity.CartItem, error)
	// UpdateCartQuantity sets the quantity; zero or less removes the row.
	UpdateCartQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*dto.CartView, error)
	ObserveCart(ctx context.Context, userID uuid.UUID) (*live.Subscription[*dto.CartView], error)

	// CreateOrder checks out the cart, one PENDING order per artist, all or nothing.
	CreateOrder(ctx context.Context, userID uuid.UUID, input dto.CheckoutInput) ([]entity.Order, error)
	UpdateOrderStatus(ctx context.Context, actorID, orderID uuid.UUID, status string) (*entity.Order, error)
	ProcessOrder(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error)
	ShipOrder(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error)
	ConfirmReceipt(ctx context.Context, buyerID, orderID uuid.UUID) (*entity.Order, error)
	RequestRefund(ctx context.Context, buyerID, orderID uuid.UUID) (*entity.Order, error)
	ApproveRefund(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error)
	RejectRefund(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error)
	GetOrder(ctx context.Context, viewerID, orderID uuid.UUID) (*dto.OrderView, error)
	GetOrders(ctx context.Context, userID uuid.UUID) ([]dto.OrderView, error)
	ObserveOrders(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]dto.OrderView], error)
	GetArtistOrders(ctx context.Context, artistID uuid.UUID) ([]dto.OrderView, error)
	ObserveArtistOrders(ctx context.Context, artistID uuid.UUID) (*live.Subscription[[]dto.OrderView], error)

	GetSubscription(ctx context.Context, artistID, userID uuid.UUID) (*dto.SubscriptionView, error)
	ObserveSubscription(ctx context.Context, artistID, userID uuid.UUID) (*live.Subscription[*dto.SubscriptionView], error)
	GetUserSubscriptions(ctx context.Context, userID uuid.UUID) ([]entity.Subscription, error)
	// ToggleCancel flips auto-renewal off or on; the paid window is untouched.
	ToggleCancel(ctx context.Context, userID, artistID uuid.UUID) (bool, error)
	// RenewSubscription buys one more period, counted from the later of now
	// and the current expiry.
	RenewSubscription(ctx context.Context, userID, artistID uuid.UUID) (*entity.Subscription, error)
	CanDirectMessage(ctx context.Context, userID, artistID uuid.UUID) (bool, error)
}

// Options holds the checkout pricing and subscription period.
type Options struct {
	TaxBps             int64 // tax in basis points of the subtotal
	ShippingFee        int64 // flat fee per order
	SubscriptionPeriod time.Duration
}

func DefaultOptions() Options {
	return Options{TaxBps: 1100, ShippingFee: 15000, SubscriptionPeriod: 30 * 24 * time.Hour}
}

// Tax rounds half up to whole currency units.
func (o Options) Tax(subtotal int64) int64 {
	return (subtotal*o.TaxBps + 5000) / 10000
}

type commerceService struct {
	db           *gorm.DB
	repo         repository.CommerceRepository
	imageStorage storage.ImageStorage
	notification notifService.NotificationService
	hub          *live.Hub
	policy       *policy.Policy
	opts         Options
}

func NewCommerceService(db *gorm.DB, repo repository.CommerceRepository, imageStorage storage.ImageStorage, notification notifService.NotificationService, hub *live.Hub, clock func() time.Time, opts Options) CommerceService {
	if opts.SubscriptionPeriod <= 0 {
		opts.SubscriptionPeriod = DefaultOptions().SubscriptionPeriod
	}
	return &commerceService{
		db:           db,
		repo:         repo,
		imageStorage: imageStorage,
		notification: notification,
		hub:          hub,
		policy:       policy.New(clock),
		opts:         opts,
	}
}

func (s *commerceService) CreateProduct(ctx context.Context, artistID uuid.UUID, input dto.CreateProductInput) (*entity.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	artist, err := s.policy.Actor(ctx, s.db, artistID)
	if err != nil {
		return nil, err
	}
	if !artist.IsArtist() {
		return nil, fmt.Errorf("only artists sell products: %w", apperror.ErrPermissionDenied)
	}

	product := &entity.Product{
		ArtistID:    artistID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Images:      input.Images,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableProducts)
	return product, nil
}

func (s *commerceService) UpdateProduct(ctx context.Context, artistID, productID uuid.UUID, input dto.UpdateProductInput) (*entity.Product, error) {
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	var dropped []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Actor(ctx, tx, artistID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductByID(ctx, productID)
		if err != nil {
			return notFound(err, "product")
		}
		if product.ArtistID != artistID {
			return fmt.Errorf("not your product: %w", apperror.ErrPermissionDenied)
		}

		fields := map[string]interface{}{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return fmt.Errorf("product name is required: %w", apperror.ErrInvalidInput)
			}
			fields["name"] = name
		}
		if input.Description != nil {
			fields["description"] = *input.Description
		}
		if input.Price != nil {
			fields["price"] = *input.Price
		}
		// Stock only goes down through checkout; edits may restock.
		if input.Stock != nil {
			if *input.Stock < product.Stock {
				return fmt.Errorf("stock of %s cannot drop below %d: %w", product.Name, product.Stock, apperror.ErrInvalidOperation)
			}
			fields["stock"] = *input.Stock
		}
		if input.Images != nil {
			images := *input.Images
			if images == nil {
				images = []string{}
			}
			dropped = removedImages(product.Images, images)
			fields["images"] = datatypes.JSONSlice[string](images)
		}
		if len(fields) == 0 {
			return nil
		}
		return repo.UpdateProduct(ctx, productID, fields)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableProducts)
	s.deleteImages(ctx, dropped)
	return s.GetProduct(ctx, productID)
}

// DeleteProduct removes the listing. Orders keep their own snapshot.
func (s *commerceService) DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.policy.Actor(ctx, tx, userID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductByID(ctx, productID)
		if err != nil {
			return notFound(err, "product")
		}
		if product.ArtistID != userID && !actor.IsAdmin() {
			return fmt.Errorf("not your product: %w", apperror.ErrPermissionDenied)
		}
		images = product.Images
		return repo.DeleteProduct(ctx, productID)
	})
	if err != nil {
		return err
	}

	s.hub.Notify(entity.TableProducts, entity.TableCartItems)
	s.deleteImages(ctx, images)
	return nil
}

func (s *commerceService) GetProduct(ctx context.Context, productID uuid.UUID) (*entity.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return product, nil
}

func (s *commerceService) GetArtistProducts(ctx context.Context, artistID uuid.UUID) ([]entity.Product, error) {
	return s.repo.FindProductsByArtist(ctx, artistID)
}

func (s *commerceService) ObserveArtistProducts(ctx context.Context, artistID uuid.UUID) (*live.Subscription[[]entity.Product], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableProducts}, func(ctx context.Context) ([]entity.Product, error) {
		return s.repo.FindProductsByArtist(ctx, artistID)
	})
}

func (s *commerceService) deleteImages(ctx context.Context, urls []string) {
	for _, err := range storage.DeleteAll(ctx, s.imageStorage, urls) {
		logger.Log.WithError(err).Warn("failed to delete product image")
	}
}

func removedImages(before []string, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, u := range after {
		keep[u] = true
	}
	var dropped []string
	for _, u := range before {
		if !keep[u] {
			dropped = append(dropped, u)
		}
	}
	return dropped
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	return err
}
