package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/commerce/dto"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *commerceService) AddToCart(ctx context.Context, userID uuid.UUID, input dto.AddToCartInput) (*entity.CartItem, error) {
	if err := validator.Struct(input); err != nil {
		return nil, err
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.policy.Actor(ctx, tx, userID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductByID(ctx, input.ProductID)
		if err != nil {
			return notFound(err, "product")
		}
		if product.ArtistID == userID {
			return fmt.Errorf("cannot buy your own product: %w", apperror.ErrInvalidOperation)
		}
		artist, err := policy.LoadUser(ctx, tx, product.ArtistID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(ctx, tx, actor, artist, uuid.Nil, 0); err != nil {
			return err
		}

		current := 0
		existing, err := repo.FindCartItem(ctx, userID, input.ProductID)
		switch {
		case err == nil:
			current = existing.Quantity
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if current+qty > product.Stock {
			return fmt.Errorf("only %d of %s left: %w", product.Stock, product.Name, apperror.ErrInsufficientStock)
		}
		return repo.SetCartQuantity(ctx, userID, input.ProductID, current+qty)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableCartItems)
	return s.repo.FindCartItem(ctx, userID, input.ProductID)
}

func (s *commerceService) UpdateCartQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return s.RemoveFromCart(ctx, userID, productID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Actor(ctx, tx, userID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCartItem(ctx, userID, productID); err != nil {
			return notFound(err, "cart item")
		}
		product, err := repo.FindProductByID(ctx, productID)
		if err != nil {
			return notFound(err, "product")
		}
		if qty > product.Stock {
			return fmt.Errorf("only %d of %s left: %w", product.Stock, product.Name, apperror.ErrInsufficientStock)
		}
		return repo.SetCartQuantity(ctx, userID, productID, qty)
	})
	if err != nil {
		return err
	}

	s.hub.Notify(entity.TableCartItems)
	return nil
}

func (s *commerceService) RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.repo.DeleteCartItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("cart item: %w", apperror.ErrNotFound)
	}
	s.hub.Notify(entity.TableCartItems)
	return nil
}

func (s *commerceService) GetCart(ctx context.Context, userID uuid.UUID) (*dto.CartView, error) {
	items, err := s.repo.FindCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &dto.CartView{Items: make([]dto.CartLine, 0, len(items))}
	artists := map[uuid.UUID]int64{}
	for _, item := range items {
		line := item.Product.Price * int64(item.Quantity)
		view.Items = append(view.Items, dto.CartLine{CartItem: item, LineTotal: line})
		artists[item.Product.ArtistID] += line
	}
	for _, subtotal := range artists {
		view.Subtotal += subtotal
		view.Tax += s.opts.Tax(subtotal)
		view.ShippingFee += s.opts.ShippingFee
	}
	view.Total = view.Subtotal + view.Tax + view.ShippingFee
	return view, nil
}

func (s *commerceService) ObserveCart(ctx context.Context, userID uuid.UUID) (*live.Subscription[*dto.CartView], error) {
	deps := []string{entity.TableCartItems, entity.TableProducts}
	return live.Observe(ctx, s.hub, deps, func(ctx context.Context) (*dto.CartView, error) {
		return s.GetCart(ctx, userID)
	})
}
