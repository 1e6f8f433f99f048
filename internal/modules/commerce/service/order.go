package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/commerce/dto"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *commerceService) CreateOrder(ctx context.Context, userID uuid.UUID, input dto.CheckoutInput) ([]entity.Order, error) {
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	input.PaymentMethod = strings.TrimSpace(input.PaymentMethod)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	var orders []entity.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Actor(ctx, tx, userID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindCartItems(ctx, userID)
		if err != nil {
			return err
		}
		lines := selectLines(cart, input.ProductIDs)
		if len(lines) == 0 {
			return fmt.Errorf("nothing to check out: %w", apperror.ErrInvalidOperation)
		}

		// Every line is checked before any stock moves.
		for _, line := range lines {
			if line.Product.ID == uuid.Nil {
				return fmt.Errorf("product %s: %w", line.ProductID, apperror.ErrNotFound)
			}
			if line.Quantity > line.Product.Stock {
				return fmt.Errorf("only %d of %s left: %w", line.Product.Stock, line.Product.Name, apperror.ErrInsufficientStock)
			}
		}
		for _, line := range lines {
			ok, err := repo.TakeStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s sold out: %w", line.Product.Name, apperror.ErrInsufficientStock)
			}
		}

		for _, group := range groupByArtist(lines) {
			order, err := s.buildOrder(userID, group, input)
			if err != nil {
				return err
			}
			if err := repo.CreateOrder(ctx, order); err != nil {
				return err
			}
			orders = append(orders, *order)
		}

		productIDs := make([]uuid.UUID, len(lines))
		for i, line := range lines {
			productIDs[i] = line.ProductID
		}
		return repo.DeleteCartItems(ctx, userID, productIDs)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableProducts, entity.TableCartItems, entity.TableOrders)
	for _, order := range orders {
		notifService.Send(ctx, s.notification, &entity.Notification{
			UserID:     order.ArtistID,
			ActorID:    userID,
			EntityID:   order.ID,
			EntityType: "order",
			Type:       entity.NotifyOrderStatus,
			Message:    "You have a new order",
		})
	}
	return orders, nil
}

func (s *commerceService) buildOrder(userID uuid.UUID, lines []entity.CartItem, input dto.CheckoutInput) (*entity.Order, error) {
	items := make([]entity.OrderItem, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		item := entity.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
		}
		if len(line.Product.Images) > 0 {
			item.Image = line.Product.Images[0]
		}
		items = append(items, item)
		subtotal += line.Product.Price * int64(line.Quantity)
	}
	snapshot, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	tax := s.opts.Tax(subtotal)
	return &entity.Order{
		UserID:          userID,
		ArtistID:        lines[0].Product.ArtistID,
		Subtotal:        subtotal,
		Tax:             tax,
		ShippingFee:     s.opts.ShippingFee,
		TotalAmount:     subtotal + tax + s.opts.ShippingFee,
		Status:          entity.OrderPending,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		ItemsJSON:       snapshot,
	}, nil
}

func selectLines(cart []entity.CartItem, productIDs []uuid.UUID) []entity.CartItem {
	if len(productIDs) == 0 {
		return cart
	}
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var lines []entity.CartItem
	for _, item := range cart {
		if wanted[item.ProductID] {
			lines = append(lines, item)
		}
	}
	return lines
}

// groupByArtist keeps the first-seen order of artists.
func groupByArtist(lines []entity.CartItem) [][]entity.CartItem {
	index := map[uuid.UUID]int{}
	var groups [][]entity.CartItem
	for _, line := range lines {
		i, ok := index[line.Product.ArtistID]
		if !ok {
			i = len(groups)
			index[line.Product.ArtistID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], line)
	}
	return groups
}

// UpdateOrderStatus applies one lifecycle step. Admins may apply any step in
// the lifecycle on behalf of either party.
func (s *commerceService) UpdateOrderStatus(ctx context.Context, actorID, orderID uuid.UUID, status string) (*entity.Order, error) {
	var order *entity.Order
	var actor *entity.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if actor, err = s.policy.Actor(ctx, tx, actorID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if order, err = repo.FindOrderByID(ctx, orderID); err != nil {
			return notFound(err, "order")
		}

		isBuyer := order.UserID == actorID
		isArtist := order.ArtistID == actorID
		if !isBuyer && !isArtist && !actor.IsAdmin() {
			return fmt.Errorf("not your order: %w", apperror.ErrPermissionDenied)
		}

		party, ok := AllowedTransition(order.Status, status)
		if !ok {
			return fmt.Errorf("order cannot go from %s to %s: %w", order.Status, status, apperror.ErrInvalidTransition)
		}
		if !actor.IsAdmin() && ((party == PartyBuyer && !isBuyer) || (party == PartyArtist && !isArtist)) {
			return fmt.Errorf("only the %s can move an order to %s: %w", party, status, apperror.ErrPermissionDenied)
		}

		swapped, err := repo.SwapOrderStatus(ctx, orderID, order.Status, status)
		if err != nil {
			return err
		}
		if !swapped {
			return fmt.Errorf("order status changed concurrently: %w", apperror.ErrInvalidTransition)
		}
		order, err = repo.FindOrderByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableOrders)
	for _, recipient := range []uuid.UUID{order.UserID, order.ArtistID} {
		notifService.Send(ctx, s.notification, &entity.Notification{
			UserID:     recipient,
			ActorID:    actorID,
			EntityID:   order.ID,
			EntityType: "order",
			Type:       entity.NotifyOrderStatus,
			Message:    fmt.Sprintf("Order is now %s", status),
		})
	}
	return order, nil
}

func (s *commerceService) ProcessOrder(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error) {
	return s.UpdateOrderStatus(ctx, artistID, orderID, entity.OrderProcessed)
}

func (s *commerceService) ShipOrder(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error) {
	return s.UpdateOrderStatus(ctx, artistID, orderID, entity.OrderShipped)
}

func (s *commerceService) ConfirmReceipt(ctx context.Context, buyerID, orderID uuid.UUID) (*entity.Order, error) {
	return s.UpdateOrderStatus(ctx, buyerID, orderID, entity.OrderDelivered)
}

func (s *commerceService) RequestRefund(ctx context.Context, buyerID, orderID uuid.UUID) (*entity.Order, error) {
	return s.UpdateOrderStatus(ctx, buyerID, orderID, entity.OrderRefundRequested)
}

func (s *commerceService) ApproveRefund(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error) {
	return s.UpdateOrderStatus(ctx, artistID, orderID, entity.OrderRefunded)
}

func (s *commerceService) RejectRefund(ctx context.Context, artistID, orderID uuid.UUID) (*entity.Order, error) {
	return s.UpdateOrderStatus(ctx, artistID, orderID, entity.OrderRefundRejected)
}

func (s *commerceService) GetOrder(ctx context.Context, viewerID, orderID uuid.UUID) (*dto.OrderView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if order.UserID != viewerID && order.ArtistID != viewerID {
		viewer, err := policy.LoadUser(ctx, s.db, viewerID)
		if err != nil {
			return nil, err
		}
		if !viewer.IsAdmin() {
			return nil, fmt.Errorf("not your order: %w", apperror.ErrPermissionDenied)
		}
	}
	views, err := orderViews([]entity.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *commerceService) GetOrders(ctx context.Context, userID uuid.UUID) ([]dto.OrderView, error) {
	orders, err := s.repo.FindOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return orderViews(orders)
}

func (s *commerceService) ObserveOrders(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]dto.OrderView], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableOrders}, func(ctx context.Context) ([]dto.OrderView, error) {
		return s.GetOrders(ctx, userID)
	})
}

func (s *commerceService) GetArtistOrders(ctx context.Context, artistID uuid.UUID) ([]dto.OrderView, error) {
	orders, err := s.repo.FindOrdersByArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return orderViews(orders)
}

func (s *commerceService) ObserveArtistOrders(ctx context.Context, artistID uuid.UUID) (*live.Subscription[[]dto.OrderView], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableOrders}, func(ctx context.Context) ([]dto.OrderView, error) {
		return s.GetArtistOrders(ctx, artistID)
	})
}

func orderViews(orders []entity.Order) ([]dto.OrderView, error) {
	views := make([]dto.OrderView, len(orders))
	for i := range orders {
		items, err := orders[i].Items()
		if err != nil {
			return nil, fmt.Errorf("order %s has a corrupt snapshot: %w", orders[i].ID, err)
		}
		views[i] = dto.OrderView{Order: orders[i], Items: items}
	}
	return views, nil
}
