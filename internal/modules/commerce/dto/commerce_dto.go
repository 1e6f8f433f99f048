package dto

import (
	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
)

type CreateProductInput struct {
	Name        string   `json:"name" binding:"required" validate:"required,max=150"`
	Description string   `json:"description" validate:"max=5000"`
	Price       int64    `json:"price" binding:"required" validate:"gt=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
}

type UpdateProductInput struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=150"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Price       *int64    `json:"price" validate:"omitempty,gt=0"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	Images      *[]string `json:"images" validate:"omitempty,max=10,dive,url"`
}

type AddToCartInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"` // 0 means one
}

type UpdateCartInput struct {
	Quantity int `json:"quantity"`
}

type CheckoutInput struct {
	ShippingAddress string      `json:"shipping_address" binding:"required" validate:"required,max=500"`
	PaymentMethod   string      `json:"payment_method" binding:"required" validate:"required,max=50"`
	ProductIDs      []uuid.UUID `json:"product_ids"` // empty checks out the whole cart
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

type CartLine struct {
	entity.CartItem
	LineTotal int64 `json:"line_total"`
}

// CartView is the cart with the amounts checkout would charge right now.
type CartView struct {
	Items       []CartLine `json:"items"`
	Subtotal    int64      `json:"subtotal"`
	Tax         int64      `json:"tax"`
	ShippingFee int64      `json:"shipping_fee"`
	Total       int64      `json:"total"`
}

type OrderView struct {
	entity.Order
	Items []entity.OrderItem `json:"items"`
}

// SubscriptionView carries the row, when there is one, and its derived state.
type SubscriptionView struct {
	Subscription *entity.Subscription `json:"subscription"`
	Active       bool                 `json:"active"`
	CanAccess    bool                 `json:"can_access"`
}
