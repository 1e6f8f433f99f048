package handler

import (
	"context"
	"net/http"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/commerce/dto"
	commerceService "anoa.com/fandomspace/internal/modules/commerce/service"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommerceHandler struct {
	service commerceService.CommerceService
}

func NewCommerceHandler(service commerceService.CommerceService) *CommerceHandler {
	return &CommerceHandler{service: service}
}

func userAndParam(c *gin.Context, name string) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := response.ParamUUID(c, name)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

// Products

func (h *CommerceHandler) CreateProduct(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var req dto.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *CommerceHandler) UpdateProduct(c *gin.Context) {
	userID, productID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), userID, productID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CommerceHandler) DeleteProduct(c *gin.Context) {
	userID, productID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), userID, productID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *CommerceHandler) GetProduct(c *gin.Context) {
	productID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CommerceHandler) GetArtistProducts(c *gin.Context) {
	artistID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	products, err := h.service.GetArtistProducts(c.Request.Context(), artistID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

// Cart

func (h *CommerceHandler) AddToCart(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var req dto.AddToCartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	item, err := h.service.AddToCart(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *CommerceHandler) UpdateCartQuantity(c *gin.Context) {
	userID, productID, ok := userAndParam(c, "product_id")
	if !ok {
		return
	}
	var req dto.UpdateCartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.service.UpdateCartQuantity(c.Request.Context(), userID, productID, req.Quantity); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart updated"})
}

func (h *CommerceHandler) RemoveFromCart(c *gin.Context) {
	userID, productID, ok := userAndParam(c, "product_id")
	if !ok {
		return
	}
	if err := h.service.RemoveFromCart(c.Request.Context(), userID, productID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed from cart"})
}

func (h *CommerceHandler) GetCart(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	cart, err := h.service.GetCart(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CommerceHandler) LiveCart(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[*dto.CartView], error) {
		return h.service.ObserveCart(ctx, userID)
	})
}

// Orders

func (h *CommerceHandler) Checkout(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var req dto.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	orders, err := h.service.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": orders})
}

func (h *CommerceHandler) UpdateOrderStatus(c *gin.Context) {
	userID, orderID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	order, err := h.service.UpdateOrderStatus(c.Request.Context(), userID, orderID, req.Status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *CommerceHandler) GetOrder(c *gin.Context) {
	userID, orderID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	order, err := h.service.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *CommerceHandler) GetOrders(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	orders, err := h.service.GetOrders(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (h *CommerceHandler) GetArtistOrders(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	orders, err := h.service.GetArtistOrders(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (h *CommerceHandler) LiveOrders(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]dto.OrderView], error) {
		return h.service.ObserveOrders(ctx, userID)
	})
}

func (h *CommerceHandler) LiveArtistOrders(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]dto.OrderView], error) {
		return h.service.ObserveArtistOrders(ctx, userID)
	})
}

// Subscriptions

func (h *CommerceHandler) GetSubscription(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	sub, err := h.service.GetSubscription(c.Request.Context(), artistID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *CommerceHandler) GetUserSubscriptions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	subs, err := h.service.GetUserSubscriptions(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (h *CommerceHandler) RenewSubscription(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	sub, err := h.service.RenewSubscription(c.Request.Context(), userID, artistID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *CommerceHandler) ToggleCancel(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	cancelled, err := h.service.ToggleCancel(c.Request.Context(), userID, artistID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_cancelled": cancelled})
}

func (h *CommerceHandler) CanDirectMessage(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	allowed, err := h.service.CanDirectMessage(c.Request.Context(), userID, artistID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

func (h *CommerceHandler) LiveSubscription(c *gin.Context) {
	userID, artistID, ok := userAndParam(c, "id")
	if !ok {
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[*dto.SubscriptionView], error) {
		return h.service.ObserveSubscription(ctx, artistID, userID)
	})
}

func (h *CommerceHandler) LiveArtistProducts(c *gin.Context) {
	artistID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Live(c, func(ctx context.Context) (*live.Subscription[[]entity.Product], error) {
		return h.service.ObserveArtistProducts(ctx, artistID)
	})
}
