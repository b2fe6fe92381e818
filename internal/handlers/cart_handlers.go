package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

//
// --- Cart Handlers ---
//

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	UserID    int64 `json:"user_id" binding:"omitempty,gt=0"`
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// UpdateCartInput defines the JSON for POST /updateCartQuantity.
type UpdateCartInput struct {
	CartID   int64 `json:"cart_id" binding:"required,gt=0"`
	Quantity int   `json:"quantity" binding:"required,gt=0"`
}

// RemoveCartInput defines the JSON for POST /removeFromCart.
type RemoveCartInput struct {
	CartID int64 `json:"cart_id" binding:"required,gt=0"`
}

// cartOwner resolves whose cart a request targets. Customers may only touch
// their own cart.
func cartOwner(c *gin.Context, requested int64) (int64, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return 0, false
	}
	if requested == 0 || requested == actor.UserID {
		return actor.UserID, true
	}
	if !actor.Admin {
		fail(c, http.StatusForbidden, "Access denied")
		return 0, false
	}
	return requested, true
}

// GetCart is the handler for GET/POST /getCart.
func (h *Handlers) GetCart(c *gin.Context) {
	var input UserIDInput
	if !bindOptional(c, &input) {
		return
	}
	userID, ok := cartOwner(c, input.UserID)
	if !ok {
		return
	}

	cart, err := h.cartView(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cart})
}

// AddToCart is the handler for POST /addToCart.
func (h *Handlers) AddToCart(c *gin.Context) {
	var input AddToCartInput
	if !bindJSON(c, &input) {
		return
	}
	userID, ok := cartOwner(c, input.UserID)
	if !ok {
		return
	}

	if err := h.Cart.AddToCart(c.Request.Context(), userID, input.ProductID, input.Quantity); err != nil {
		switch {
		case errors.Is(err, orders.ErrProductNotFound):
			fail(c, http.StatusNotFound, "Product not found")
		case errors.Is(err, orders.ErrInsufficientStock):
			fail(c, http.StatusConflict, "Not enough stock available")
		default:
			h.respondError(c, err)
		}
		return
	}

	cart, err := h.cartView(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Added to cart", "cart": cart})
}

// UpdateCartQuantity is the handler for POST /updateCartQuantity.
func (h *Handlers) UpdateCartQuantity(c *gin.Context) {
	var input UpdateCartInput
	if !bindJSON(c, &input) {
		return
	}
	userID, ok := cartOwner(c, 0)
	if !ok {
		return
	}

	updated, err := h.Cart.UpdateCartQuantity(c.Request.Context(), userID, input.CartID, input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !updated {
		fail(c, http.StatusNotFound, "Cart item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cart updated"})
}

// RemoveFromCart is the handler for POST /removeFromCart.
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	var input RemoveCartInput
	if !bindJSON(c, &input) {
		return
	}
	userID, ok := cartOwner(c, 0)
	if !ok {
		return
	}

	removed, err := h.Cart.RemoveFromCart(c.Request.Context(), userID, input.CartID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !removed {
		fail(c, http.StatusNotFound, "Cart item not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Removed from cart"})
}

func (h *Handlers) cartView(ctx context.Context, userID int64) ([]models.CartItemView, error) {
	rows, err := h.Cart.ListCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.CartItemView, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.CartItemView{
			CartID:    r.ID,
			ProductID: r.ProductID,
			Name:      r.Name,
			Price:     r.Price,
			Image:     h.Images.Resolve(r.Image),
			Quantity:  r.Quantity,
			Stock:     r.Stock,
			Subtotal:  r.Price.Mul(decimal.NewFromInt(int64(r.Quantity))),
		})
	}
	return out, nil
}
