package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

//
// --- Customer order handlers ---
//

// CheckoutInput defines the JSON for POST /checkout.
type CheckoutInput struct {
	UserID      int64             `json:"user_id" binding:"required,gt=0"`
	Items       []models.CartLine `json:"items" binding:"required,min=1,dive"`
	Address     string            `json:"address" binding:"required"`
	PhoneNumber string            `json:"phone_number" binding:"required"`
}

// OrderIDInput is the body of endpoints that act on one order.
type OrderIDInput struct {
	OrderID int64 `json:"order_id" binding:"required,gt=0"`
}

// RatingInput defines the JSON for POST /submitRating.
type RatingInput struct {
	OrderID int64 `json:"order_id" binding:"required,gt=0"`
	Rating  int   `json:"rating" binding:"required,min=1,max=5"`
}

// UserIDInput selects whose orders or cart to read. It defaults to the caller.
type UserIDInput struct {
	UserID int64 `json:"user_id" form:"user_id" binding:"omitempty,gt=0"`
}

// Checkout is the handler for POST /checkout.
func (h *Handlers) Checkout(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var input CheckoutInput
	if !bindJSON(c, &input) {
		return
	}

	res, err := h.Orders.Checkout(c.Request.Context(), actor, orders.CheckoutRequest{
		UserID:  input.UserID,
		Items:   input.Items,
		Address: input.Address,
		Phone:   input.PhoneNumber,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Order placed successfully",
		"order_id": res.OrderID,
		"status":   res.Status,
	})
}

// CancelOrder is the handler for POST /cancelOrder.
func (h *Handlers) CancelOrder(c *gin.Context) {
	actor, _ := actorFrom(c)

	var input OrderIDInput
	if !bindJSON(c, &input) {
		return
	}

	order, err := h.Orders.Cancel(c.Request.Context(), actor, input.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order cancelled", "order": order})
}

// SubmitRating is the handler for POST /submitRating.
func (h *Handlers) SubmitRating(c *gin.Context) {
	actor, _ := actorFrom(c)

	var input RatingInput
	if !bindJSON(c, &input) {
		return
	}

	order, err := h.Orders.SubmitRating(c.Request.Context(), actor, input.OrderID, input.Rating)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Thank you for your rating", "order": order})
}

// GetOrders is the handler for GET/POST /getOrders.
func (h *Handlers) GetOrders(c *gin.Context) {
	actor, _ := actorFrom(c)

	var input UserIDInput
	if !bindOptional(c, &input) {
		return
	}
	if input.UserID == 0 {
		input.UserID = actor.UserID
	}

	list, err := h.Orders.ListForUser(c.Request.Context(), actor, input.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
}

// GetOrderDetails is the handler for GET /orders/:id.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	actor, _ := actorFrom(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		fail(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), actor, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

//
// --- Admin order handlers ---
//

// UpdateStatusInput defines the JSON for POST /updateOrderStatus.
type UpdateStatusInput struct {
	OrderID      int64  `json:"order_id" binding:"required,gt=0"`
	Status       string `json:"status" binding:"required,orderstatus"`
	DeliveryDate string `json:"delivery_date" binding:"omitempty,isodate"`
}

// DeliveryDateInput defines the JSON for POST /updateDeliveryDate.
type DeliveryDateInput struct {
	OrderID      int64  `json:"order_id" binding:"required,gt=0"`
	DeliveryDate string `json:"delivery_date" binding:"required,isodate"`
}

// UpdateOrderStatus is the handler for POST /updateOrderStatus.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var input UpdateStatusInput
	if !bindJSON(c, &input) {
		return
	}

	order, err := h.Orders.UpdateStatus(c.Request.Context(), input.OrderID, input.Status, input.DeliveryDate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order updated", "order": order})
}

// UpdateDeliveryDate is the handler for POST /updateDeliveryDate.
func (h *Handlers) UpdateDeliveryDate(c *gin.Context) {
	var input DeliveryDateInput
	if !bindJSON(c, &input) {
		return
	}

	order, err := h.Orders.SetDeliveryDate(c.Request.Context(), input.OrderID, input.DeliveryDate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Delivery date updated", "order": order})
}

// RemoveOrder is the handler for POST /removeOrder.
func (h *Handlers) RemoveOrder(c *gin.Context) {
	var input OrderIDInput
	if !bindJSON(c, &input) {
		return
	}

	if err := h.Orders.Remove(c.Request.Context(), input.OrderID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order removed", "order_id": input.OrderID})
}

// AdminOrders is the handler for GET /admin_orders.
func (h *Handlers) AdminOrders(c *gin.Context) {
	list, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
}
