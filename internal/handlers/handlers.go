package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

// OrderService is the order lifecycle the handlers expose.
type OrderService interface {
	Checkout(ctx context.Context, actor orders.Actor, req orders.CheckoutRequest) (*orders.CheckoutResult, error)
	Cancel(ctx context.Context, actor orders.Actor, orderID int64) (*models.OrderView, error)
	UpdateStatus(ctx context.Context, orderID int64, status, deliveryDate string) (*models.OrderView, error)
	SetDeliveryDate(ctx context.Context, orderID int64, deliveryDate string) (*models.OrderView, error)
	SubmitRating(ctx context.Context, actor orders.Actor, orderID int64, rating int) (*models.OrderView, error)
	Remove(ctx context.Context, orderID int64) error
	Get(ctx context.Context, actor orders.Actor, orderID int64) (*models.OrderView, error)
	ListForUser(ctx context.Context, actor orders.Actor, userID int64) ([]models.OrderView, error)
	ListAll(ctx context.Context) ([]models.OrderView, error)
}

// CartStore is the cart persistence behind the cart endpoints.
type CartStore interface {
	ListCart(ctx context.Context, userID int64) ([]models.CartItemRow, error)
	AddToCart(ctx context.Context, userID, productID int64, qty int) error
	UpdateCartQuantity(ctx context.Context, userID, cartID int64, qty int) (bool, error)
	RemoveFromCart(ctx context.Context, userID, cartID int64) (bool, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Orders OrderService
	Cart   CartStore
	Images orders.ImageResolver
	Log    *zap.Logger
}
