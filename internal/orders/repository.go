package orders

import (
	"context"

	"github.com/01moynul/stepup-orders/internal/models"
)

// Reader loads the rows the aggregate builder projects from.
type Reader interface {
	FindOrderHeader(ctx context.Context, orderID int64) (*models.OrderHeaderRow, error)
	// ListOrderHeaders returns headers newest first. A nil userID lists every order.
	ListOrderHeaders(ctx context.Context, userID *int64) ([]models.OrderHeaderRow, error)
	FindItemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItemRow, error)
}

// Store is the persistence the order service needs.
type Store interface {
	Reader
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is one database transaction. Lock methods hold row locks until Commit
// or Rollback. Rollback after Commit is a no-op.
type Tx interface {
	InsertOrder(ctx context.Context, o *models.Order) (int64, error)
	InsertOrderItem(ctx context.Context, item *models.OrderItem) (int64, error)

	// LockProduct reads price and quantity under a row lock.
	// It returns ErrProductNotFound when no row exists.
	LockProduct(ctx context.Context, productID int64) (*models.StockRow, error)
	// DecrementStock subtracts qty only when enough stock remains and reports
	// whether a row was changed.
	DecrementStock(ctx context.Context, productID int64, qty int) (bool, error)

	ClearCart(ctx context.Context, userID int64) error

	// LockOrder reads an order under a row lock.
	// It returns ErrOrderNotFound when no row exists.
	LockOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// UpdateOrder applies change only while the order is still in status from
	// and reports whether a row matched.
	UpdateOrder(ctx context.Context, orderID int64, from models.OrderStatus, change models.OrderChange) (bool, error)
	DeleteOrder(ctx context.Context, orderID int64) (bool, error)

	Commit() error
	Rollback() error
}

// Notifier publishes committed order changes. Implementations must not block
// the caller and never report failure.
type Notifier interface {
	OrderUpdated(order *models.OrderView)
	OrderRemoved(orderID, userID int64)
}
