package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients read prices and totals as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the lifecycle position of an order.
type OrderStatus string

const (
	StatusToPay     OrderStatus = "to_pay"
	StatusToShip    OrderStatus = "to_ship"
	StatusToReceive OrderStatus = "to_receive"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// DateLayout is the wire and storage layout of delivery dates.
const DateLayout = "2006-01-02"

// Order is the model for the 'orders' table
type Order struct {
	ID           int64       `json:"id" db:"id"`
	UserID       int64       `json:"user_id" db:"user_id"`
	Status       OrderStatus `json:"status" db:"status"`
	Address      string      `json:"address" db:"address"`
	PhoneNumber  string      `json:"phone_number" db:"phone_number"`
	DeliveryDate *time.Time  `json:"delivery_date,omitempty" db:"delivery_date"`
	Rating       *int        `json:"rating,omitempty" db:"rating"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// OrderItem is the model for the 'order_items' table
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"` // Price at the time of purchase
}

// OrderChange is the set of columns a single status mutation writes.
// Nil fields keep their stored value.
type OrderChange struct {
	Status       OrderStatus
	DeliveryDate *time.Time
	Rating       *int
}

// OrderHeaderRow is an order joined with its customer, as read for display.
type OrderHeaderRow struct {
	Order
	Customer Customer
}

// OrderItemRow is an order item joined with the live product name and image.
// Both are nil when the product has since been deleted.
type OrderItemRow struct {
	OrderItem
	ProductName  *string
	ProductImage *string
}

// --- Aggregate (client-facing) ---

// OrderView is the full order aggregate returned to clients and broadcast to
// the relay.
type OrderView struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	CustomerName string          `json:"customer_name"`
	Email        *string         `json:"email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Status       OrderStatus     `json:"status"`
	DeliveryDate *string         `json:"delivery_date"`
	Rating       *int            `json:"rating"`
	CreatedAt    time.Time       `json:"created_at"`
	Items        []OrderItemView `json:"items"`
	Total        decimal.Decimal `json:"total"`
}

// OrderItemView is one line of an OrderView.
type OrderItemView struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}
