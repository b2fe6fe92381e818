package models

import "github.com/shopspring/decimal"

// CartItem defines the struct for the 'cart' table
type CartItem struct {
	ID        int64 `json:"id" db:"id"`
	UserID    int64 `json:"user_id" db:"user_id"`
	ProductID int64 `json:"product_id" db:"product_id"`
	Quantity  int   `json:"quantity" db:"quantity"`
}

// CartLine is a requested product and quantity at checkout.
type CartLine struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// CartItemRow is a cart entry joined with its product.
type CartItemRow struct {
	CartItem
	Name  string
	Price decimal.Decimal
	Image *string
	Stock int
}

// CartItemView is one cart entry as returned to the shop front.
type CartItemView struct {
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}
