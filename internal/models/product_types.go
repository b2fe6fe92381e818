package models

import "github.com/shopspring/decimal"

// Product is the model for the 'products' table. Catalog maintenance lives
// elsewhere; this service only reads rows and decrements quantity.
type Product struct {
	ID       int64           `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Category string          `json:"category" db:"category"`
	Image    *string         `json:"image,omitempty" db:"image"`
	Quantity int             `json:"quantity" db:"quantity"`
}

// StockRow is a product row read under lock during checkout.
type StockRow struct {
	ProductID int64
	Price     decimal.Decimal
	Quantity  int
}
