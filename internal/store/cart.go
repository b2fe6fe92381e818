package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

// ListCart returns a customer's cart joined with live product data, most
// recently added first.
func (s *Store) ListCart(ctx context.Context, userID int64) ([]models.CartItemRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, p.name, p.price, p.image, p.quantity
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	out := []models.CartItemRow{}
	for rows.Next() {
		var (
			item  models.CartItemRow
			image sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
			&item.Name, &item.Price, &image, &item.Stock); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.Image = nullString(image)
		out = append(out, item)
	}
	return out, rows.Err()
}

// AddToCart adds qty of a product, merging with an existing line. The
// combined quantity may not exceed current stock.
func (s *Store) AddToCart(ctx context.Context, userID, productID int64, qty int) error {
	var stock, inCart int
	err := s.db.QueryRowContext(ctx, `
		SELECT p.quantity, COALESCE(c.quantity, 0)
		FROM products p
		LEFT JOIN cart c ON c.product_id = p.id AND c.user_id = ?
		WHERE p.id = ?`, userID, productID,
	).Scan(&stock, &inCart)
	if errors.Is(err, sql.ErrNoRows) {
		return orders.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("check product stock: %w", err)
	}
	if inCart+qty > stock {
		return orders.ErrInsufficientStock
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cart (user_id, product_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		userID, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// UpdateCartQuantity sets the quantity of one of the customer's cart lines.
// It reports false when the line does not belong to the customer.
func (s *Store) UpdateCartQuantity(ctx context.Context, userID, cartID int64, qty int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart SET quantity = ? WHERE id = ? AND user_id = ?", qty, cartID, userID)
	if err != nil {
		return false, fmt.Errorf("update cart item: %w", err)
	}
	return affected(res)
}

// RemoveFromCart deletes one of the customer's cart lines.
func (s *Store) RemoveFromCart(ctx context.Context, userID, cartID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart WHERE id = ? AND user_id = ?", cartID, userID)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}
	return affected(res)
}
