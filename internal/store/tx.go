package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

// Tx wraps one *sql.Tx for the order service.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback is safe to defer after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// --- Stock ledger ---

// LockProduct reads the product row with FOR UPDATE. The lock is held until
// the transaction ends, covering the stock check and the decrement.
func (t *Tx) LockProduct(ctx context.Context, productID int64) (*models.StockRow, error) {
	row := &models.StockRow{}
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, price, quantity FROM products WHERE id = ? FOR UPDATE", productID,
	).Scan(&row.ProductID, &row.Price, &row.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orders.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return row, nil
}

// DecrementStock is the conditional decrement. Zero affected rows means the
// stock was no longer sufficient.
func (t *Tx) DecrementStock(ctx context.Context, productID int64, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?",
		qty, productID, qty,
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// --- Checkout writes ---

func (t *Tx) InsertOrder(ctx context.Context, o *models.Order) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, status, address, phone_number) VALUES (?, ?, ?, ?)",
		o.UserID, o.Status, o.Address, o.PhoneNumber,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *Tx) InsertOrderItem(ctx context.Context, item *models.OrderItem) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)",
		item.OrderID, item.ProductID, item.Quantity, item.Price,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *Tx) ClearCart(ctx context.Context, userID int64) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM cart WHERE user_id = ?", userID)
	return err
}

// --- Order state ---

func (t *Tx) LockOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var (
		o        models.Order
		delivery sql.NullTime
		rating   sql.NullInt64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, status, address, phone_number, delivery_date, rating, created_at
		FROM orders WHERE id = ? FOR UPDATE`, orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.Address, &o.PhoneNumber, &delivery, &rating, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	o.DeliveryDate = nullTime(delivery)
	o.Rating = nullInt(rating)
	return &o, nil
}

// UpdateOrder writes change while the order is still in status from. Setting
// a rating additionally requires that none is stored yet.
func (t *Tx) UpdateOrder(ctx context.Context, orderID int64, from models.OrderStatus, change models.OrderChange) (bool, error) {
	sets := []string{"status = ?"}
	args := []any{change.Status}
	if change.DeliveryDate != nil {
		sets = append(sets, "delivery_date = ?")
		args = append(args, change.DeliveryDate.Format(models.DateLayout))
	}
	if change.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *change.Rating)
	}

	query := "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE id = ? AND status = ?"
	args = append(args, orderID, from)
	if change.Rating != nil {
		query += " AND rating IS NULL"
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// DeleteOrder removes the items and then the order row.
func (t *Tx) DeleteOrder(ctx context.Context, orderID int64) (bool, error) {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", orderID); err != nil {
		return false, fmt.Errorf("delete order items: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", orderID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
