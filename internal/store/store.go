package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

var _ orders.Store = (*Store)(nil)

// Store is the MySQL implementation of the order and cart persistence.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// BeginTx opens a transaction at the default REPEATABLE READ level. Row
// locks taken with FOR UPDATE provide the isolation checkout needs.
func (s *Store) BeginTx(ctx context.Context) (orders.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// --- Order reads ---

const orderHeaderSelect = `
	SELECT o.id, o.user_id, o.status, o.address, o.phone_number, o.delivery_date, o.rating, o.created_at,
	       u.first_name, u.last_name, u.email
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

func scanOrderHeader(row rowScanner) (models.OrderHeaderRow, error) {
	var (
		h        models.OrderHeaderRow
		delivery sql.NullTime
		rating   sql.NullInt64
		first    sql.NullString
		last     sql.NullString
		email    sql.NullString
	)
	err := row.Scan(
		&h.ID, &h.UserID, &h.Status, &h.Address, &h.PhoneNumber, &delivery, &rating, &h.CreatedAt,
		&first, &last, &email,
	)
	if err != nil {
		return h, err
	}
	h.DeliveryDate = nullTime(delivery)
	h.Rating = nullInt(rating)
	h.Customer = models.Customer{
		FirstName: nullString(first),
		LastName:  nullString(last),
		Email:     nullString(email),
	}
	return h, nil
}

// FindOrderHeader loads one order with its customer.
func (s *Store) FindOrderHeader(ctx context.Context, orderID int64) (*models.OrderHeaderRow, error) {
	row := s.db.QueryRowContext(ctx, orderHeaderSelect+" WHERE o.id = ?", orderID)
	h, err := scanOrderHeader(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order header: %w", err)
	}
	return &h, nil
}

// ListOrderHeaders lists orders newest first, optionally for one customer.
func (s *Store) ListOrderHeaders(ctx context.Context, userID *int64) ([]models.OrderHeaderRow, error) {
	query := orderHeaderSelect
	var args []any
	if userID != nil {
		query += " WHERE o.user_id = ?"
		args = append(args, *userID)
	}
	query += " ORDER BY o.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []models.OrderHeaderRow
	for rows.Next() {
		h, err := scanOrderHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order header: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// FindItemsForOrders loads the items of several orders in one query, keyed
// by order ID.
func (s *Store) FindItemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItemRow, error) {
	out := make(map[int64][]models.OrderItemRow, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, p.name, p.image
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (` + placeholders(len(orderIDs)) + `)
		ORDER BY oi.order_id, oi.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  models.OrderItemRow
			name  sql.NullString
			image sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &name, &image); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.ProductName = nullString(name)
		item.ProductImage = nullString(image)
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	return out, rows.Err()
}

// --- helpers ---

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
