package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/01moynul/stepup-orders/internal/models"
	"github.com/01moynul/stepup-orders/internal/orders"
)

var (
	headerColumns = []string{"id", "user_id", "status", "address", "phone_number", "delivery_date", "rating", "created_at", "first_name", "last_name", "email"}
	itemColumns   = []string{"id", "order_id", "product_id", "quantity", "price", "name", "image"}
	createdAt     = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func beginTx(t *testing.T, s *Store, mock sqlmock.Sqlmock) *Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := s.BeginTx(context.Background())
	require.NoError(t, err)
	return tx.(*Tx)
}

type nopImages struct{}

func (nopImages) Resolve(stored *string) string {
	if stored == nil {
		return "placeholder"
	}
	return *stored
}

type captureNotifier struct {
	updated []*models.OrderView
	removed [][2]int64
}

func (n *captureNotifier) OrderUpdated(o *models.OrderView) { n.updated = append(n.updated, o) }
func (n *captureNotifier) OrderRemoved(id, userID int64) { n.removed = append(n.removed, [2]int64{id, userID}) }

// --- Stock ledger ---

func TestLockProduct(t *testing.T) {
	s, mock := newMockStore(t)
	tx := beginTx(t, s, mock)

	query := regexp.QuoteMeta("SELECT id, price, quantity FROM products WHERE id = ? FOR UPDATE")
	mock.ExpectQuery(query).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "quantity"}).AddRow(7, "1000.00", 10))
	mock.ExpectQuery(query).WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)

	row, err := tx.LockProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 10, row.Quantity)
	assert.True(t, decimal.NewFromInt(1000).Equal(row.Price))

	_, err = tx.LockProduct(context.Background(), 8)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock(t *testing.T) {
	s, mock := newMockStore(t)
	tx := beginTx(t, s, mock)

	query := regexp.QuoteMeta("UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?")
	mock.ExpectExec(query).WithArgs(2, int64(7), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(2, int64(7), 2).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := tx.DecrementStock(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tx.DecrementStock(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Checkout through the service ---

func expectOrderRead(mock sqlmock.Sqlmock, orderID int64, status string, price string, qty int) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders o")).WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(headerColumns).
			AddRow(orderID, 1, status, "1 Main St", "0917", nil, nil, createdAt, "Ana", "Cruz", "ana@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items oi")).WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(1, orderID, 7, qty, price, "Runner", "uploads/runner.png"))
}

func TestCheckout_CommitsAndRebuilds(t *testing.T) {
	s, mock := newMockStore(t)
	notifier := &captureNotifier{}
	svc := orders.NewService(s, nopImages{}, notifier, zaptest.NewLogger(t))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (user_id, status, address, phone_number) VALUES (?, ?, ?, ?)")).
		WithArgs(int64(1), "to_pay", "1 Main St", "0917").
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, price, quantity FROM products WHERE id = ? FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "quantity"}).AddRow(7, "1000.00", 10))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)")).
		WithArgs(int64(55), int64(7), 2, decimal.RequireFromString("1000.00")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET quantity = quantity - ?")).
		WithArgs(2, int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart WHERE user_id = ?")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectOrderRead(mock, 55, "to_pay", "1000.00", 2)

	res, err := svc.Checkout(context.Background(), orders.Actor{UserID: 1}, orders.CheckoutRequest{
		UserID:  1,
		Items:   []models.CartLine{{ProductID: 7, Quantity: 2}},
		Address: "1 Main St",
		Phone:   "0917",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), res.OrderID)

	require.Len(t, notifier.updated, 1)
	view := notifier.updated[0]
	assert.Equal(t, "Ana Cruz", view.CustomerName)
	assert.True(t, decimal.NewFromInt(2000).Equal(view.Total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_StockConflictRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	notifier := &captureNotifier{}
	svc := orders.NewService(s, nopImages{}, notifier, zaptest.NewLogger(t))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(56, 1))
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "quantity"}).AddRow(7, "1000.00", 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), orders.Actor{UserID: 1}, orders.CheckoutRequest{
		UserID:  1,
		Items:   []models.CartLine{{ProductID: 7, Quantity: 1}},
		Address: "1 Main St",
		Phone:   "0917",
	})
	assert.ErrorIs(t, err, orders.ErrStockConflict)
	assert.Empty(t, notifier.updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Order state ---

func TestLockOrder(t *testing.T) {
	s, mock := newMockStore(t)
	tx := beginTx(t, s, mock)

	cols := []string{"id", "user_id", "status", "address", "phone_number", "delivery_date", "rating", "created_at"}
	delivery := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 1, "to_receive", "addr", "0917", delivery, 4, createdAt))
	mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WithArgs(int64(4)).WillReturnError(sql.ErrNoRows)

	o, err := tx.LockOrder(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusToReceive, o.Status)
	require.NotNil(t, o.DeliveryDate)
	assert.True(t, delivery.Equal(*o.DeliveryDate))
	assert.Equal(t, 4, *o.Rating)

	_, err = tx.LockOrder(context.Background(), 4)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrder_BuildsConditionalUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	tx := beginTx(t, s, mock)

	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rating := 3

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, delivery_date = ? WHERE id = ? AND status = ?")).
		WithArgs("to_receive", "2025-06-01", int64(9), "to_ship").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, rating = ? WHERE id = ? AND status = ? AND rating IS NULL")).
		WithArgs("completed", 3, int64(9), "to_receive").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := tx.UpdateOrder(context.Background(), 9, models.StatusToShip,
		models.OrderChange{Status: models.StatusToReceive, DeliveryDate: &date})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tx.UpdateOrder(context.Background(), 9, models.StatusToReceive,
		models.OrderChange{Status: models.StatusCompleted, Rating: &rating})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrder(t *testing.T) {
	s, mock := newMockStore(t)
	tx := beginTx(t, s, mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_items WHERE order_id = ?")).WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = ?")).WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := tx.DeleteOrder(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Reads ---

func TestFindOrderHeader(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN users u ON u.id = o.user_id WHERE o.id = ?")).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(headerColumns).
			AddRow(5, 2, "to_pay", "addr", "0917", nil, nil, createdAt, nil, nil, nil))
	mock.ExpectQuery("FROM orders o").WithArgs(int64(6)).WillReturnError(sql.ErrNoRows)

	h, err := s.FindOrderHeader(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.UserID)
	assert.Nil(t, h.DeliveryDate)
	assert.Nil(t, h.Rating)
	assert.Equal(t, "", h.Customer.DisplayName())

	_, err = s.FindOrderHeader(context.Background(), 6)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrderHeaders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.user_id = ? ORDER BY o.id DESC")).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(headerColumns).
			AddRow(9, 1, "to_ship", "addr", "0917", nil, nil, createdAt, "Ana", "Cruz", "ana@example.com").
			AddRow(4, 1, "completed", "addr", "0917", nil, 5, createdAt, "Ana", "Cruz", "ana@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN users u ON u.id = o.user_id ORDER BY o.id DESC")).
		WillReturnRows(sqlmock.NewRows(headerColumns))

	user := int64(1)
	rows, err := s.ListOrderHeaders(context.Background(), &user)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(9), rows[0].ID)
	assert.Equal(t, 5, *rows[1].Rating)

	rows, err = s.ListOrderHeaders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindItemsForOrders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE oi.order_id IN (?, ?)")).WithArgs(int64(9), int64(4)).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(1, 4, 7, 1, "10.00", "Runner", "uploads/runner.png").
			AddRow(2, 9, 8, 2, "20.00", nil, nil).
			AddRow(3, 9, 7, 1, "10.00", "Runner", nil))

	items, err := s.FindItemsForOrders(context.Background(), []int64{9, 4})
	require.NoError(t, err)
	require.Len(t, items[9], 2)
	require.Len(t, items[4], 1)
	assert.Nil(t, items[9][0].ProductName)
	assert.Equal(t, "Runner", *items[4][0].ProductName)

	empty, err := s.FindItemsForOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
