package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/01moynul/stepup-orders/internal/models"
)

// memStore is a transactional in-memory Store. Transactions run one at a
// time and work on a copy of the state that Commit publishes.
//
// Serialising whole transactions stands in for row locks, so the concurrency
// tests in this package check the service's bookkeeping, not locking. The
// FOR UPDATE reads and the conditional decrement are checked against SQL in
// store_test.go. beforeDecrement lets a test change stock between
// LockProduct and DecrementStock.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state memState
	users map[int64]models.Customer

	failDecrement   bool
	beforeDecrement func(st *memState, productID int64)
}

type memState struct {
	products    map[int64]models.Product
	orders      map[int64]models.Order
	items       map[int64][]models.OrderItem
	carts       map[int64]int
	nextOrderID int64
	nextItemID  int64
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			products: map[int64]models.Product{},
			orders:   map[int64]models.Order{},
			items:    map[int64][]models.OrderItem{},
			carts:    map[int64]int{},
		},
		users: map[int64]models.Customer{},
	}
}

func (st memState) clone() memState {
	out := memState{
		products:    make(map[int64]models.Product, len(st.products)),
		orders:      make(map[int64]models.Order, len(st.orders)),
		items:       make(map[int64][]models.OrderItem, len(st.items)),
		carts:       make(map[int64]int, len(st.carts)),
		nextOrderID: st.nextOrderID,
		nextItemID:  st.nextItemID,
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.orders {
		out.orders[k] = v
	}
	for k, v := range st.items {
		out.items[k] = append([]models.OrderItem(nil), v...)
	}
	for k, v := range st.carts {
		out.carts[k] = v
	}
	return out
}

// --- fixtures ---

func (s *memStore) addProduct(id int64, name, price string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := "uploads/" + name + ".png"
	s.state.products[id] = models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Image: &img, Quantity: qty}
}

func (s *memStore) setPrice(id int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.products[id]
	p.Price = decimal.RequireFromString(price)
	s.state.products[id] = p
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id].Quantity
}

func (s *memStore) setCart(userID int64, lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.carts[userID] = lines
}

func (s *memStore) cartLines(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.carts[userID]
}

func (s *memStore) order(id int64) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[id]
	return o, ok
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

func (s *memStore) committedQuantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, items := range s.state.items {
		for _, it := range items {
			if it.ProductID == productID {
				total += it.Quantity
			}
		}
	}
	return total
}

// seedOrder stores an order with one item directly, bypassing checkout.
func (s *memStore) seedOrder(userID int64, status models.OrderStatus, productID int64, qty int, price string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextOrderID++
	id := s.state.nextOrderID
	s.state.orders[id] = models.Order{
		ID: id, UserID: userID, Status: status,
		Address: "1 Main St", PhoneNumber: "0917",
		CreatedAt: time.Unix(1700000000+id, 0).UTC(),
	}
	s.state.nextItemID++
	s.state.items[id] = []models.OrderItem{{
		ID: s.state.nextItemID, OrderID: id, ProductID: productID,
		Quantity: qty, Price: decimal.RequireFromString(price),
	}}
	return id
}

// --- Reader ---

func (s *memStore) header(o models.Order) models.OrderHeaderRow {
	return models.OrderHeaderRow{Order: o, Customer: s.users[o.UserID]}
}

func (s *memStore) FindOrderHeader(_ context.Context, orderID int64) (*models.OrderHeaderRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	h := s.header(o)
	return &h, nil
}

func (s *memStore) ListOrderHeaders(_ context.Context, userID *int64) ([]models.OrderHeaderRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrderHeaderRow
	for _, o := range s.state.orders {
		if userID == nil || o.UserID == *userID {
			out = append(out, s.header(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) FindItemsForOrders(_ context.Context, orderIDs []int64) (map[int64][]models.OrderItemRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64][]models.OrderItemRow, len(orderIDs))
	for _, id := range orderIDs {
		for _, it := range s.state.items[id] {
			row := models.OrderItemRow{OrderItem: it}
			if p, ok := s.state.products[it.ProductID]; ok {
				name := p.Name
				row.ProductName = &name
				row.ProductImage = p.Image
			}
			out[id] = append(out[id], row)
		}
	}
	return out, nil
}

// --- Tx ---

func (s *memStore) BeginTx(_ context.Context) (Tx, error) {
	s.txMu.Lock()
	s.mu.Lock()
	st := s.state.clone()
	s.mu.Unlock()
	return &memTx{s: s, st: st}, nil
}

type memTx struct {
	s    *memStore
	st   memState
	done bool
}

func (t *memTx) InsertOrder(_ context.Context, o *models.Order) (int64, error) {
	t.st.nextOrderID++
	id := t.st.nextOrderID
	row := *o
	row.ID = id
	row.CreatedAt = time.Unix(1700000000+id, 0).UTC()
	t.st.orders[id] = row
	return id, nil
}

func (t *memTx) InsertOrderItem(_ context.Context, item *models.OrderItem) (int64, error) {
	t.st.nextItemID++
	row := *item
	row.ID = t.st.nextItemID
	t.st.items[item.OrderID] = append(t.st.items[item.OrderID], row)
	return row.ID, nil
}

func (t *memTx) LockProduct(_ context.Context, productID int64) (*models.StockRow, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &models.StockRow{ProductID: p.ID, Price: p.Price, Quantity: p.Quantity}, nil
}

func (t *memTx) DecrementStock(_ context.Context, productID int64, qty int) (bool, error) {
	if t.s.failDecrement {
		return false, nil
	}
	if t.s.beforeDecrement != nil {
		t.s.beforeDecrement(&t.st, productID)
	}
	p, ok := t.st.products[productID]
	if !ok || p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	t.st.products[productID] = p
	return true, nil
}

func (t *memTx) ClearCart(_ context.Context, userID int64) error {
	delete(t.st.carts, userID)
	return nil
}

func (t *memTx) LockOrder(_ context.Context, orderID int64) (*models.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (t *memTx) UpdateOrder(_ context.Context, orderID int64, from models.OrderStatus, change models.OrderChange) (bool, error) {
	o, ok := t.st.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	if change.Rating != nil && o.Rating != nil {
		return false, nil
	}
	o.Status = change.Status
	if change.DeliveryDate != nil {
		o.DeliveryDate = change.DeliveryDate
	}
	if change.Rating != nil {
		o.Rating = change.Rating
	}
	t.st.orders[orderID] = o
	return true, nil
}

func (t *memTx) DeleteOrder(_ context.Context, orderID int64) (bool, error) {
	if _, ok := t.st.orders[orderID]; !ok {
		return false, nil
	}
	delete(t.st.orders, orderID)
	delete(t.st.items, orderID)
	return true, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.s.mu.Lock()
	t.s.state = t.st
	t.s.mu.Unlock()
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

// --- collaborators ---

type recordingNotifier struct {
	mu      sync.Mutex
	updated []*models.OrderView
	removed [][2]int64
}

func (n *recordingNotifier) OrderUpdated(order *models.OrderView) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, order)
}

func (n *recordingNotifier) OrderRemoved(orderID, userID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, [2]int64{orderID, userID})
}

func (n *recordingNotifier) updates() []*models.OrderView {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*models.OrderView(nil), n.updated...)
}

type fakeImages struct{}

func (fakeImages) Resolve(stored *string) string {
	if stored == nil {
		return "https://shop.test/media/uploads/default.png"
	}
	return "https://shop.test/media/" + *stored
}
