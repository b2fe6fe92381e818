package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int64
	Admin  bool
}

func (a Actor) owns(userID int64) bool { return a.UserID == userID }

// CheckoutRequest is a customer's order submission.
type CheckoutRequest struct {
	UserID  int64
	Items   []models.CartLine
	Address string
	Phone   string
}

// CheckoutResult identifies the committed order.
type CheckoutResult struct {
	OrderID int64
	Status  models.OrderStatus
}

// Service runs order transactions and publishes every committed change.
type Service struct {
	store    Store
	builder  *Builder
	notifier Notifier
	log      *zap.Logger
}

func NewService(store Store, images ImageResolver, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		builder:  NewBuilder(store, images),
		notifier: notifier,
		log:      log,
	}
}

// --- Checkout ---

// Checkout creates an order from the requested lines, reserving stock for
// each line in the same transaction. Nothing is written unless every line
// can be reserved.
func (s *Service) Checkout(ctx context.Context, actor Actor, req CheckoutRequest) (*CheckoutResult, error) {
	// 1. --- Validate before touching the database ---
	address := strings.TrimSpace(req.Address)
	phone := strings.TrimSpace(req.Phone)
	if req.UserID <= 0 {
		return nil, validationErr("Invalid user ID")
	}
	if !actor.Admin && !actor.owns(req.UserID) {
		return nil, errForbidden
	}
	if address == "" {
		return nil, validationErr("Address is required")
	}
	if phone == "" {
		return nil, validationErr("Phone number is required")
	}
	lines, err := normalizeLines(req.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	// 2. --- Order header ---
	orderID, err := tx.InsertOrder(ctx, &models.Order{
		UserID:      req.UserID,
		Status:      models.StatusToPay,
		Address:     address,
		PhoneNumber: phone,
	})
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	// 3. --- Reserve each line ---
	for _, line := range lines {
		stock, err := tx.LockProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return nil, productNotFound(line.ProductID)
			}
			return nil, fmt.Errorf("lock product %d: %w", line.ProductID, err)
		}
		if line.Quantity > stock.Quantity {
			return nil, insufficientStock(line.ProductID)
		}

		if _, err := tx.InsertOrderItem(ctx, &models.OrderItem{
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     stock.Price,
		}); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}

		ok, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement stock for product %d: %w", line.ProductID, err)
		}
		if !ok {
			return nil, stockConflict(line.ProductID)
		}
	}

	// 4. --- Empty the cart and commit ---
	if err := tx.ClearCart(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	s.log.Info("order placed",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", req.UserID),
		zap.Int("lines", len(lines)),
	)
	// The order exists either way; a failed rebuild only costs the broadcast.
	_, _ = s.publish(ctx, orderID)

	return &CheckoutResult{OrderID: orderID, Status: models.StatusToPay}, nil
}

// normalizeLines merges repeated products and sorts by product ID so that
// concurrent checkouts always lock product rows in the same order.
func normalizeLines(in []models.CartLine) ([]models.CartLine, error) {
	if len(in) == 0 {
		return nil, validationErr("Cart is empty")
	}
	merged := make(map[int64]int, len(in))
	for _, line := range in {
		if line.ProductID <= 0 || line.Quantity < 1 {
			return nil, validationErr("Each item needs a valid product_id and a quantity of at least 1")
		}
		merged[line.ProductID] += line.Quantity
	}

	out := make([]models.CartLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, models.CartLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// --- Status mutations ---

// Cancel cancels an order that has not shipped yet.
func (s *Service) Cancel(ctx context.Context, actor Actor, orderID int64) (*models.OrderView, error) {
	return s.mutate(ctx, orderID, func(cur *models.Order) (models.OrderChange, error) {
		if !actor.Admin && !actor.owns(cur.UserID) {
			return models.OrderChange{}, errForbidden
		}
		if !CustomerCancellable(cur.Status) {
			return models.OrderChange{}, &Error{Kind: ErrInvalidTransition, Message: "Order cannot be cancelled"}
		}
		return models.OrderChange{Status: models.StatusCancelled}, nil
	})
}

// UpdateStatus moves an order along the workflow, optionally setting the
// delivery date. Requesting the current status only updates the date.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status, deliveryDate string) (*models.OrderView, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(deliveryDate, false)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, orderID, func(cur *models.Order) (models.OrderChange, error) {
		if !CanTransition(cur.Status, to) {
			return models.OrderChange{}, errInvalidChange
		}
		if date != nil && (cur.Status == models.StatusCancelled || to == models.StatusCancelled) {
			return models.OrderChange{}, errNoDate
		}
		return models.OrderChange{Status: to, DeliveryDate: date}, nil
	})
}

// SetDeliveryDate changes only the delivery date.
func (s *Service) SetDeliveryDate(ctx context.Context, orderID int64, deliveryDate string) (*models.OrderView, error) {
	date, err := parseDate(deliveryDate, true)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, orderID, func(cur *models.Order) (models.OrderChange, error) {
		if cur.Status == models.StatusCancelled {
			return models.OrderChange{}, errNoDate
		}
		return models.OrderChange{Status: cur.Status, DeliveryDate: date}, nil
	})
}

// SubmitRating records the owner's rating and completes the order. An order
// can be rated once, after it has been handed to the courier.
func (s *Service) SubmitRating(ctx context.Context, actor Actor, orderID int64, rating int) (*models.OrderView, error) {
	if rating < 1 || rating > 5 {
		return nil, validationErr("Rating must be between 1 and 5")
	}

	return s.mutate(ctx, orderID, func(cur *models.Order) (models.OrderChange, error) {
		if !actor.owns(cur.UserID) {
			return models.OrderChange{}, errForbidden
		}
		if cur.Rating != nil {
			return models.OrderChange{}, &Error{Kind: ErrAlreadyRated, Message: "Order already rated"}
		}
		if !Rateable(cur) {
			return models.OrderChange{}, &Error{Kind: ErrInvalidTransition, Message: "Order cannot be rated yet"}
		}
		return models.OrderChange{Status: models.StatusCompleted, Rating: &rating}, nil
	})
}

// mutate runs decide against the locked order row and writes its change
// conditionally on the status decide saw.
func (s *Service) mutate(ctx context.Context, orderID int64, decide func(cur *models.Order) (models.OrderChange, error)) (*models.OrderView, error) {
	if orderID <= 0 {
		return nil, validationErr("Invalid order ID")
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order update: %w", err)
	}
	defer tx.Rollback()

	cur, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, errOrderNotFound
		}
		return nil, fmt.Errorf("lock order %d: %w", orderID, err)
	}

	change, err := decide(cur)
	if err != nil {
		return nil, err
	}

	if unchanged(cur, change) {
		if err := tx.Rollback(); err != nil {
			return nil, fmt.Errorf("release order %d: %w", orderID, err)
		}
		return s.builder.Build(ctx, orderID)
	}

	ok, err := tx.UpdateOrder(ctx, orderID, cur.Status, change)
	if err != nil {
		return nil, fmt.Errorf("update order %d: %w", orderID, err)
	}
	if !ok {
		return nil, errInvalidChange
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order %d: %w", orderID, err)
	}

	s.log.Info("order updated",
		zap.Int64("order_id", orderID),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(change.Status)),
	)
	return s.publish(ctx, orderID)
}

func unchanged(cur *models.Order, change models.OrderChange) bool {
	if change.Status != cur.Status || change.Rating != nil {
		return false
	}
	if change.DeliveryDate == nil {
		return true
	}
	return cur.DeliveryDate != nil && cur.DeliveryDate.Equal(*change.DeliveryDate)
}

func parseDate(raw string, required bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return nil, validationErr("Delivery date is required")
		}
		return nil, nil
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return nil, validationErr("Delivery date must be YYYY-MM-DD")
	}
	return &d, nil
}

// --- Removal ---

// Remove hard-deletes an order and its items.
func (s *Service) Remove(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return validationErr("Invalid order ID")
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin order removal: %w", err)
	}
	defer tx.Rollback()

	cur, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return errOrderNotFound
		}
		return fmt.Errorf("lock order %d: %w", orderID, err)
	}

	ok, err := tx.DeleteOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}
	if !ok {
		return errOrderNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order removal %d: %w", orderID, err)
	}

	s.log.Info("order removed", zap.Int64("order_id", orderID), zap.Int64("user_id", cur.UserID))
	s.notifier.OrderRemoved(orderID, cur.UserID)
	return nil
}

// --- Reads ---

// Get returns one order. Customers only see their own orders.
func (s *Service) Get(ctx context.Context, actor Actor, orderID int64) (*models.OrderView, error) {
	if orderID <= 0 {
		return nil, validationErr("Invalid order ID")
	}
	view, err := s.builder.Build(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && !actor.owns(view.UserID) {
		return nil, errOrderNotFound
	}
	return view, nil
}

// ListForUser returns a customer's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, actor Actor, userID int64) ([]models.OrderView, error) {
	if userID <= 0 {
		return nil, validationErr("Invalid user ID")
	}
	if !actor.Admin && !actor.owns(userID) {
		return nil, errForbidden
	}
	return s.builder.BuildList(ctx, &userID)
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.OrderView, error) {
	return s.builder.BuildList(ctx, nil)
}

// publish rebuilds the committed order and hands it to the notifier. The
// change is already durable when the rebuild fails, so the caller gets
// errNotRebuilt and nothing is broadcast.
func (s *Service) publish(ctx context.Context, orderID int64) (*models.OrderView, error) {
	view, err := s.builder.Build(context.WithoutCancel(ctx), orderID)
	if err != nil {
		s.log.Error("order committed but rebuild failed, no broadcast sent",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return nil, errNotRebuilt
	}
	s.notifier.OrderUpdated(view)
	return view, nil
}
