package broadcast

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/models"
)

// Sender delivers a single payload to the relay.
type Sender interface {
	Send(ctx context.Context, payload any) error
}

type event struct {
	name    string
	orderID int64
	payload any
}

// Dispatcher is the order service's notifier. Events are queued without
// blocking the caller and delivered by one goroutine in enqueue order, so
// sequential changes to an order reach the relay in commit order. Delivery is
// attempted once; failures and overflow are logged and dropped.
type Dispatcher struct {
	sender  Sender
	queue   chan event
	timeout time.Duration
	log     *zap.Logger
}

func NewDispatcher(sender Sender, queueSize int, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan event, queueSize),
		timeout: timeout,
		log:     log,
	}
}

func (d *Dispatcher) OrderUpdated(order *models.OrderView) {
	d.enqueue(event{name: EventOrderUpdated, orderID: order.ID, payload: order})
}

func (d *Dispatcher) OrderRemoved(orderID, userID int64) {
	d.enqueue(event{
		name:    EventOrderRemoved,
		orderID: orderID,
		payload: models.OrderRemovedEvent{ID: orderID, UserID: userID, Removed: true},
	})
}

func (d *Dispatcher) enqueue(e event) {
	select {
	case d.queue <- e:
	default:
		d.log.Warn("broadcast queue full, event dropped",
			zap.String("event", e.name),
			zap.Int64("order_id", e.orderID),
		)
	}
}

// Run delivers queued events until ctx is cancelled, then flushes whatever
// is still queued.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("broadcast dispatcher started", zap.Int("queue_size", cap(d.queue)))
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		case <-ctx.Done():
			d.flush()
			d.log.Info("broadcast dispatcher stopped")
			return
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, e.payload); err != nil {
		d.log.Warn("broadcast failed",
			zap.String("event", e.name),
			zap.Int64("order_id", e.orderID),
			zap.Error(err),
		)
		return
	}
	d.log.Debug("broadcast delivered", zap.String("event", e.name), zap.Int64("order_id", e.orderID))
}
