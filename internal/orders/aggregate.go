package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/01moynul/stepup-orders/internal/models"
)

const unknownProductName = "Unknown Product"

// ImageResolver maps a stored product image path to a public URL.
type ImageResolver interface {
	Resolve(stored *string) string
}

// Builder projects stored rows into OrderView aggregates. It holds no state
// between calls; every build reads the store afresh.
type Builder struct {
	reader Reader
	images ImageResolver
}

func NewBuilder(reader Reader, images ImageResolver) *Builder {
	return &Builder{reader: reader, images: images}
}

// Build loads and assembles a single order.
func (b *Builder) Build(ctx context.Context, orderID int64) (*models.OrderView, error) {
	header, err := b.reader.FindOrderHeader(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errOrderNotFound
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	items, err := b.reader.FindItemsForOrders(ctx, []int64{orderID})
	if err != nil {
		return nil, fmt.Errorf("load items for order %d: %w", orderID, err)
	}
	return b.Assemble(header, items[orderID]), nil
}

// BuildList assembles every order visible to userID (all orders when nil),
// newest first, with one header query and one items query.
func (b *Builder) BuildList(ctx context.Context, userID *int64) ([]models.OrderView, error) {
	headers, err := b.reader.ListOrderHeaders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(headers) == 0 {
		return []models.OrderView{}, nil
	}

	ids := make([]int64, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	items, err := b.reader.FindItemsForOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	views := make([]models.OrderView, 0, len(headers))
	for i := range headers {
		views = append(views, *b.Assemble(&headers[i], items[headers[i].ID]))
	}
	return views, nil
}

// Assemble computes subtotals, the total and image URLs from loaded rows.
func (b *Builder) Assemble(header *models.OrderHeaderRow, rows []models.OrderItemRow) *models.OrderView {
	view := &models.OrderView{
		ID:           header.ID,
		UserID:       header.UserID,
		CustomerName: header.Customer.DisplayName(),
		Email:        header.Customer.Email,
		Phone:        header.PhoneNumber,
		Address:      header.Address,
		Status:       header.Status,
		Rating:       header.Rating,
		CreatedAt:    header.CreatedAt,
		Items:        make([]models.OrderItemView, 0, len(rows)),
		Total:        decimal.Zero,
	}
	if header.DeliveryDate != nil {
		d := header.DeliveryDate.Format(models.DateLayout)
		view.DeliveryDate = &d
	}

	for _, row := range rows {
		name := unknownProductName
		if row.ProductName != nil {
			name = *row.ProductName
		}
		subtotal := row.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		view.Items = append(view.Items, models.OrderItemView{
			ID:           row.ID,
			ProductID:    row.ProductID,
			ProductName:  name,
			ProductImage: b.images.Resolve(row.ProductImage),
			Quantity:     row.Quantity,
			Price:        row.Price,
			Subtotal:     subtotal,
		})
		view.Total = view.Total.Add(subtotal)
	}
	return view
}
