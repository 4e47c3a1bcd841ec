package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bhumika-medical/api/internal/cart"
	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/workflow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderIDRetries = 3

// Reminder lead time after delivery, matching a typical monthly refill.
const prescriptionReminderAfter = 30 * 24 * time.Hour

// Errors returned by the order service.
var (
	ErrNameRequired      = errors.New("name is required")
	ErrPhoneRequired     = errors.New("a valid 10-digit phone is required")
	ErrAddressRequired   = errors.New("address is required")
	ErrPinRequired       = errors.New("pin code is required")
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidPrice      = errors.New("price must be >= 0")
	ErrTotalMismatch     = errors.New("submitted total does not match computed total")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// OrderStore defines the DB methods the service needs.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateReminder(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error)
}

// CreateOrderRequest is the validated input for placing an order.
type CreateOrderRequest struct {
	ClientRef string
	Name      string
	Phone     string
	Address   string
	Pin       string
	Items     []cart.Item
	Total     string // client-side total, cross-checked only
	Payment   database.Payment
}

// OrderService handles order business logic.
type OrderService struct {
	store OrderStore
	now   func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{store: store, now: time.Now}
}

// CreateOrder validates the request, recomputes the totals server-side
// and inserts the order in Pending. The client-submitted total is only
// cross-checked against the computed one, never stored. Retries on
// order_id unique violations (two orders hitting the same millisecond).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if strings.TrimSpace(req.Name) == "" {
		return database.Order{}, ErrNameRequired
	}
	phone := NormalizePhone(req.Phone)
	if len(phone) != 10 {
		return database.Order{}, ErrPhoneRequired
	}
	if strings.TrimSpace(req.Address) == "" {
		return database.Order{}, ErrAddressRequired
	}
	if strings.TrimSpace(req.Pin) == "" {
		return database.Order{}, ErrPinRequired
	}
	if len(req.Items) == 0 {
		return database.Order{}, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Qty <= 0 {
			return database.Order{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.Price.IsNegative() {
			return database.Order{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}
	}

	quote := cart.QuoteItems(req.Items)

	// Allow a one-rupee difference to absorb client-side rounding.
	if req.Total != "" {
		submitted, err := decimal.NewFromString(req.Total)
		if err != nil {
			return database.Order{}, ErrTotalMismatch
		}
		if submitted.Sub(quote.Total).Abs().GreaterThan(decimal.NewFromInt(1)) {
			return database.Order{}, ErrTotalMismatch
		}
	}

	clientRef := pgtype.Text{}
	if req.ClientRef != "" {
		clientRef = pgtype.Text{String: req.ClientRef, Valid: true}
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, database.OrderItem{
			Name:  item.Name,
			Price: item.Price,
			Qty:   item.Qty,
		})
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderIDRetries; attempt++ {
		order, err := s.store.CreateOrder(ctx, database.CreateOrderParams{
			OrderID:   fmt.Sprintf("ORD-%d", s.now().UnixMilli()),
			ClientRef: clientRef,
			Name:      strings.TrimSpace(req.Name),
			Phone:     phone,
			Address:   strings.TrimSpace(req.Address),
			Pin:       strings.TrimSpace(req.Pin),
			Items:     items,
			Subtotal:  database.DecimalToNumeric(quote.Subtotal),
			Discount:  database.DecimalToNumeric(quote.Discount),
			Total:     database.DecimalToNumeric(quote.Total),
			Payment:   req.Payment,
		})
		if err == nil {
			return order, nil
		}
		if database.IsUniqueViolation(err, "orders_order_id_key") {
			lastErr = err
			time.Sleep(time.Millisecond)
			continue
		}
		return database.Order{}, err
	}
	return database.Order{}, lastErr
}

// UpdateStatus moves the order to newStatus if the transition is legal,
// appending to the audit trail in the same statement. On Delivered it
// also schedules a refill reminder; a reminder failure never fails the
// status change.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, newStatus, actor string) (database.Order, error) {
	if !workflow.Valid(newStatus) {
		return database.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	current, err := s.store.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := workflow.ValidateTransition(current.Status, newStatus); err != nil {
		return database.Order{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		OrderID:        orderID,
		ExpectedStatus: current.Status,
		NewStatus:      newStatus,
		LogEntry: database.StatusLog{
			From: current.Status,
			To:   newStatus,
			By:   actor,
			At:   s.now().UTC(),
		},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update status: %w", err)
	}

	if newStatus == workflow.StatusDelivered {
		_, err := s.store.CreateReminder(ctx, database.CreateReminderParams{
			OrderID:      updated.OrderID,
			Phone:        updated.Phone,
			Name:         updated.Name,
			ReminderDate: s.now().Add(prescriptionReminderAfter),
			Type:         database.ReminderTypePrescription,
		})
		if err != nil {
			log.Printf("WARN: schedule prescription reminder for %s: %v", updated.OrderID, err)
		}
	}

	return updated, nil
}

// NormalizePhone strips everything but digits and drops a leading
// country code so "+91 98765 43210" and "9876543210" compare equal.
// Orders store the normalized form, so lookups must apply it too.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	return digits
}
