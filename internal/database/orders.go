package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_id, client_ref, name, phone, address, pin, items,
	subtotal, discount, total, status, status_logs, payment, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderID,
		&o.ClientRef,
		&o.Name,
		&o.Phone,
		&o.Address,
		&o.Pin,
		&o.Items,
		&o.Subtotal,
		&o.Discount,
		&o.Total,
		&o.Status,
		&o.StatusLogs,
		&o.Payment,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderID   string
	ClientRef pgtype.Text
	Name      string
	Phone     string
	Address   string
	Pin       string
	Items     []OrderItem
	Subtotal  pgtype.Numeric
	Discount  pgtype.Numeric
	Total     pgtype.Numeric
	Payment   Payment
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_id, client_ref, name, phone, address, pin, items, subtotal, discount, total, payment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+orderColumns,
		arg.OrderID, arg.ClientRef, arg.Name, arg.Phone, arg.Address, arg.Pin,
		arg.Items, arg.Subtotal, arg.Discount, arg.Total, arg.Payment,
	)
	return scanOrder(row)
}

func (q *Queries) GetOrderByOrderID(ctx context.Context, orderID string) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	return scanOrder(row)
}

type GetOrderForTrackingParams struct {
	OrderID string
	Phone   string
}

// GetOrderForTracking requires both the public order id and the phone it
// was placed with, so a bare order id is not enough to read someone
// else's order.
func (q *Queries) GetOrderForTracking(ctx context.Context, arg GetOrderForTrackingParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = $1 AND phone = $2`,
		arg.OrderID, arg.Phone,
	)
	return scanOrder(row)
}

// ListOrders returns all orders newest first, optionally filtered by a
// case-insensitive match on order id, name or phone.
func (q *Queries) ListOrders(ctx context.Context, search string) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE $1 = ''
		   OR order_id ILIKE '%' || $1 || '%'
		   OR name ILIKE '%' || $1 || '%'
		   OR phone ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC`,
		search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	OrderID        string
	ExpectedStatus string
	NewStatus      string
	LogEntry       StatusLog
}

// UpdateOrderStatus is a compare-and-swap: it only applies when the row
// still carries ExpectedStatus, and appends the log entry in the same
// statement. Returns pgx.ErrNoRows when the order is missing or its
// status changed concurrently.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $3,
		    status_logs = status_logs || $4::jsonb,
		    updated_at = now()
		WHERE order_id = $1 AND status = $2
		RETURNING `+orderColumns,
		arg.OrderID, arg.ExpectedStatus, arg.NewStatus, arg.LogEntry,
	)
	return scanOrder(row)
}

type AttachPaymentProofParams struct {
	OrderID string
	Payment Payment
}

// AttachPaymentProof merges the submitted payment fields into the
// order's payment document.
func (q *Queries) AttachPaymentProof(ctx context.Context, arg AttachPaymentProofParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET payment = payment || $2::jsonb,
		    updated_at = now()
		WHERE order_id = $1
		RETURNING `+orderColumns,
		arg.OrderID, arg.Payment,
	)
	return scanOrder(row)
}

// DeleteOrder removes the order if present and reports how many rows
// were affected. Deleting a missing order is not an error.
func (q *Queries) DeleteOrder(ctx context.Context, orderID string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
