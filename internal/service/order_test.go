package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bhumika-medical/api/internal/cart"
	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/workflow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type mockOrderStore struct {
	createOrderFn       func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderFn          func(ctx context.Context, orderID string) (database.Order, error)
	updateOrderStatusFn func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	createReminderFn    func(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}

func (m *mockOrderStore) GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error) {
	return m.getOrderFn(ctx, orderID)
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}

func (m *mockOrderStore) CreateReminder(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error) {
	if m.createReminderFn == nil {
		return database.Reminder{}, nil
	}
	return m.createReminderFn(ctx, arg)
}

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Name:    "Asha Sharma",
		Phone:   "9876543210",
		Address: "12 MG Road, Jaipur",
		Pin:     "302001",
		Items: []cart.Item{
			{Name: "Paracetamol 650", Price: decimal.NewFromInt(30), Qty: 2},
		},
	}
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		wantErr error
	}{
		{"missing name", func(r *CreateOrderRequest) { r.Name = "  " }, ErrNameRequired},
		{"short phone", func(r *CreateOrderRequest) { r.Phone = "12345" }, ErrPhoneRequired},
		{"missing address", func(r *CreateOrderRequest) { r.Address = "" }, ErrAddressRequired},
		{"missing pin", func(r *CreateOrderRequest) { r.Pin = "" }, ErrPinRequired},
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Qty = 0 }, ErrInvalidQuantity},
		{"negative price", func(r *CreateOrderRequest) { r.Items[0].Price = decimal.NewFromInt(-5) }, ErrInvalidPrice},
	}

	svc := NewOrderService(&mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			t.Fatal("store should not be reached on validation failure")
			return database.Order{}, nil
		},
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			_, err := svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateOrderRecomputesTotals(t *testing.T) {
	var got database.CreateOrderParams
	svc := NewOrderService(&mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			got = arg
			return database.Order{OrderID: arg.OrderID, Status: workflow.StatusPending}, nil
		},
	})

	req := validCreateRequest()
	// 2 x 300 = 600, over the first tier: 10% off, total 540.
	req.Items = []cart.Item{{Name: "Vitamin D3", Price: decimal.NewFromInt(300), Qty: 2}}
	req.Total = "540"

	order, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !strings.HasPrefix(order.OrderID, "ORD-") {
		t.Errorf("order id: got %q, want ORD- prefix", order.OrderID)
	}
	if s := database.NumericToDecimal(got.Subtotal); !s.Equal(decimal.NewFromInt(600)) {
		t.Errorf("subtotal: got %s, want 600", s)
	}
	if d := database.NumericToDecimal(got.Discount); !d.Equal(decimal.NewFromInt(60)) {
		t.Errorf("discount: got %s, want 60", d)
	}
	if tot := database.NumericToDecimal(got.Total); !tot.Equal(decimal.NewFromInt(540)) {
		t.Errorf("total: got %s, want 540", tot)
	}
}

func TestCreateOrderTotalMismatch(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			t.Fatal("store should not be reached on total mismatch")
			return database.Order{}, nil
		},
	})

	req := validCreateRequest()
	req.Items = []cart.Item{{Name: "Vitamin D3", Price: decimal.NewFromInt(300), Qty: 2}}
	req.Total = "600" // client skipped the discount

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrTotalMismatch) {
		t.Errorf("got %v, want %v", err, ErrTotalMismatch)
	}
}

func TestCreateOrderToleratesRoundingDrift(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{OrderID: arg.OrderID}, nil
		},
	})

	req := validCreateRequest()
	req.Items = []cart.Item{{Name: "Vitamin D3", Price: decimal.NewFromInt(300), Qty: 2}}
	req.Total = "541" // off by one rupee, accepted

	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("create order: %v", err)
	}
}

func TestCreateOrderRetriesOnOrderIDConflict(t *testing.T) {
	attempts := 0
	svc := NewOrderService(&mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			attempts++
			if attempts < 3 {
				return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_id_key"}
			}
			return database.Order{OrderID: arg.OrderID}, nil
		},
	})

	if _, err := svc.CreateOrder(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}
}

func TestCreateOrderNormalizesPhone(t *testing.T) {
	var got database.CreateOrderParams
	svc := NewOrderService(&mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			got = arg
			return database.Order{}, nil
		},
	})

	req := validCreateRequest()
	req.Phone = "+91 98765 43210"
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got.Phone != "9876543210" {
		t.Errorf("phone: got %q, want 9876543210", got.Phone)
	}
}

func TestUpdateStatusHappyPath(t *testing.T) {
	var gotUpdate database.UpdateOrderStatusParams
	svc := NewOrderService(&mockOrderStore{
		getOrderFn: func(ctx context.Context, orderID string) (database.Order, error) {
			return database.Order{OrderID: orderID, Status: workflow.StatusPending}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			gotUpdate = arg
			return database.Order{OrderID: arg.OrderID, Status: arg.NewStatus}, nil
		},
	})

	order, err := svc.UpdateStatus(context.Background(), "ORD-1", workflow.StatusApproved, "admin@bhumikamedical.in")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if order.Status != workflow.StatusApproved {
		t.Errorf("status: got %q, want %q", order.Status, workflow.StatusApproved)
	}
	if gotUpdate.ExpectedStatus != workflow.StatusPending {
		t.Errorf("expected status: got %q, want %q", gotUpdate.ExpectedStatus, workflow.StatusPending)
	}
	if gotUpdate.LogEntry.From != workflow.StatusPending || gotUpdate.LogEntry.To != workflow.StatusApproved {
		t.Errorf("log entry: got %+v", gotUpdate.LogEntry)
	}
	if gotUpdate.LogEntry.By != "admin@bhumikamedical.in" {
		t.Errorf("log actor: got %q", gotUpdate.LogEntry.By)
	}
	if gotUpdate.LogEntry.At.IsZero() {
		t.Error("log entry timestamp is zero")
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{
		getOrderFn: func(ctx context.Context, orderID string) (database.Order, error) {
			return database.Order{OrderID: orderID, Status: workflow.StatusPending}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			t.Fatal("update should not be reached for illegal transition")
			return database.Order{}, nil
		},
	})

	_, err := svc.UpdateStatus(context.Background(), "ORD-1", workflow.StatusDelivered, "admin")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("got %v, want %v", err, ErrInvalidTransition)
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{})
	_, err := svc.UpdateStatus(context.Background(), "ORD-1", "Shipped", "admin")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("got %v, want %v", err, ErrInvalidStatus)
	}
}

func TestUpdateStatusOrderNotFound(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{
		getOrderFn: func(ctx context.Context, orderID string) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	})

	_, err := svc.UpdateStatus(context.Background(), "ORD-missing", workflow.StatusApproved, "admin")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("got %v, want %v", err, ErrOrderNotFound)
	}
}

func TestUpdateStatusConcurrentChange(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{
		getOrderFn: func(ctx context.Context, orderID string) (database.Order, error) {
			return database.Order{OrderID: orderID, Status: workflow.StatusPending}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			// Another admin moved the order between the read and the CAS.
			return database.Order{}, pgx.ErrNoRows
		},
	})

	_, err := svc.UpdateStatus(context.Background(), "ORD-1", workflow.StatusApproved, "admin")
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("got %v, want %v", err, ErrStatusConflict)
	}
}

func TestUpdateStatusDeliveredSchedulesReminder(t *testing.T) {
	var reminder database.CreateReminderParams
	start := time.Now()
	svc := NewOrderService(&mockOrderStore{
		getOrderFn: func(ctx context.Context, orderID string) (database.Order, error) {
			return database.Order{OrderID: orderID, Status: workflow.StatusOutForDelivery, Name: "Asha", Phone: "9876543210"}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{OrderID: arg.OrderID, Status: arg.NewStatus, Name: "Asha", Phone: "9876543210"}, nil
		},
		createReminderFn: func(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error) {
			reminder = arg
			return database.Reminder{}, nil
		},
	})

	if _, err := svc.UpdateStatus(context.Background(), "ORD-1", workflow.StatusDelivered, "admin"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if reminder.OrderID != "ORD-1" || reminder.Phone != "9876543210" {
		t.Errorf("reminder params: got %+v", reminder)
	}
	if reminder.Type != database.ReminderTypePrescription {
		t.Errorf("reminder type: got %q, want %q", reminder.Type, database.ReminderTypePrescription)
	}
	wantDate := start.Add(prescriptionReminderAfter)
	if reminder.ReminderDate.Before(wantDate.Add(-time.Minute)) || reminder.ReminderDate.After(wantDate.Add(time.Minute)) {
		t.Errorf("reminder date: got %v, want ~%v", reminder.ReminderDate, wantDate)
	}
}

func TestUpdateStatusReminderFailureIsNotFatal(t *testing.T) {
	svc := NewOrderService(&mockOrderStore{
		getOrderFn: func(ctx context.Context, orderID string) (database.Order, error) {
			return database.Order{OrderID: orderID, Status: workflow.StatusOutForDelivery}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{OrderID: arg.OrderID, Status: arg.NewStatus}, nil
		},
		createReminderFn: func(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error) {
			return database.Reminder{}, errors.New("db down")
		},
	})

	order, err := svc.UpdateStatus(context.Background(), "ORD-1", workflow.StatusDelivered, "admin")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if order.Status != workflow.StatusDelivered {
		t.Errorf("status: got %q, want %q", order.Status, workflow.StatusDelivered)
	}
}
