package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderItem is a snapshot of a product at order time, stored in the
// order's items jsonb column. There is deliberately no foreign key back
// to products.
type OrderItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int32           `json:"qty"`
}

// StatusLog is one entry of the append-only status audit trail.
type StatusLog struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	By   string    `json:"by"`
	At   time.Time `json:"at"`
}

// Payment holds the customer's payment details and proof.
type Payment struct {
	Method  string `json:"method,omitempty"`
	Txn     string `json:"txn,omitempty"`
	Amount  string `json:"amount,omitempty"`
	FileURL string `json:"fileUrl,omitempty"`
}

type Order struct {
	ID         uuid.UUID
	OrderID    string
	ClientRef  pgtype.Text
	Name       string
	Phone      string
	Address    string
	Pin        string
	Items      []OrderItem
	Subtotal   pgtype.Numeric
	Discount   pgtype.Numeric
	Total      pgtype.Numeric
	Status     string
	StatusLogs []StatusLog
	Payment    Payment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Product struct {
	ID        uuid.UUID
	Name      string
	Company   pgtype.Text
	Mrp       pgtype.Numeric
	Image     string
	ImageType string
	Stock     int32
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Reminder struct {
	ID           uuid.UUID
	OrderID      string
	Phone        string
	Name         string
	ReminderDate time.Time
	Type         string
	Sent         bool
	SentAt       pgtype.Timestamptz
	CreatedAt    time.Time
}

type Review struct {
	ID        uuid.UUID
	OrderID   string
	Rating    int32
	Comment   pgtype.Text
	Approved  bool
	CreatedAt time.Time
}

type Admin struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	CreatedAt      time.Time
}
