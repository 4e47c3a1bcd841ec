package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReminderTypePrescription marks the monthly restock reminder scheduled
// when an order is delivered. The sweep only picks up this type.
const ReminderTypePrescription = "prescription"

const reminderColumns = `id, order_id, phone, name, reminder_date, type, sent, sent_at, created_at`

func scanReminder(row pgx.Row) (Reminder, error) {
	var r Reminder
	err := row.Scan(&r.ID, &r.OrderID, &r.Phone, &r.Name, &r.ReminderDate, &r.Type, &r.Sent, &r.SentAt, &r.CreatedAt)
	return r, err
}

type CreateReminderParams struct {
	OrderID      string
	Phone        string
	Name         string
	ReminderDate time.Time
	Type         string
}

func (q *Queries) CreateReminder(ctx context.Context, arg CreateReminderParams) (Reminder, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO reminders (order_id, phone, name, reminder_date, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+reminderColumns,
		arg.OrderID, arg.Phone, arg.Name, arg.ReminderDate, arg.Type,
	)
	return scanReminder(row)
}

// ListDueReminders returns unsent prescription reminders whose date has
// passed.
func (q *Queries) ListDueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE NOT sent AND type = $1 AND reminder_date <= $2
		ORDER BY reminder_date`,
		ReminderTypePrescription, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (q *Queries) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE reminders SET sent = TRUE, sent_at = now() WHERE id = $1`, id)
	return err
}
