package database

import (
	"context"

	"github.com/google/uuid"
)

const adminColumns = `id, email, hashed_password, full_name, created_at`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	var a Admin
	err := q.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.HashedPassword, &a.FullName, &a.CreatedAt)
	return a, err
}

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	var a Admin
	err := q.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.HashedPassword, &a.FullName, &a.CreatedAt)
	return a, err
}

type CreateAdminParams struct {
	Email          string
	HashedPassword string
	FullName       string
}

// CreateAdmin inserts the admin account, updating the password and name
// if the email already exists. Used by the seed command.
func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	var a Admin
	err := q.db.QueryRow(ctx, `
		INSERT INTO admins (email, hashed_password, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET hashed_password = EXCLUDED.hashed_password,
		    full_name = EXCLUDED.full_name
		RETURNING `+adminColumns,
		arg.Email, arg.HashedPassword, arg.FullName,
	).Scan(&a.ID, &a.Email, &a.HashedPassword, &a.FullName, &a.CreatedAt)
	return a, err
}
