package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, company, mrp, image, image_type, stock, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Company,
		&p.Mrp,
		&p.Image,
		&p.ImageType,
		&p.Stock,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// ListProducts returns the catalog ordered by name. With activeOnly it
// keeps only items that are active and in stock, which is what the
// public storefront sees.
func (q *Queries) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE NOT $1 OR (is_active AND stock > 0)
		ORDER BY name`,
		activeOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

type CreateProductParams struct {
	Name    string
	Company pgtype.Text
	Mrp     pgtype.Numeric
	Stock   int32
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (name, company, mrp, stock, is_active)
		VALUES ($1, $2, $3, $4, $4 > 0)
		RETURNING `+productColumns,
		arg.Name, arg.Company, arg.Mrp, arg.Stock,
	)
	return scanProduct(row)
}

type UpdateProductParams struct {
	ID      uuid.UUID
	Name    pgtype.Text
	Company pgtype.Text
	Mrp     pgtype.Numeric
}

// UpdateProduct applies a partial update; NULL params keep the current
// column value.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET name = COALESCE($2, name),
		    company = COALESCE($3, company),
		    mrp = COALESCE($4, mrp),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		arg.ID, arg.Name, arg.Company, arg.Mrp,
	)
	return scanProduct(row)
}

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type SetProductStockParams struct {
	ID    uuid.UUID
	Stock int32
}

// SetProductStock updates the stock count and derives visibility from
// it: zero stock hides the product from the storefront.
func (q *Queries) SetProductStock(ctx context.Context, arg SetProductStockParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET stock = $2,
		    is_active = $2 > 0,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		arg.ID, arg.Stock,
	)
	return scanProduct(row)
}

type SetProductImageParams struct {
	ID    uuid.UUID
	Image string
}

func (q *Queries) SetProductImage(ctx context.Context, arg SetProductImageParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET image = $2,
		    image_type = 'real',
		    updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		arg.ID, arg.Image,
	)
	return scanProduct(row)
}
