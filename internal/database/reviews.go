package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reviewColumns = `id, order_id, rating, comment, approved, created_at`

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.OrderID, &r.Rating, &r.Comment, &r.Approved, &r.CreatedAt)
	return r, err
}

type CreateReviewParams struct {
	OrderID string
	Rating  int32
	Comment pgtype.Text
}

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO reviews (order_id, rating, comment)
		VALUES ($1, $2, $3)
		RETURNING `+reviewColumns,
		arg.OrderID, arg.Rating, arg.Comment,
	)
	return scanReview(row)
}

// ListApprovedReviews returns the newest approved reviews for the
// public storefront.
func (q *Queries) ListApprovedReviews(ctx context.Context, limit int32) ([]Review, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE approved
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (q *Queries) ListAllReviews(ctx context.Context) ([]Review, error) {
	rows, err := q.db.Query(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

type SetReviewApprovedParams struct {
	ID       uuid.UUID
	Approved bool
}

func (q *Queries) SetReviewApproved(ctx context.Context, arg SetReviewApprovedParams) (Review, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE reviews SET approved = $2 WHERE id = $1
		RETURNING `+reviewColumns,
		arg.ID, arg.Approved,
	)
	return scanReview(row)
}

func (q *Queries) DeleteReview(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
