package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const publicReviewLimit = 10

// ReviewStore defines the database methods needed by review handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReviewStore interface {
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
	CreateReview(ctx context.Context, arg database.CreateReviewParams) (database.Review, error)
	ListApprovedReviews(ctx context.Context, limit int32) ([]database.Review, error)
	ListAllReviews(ctx context.Context) ([]database.Review, error)
	SetReviewApproved(ctx context.Context, arg database.SetReviewApprovedParams) (database.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) (int64, error)
}

// ReviewsHandler handles customer reviews. Reviews go live only after
// an admin approves them.
type ReviewsHandler struct {
	store ReviewStore
}

// NewReviewsHandler creates a new ReviewsHandler.
func NewReviewsHandler(store ReviewStore) *ReviewsHandler {
	return &ReviewsHandler{store: store}
}

// RegisterPublicRoutes registers the storefront review endpoints.
func (h *ReviewsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/reviews/submit", h.Create)
	r.Get("/reviews/public", h.ListApproved)
}

// RegisterModerationRoutes registers the approve endpoint.
// Expected to be mounted behind the token guard at /reviews/admin.
func (h *ReviewsHandler) RegisterModerationRoutes(r chi.Router) {
	r.Post("/{id}/approve", h.Approve)
}

// RegisterAdminRoutes registers the remaining moderation endpoints.
// Expected to be mounted inside the authenticated subrouter: /admin/reviews
func (h *ReviewsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createReviewRequest struct {
	OrderID string `json:"orderId"`
	Rating  int32  `json:"rating"`
	Comment string `json:"comment"`
}

type approveReviewRequest struct {
	Approved bool `json:"approved"`
}

type reviewResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   string    `json:"orderId"`
	Rating    int32     `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// --- Handlers ---

// Create accepts one review per delivered order.
func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rating must be between 1 and 5"})
		return
	}

	order, err := h.store.GetOrderByOrderID(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for review: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if order.Status != workflow.StatusDelivered {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only delivered orders can be reviewed"})
		return
	}

	comment := pgtype.Text{}
	if c := strings.TrimSpace(req.Comment); c != "" {
		comment = pgtype.Text{String: c, Valid: true}
	}

	review, err := h.store.CreateReview(r.Context(), database.CreateReviewParams{
		OrderID: req.OrderID,
		Rating:  req.Rating,
		Comment: comment,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "reviews_order_id_key") {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "this order has already been reviewed"})
			return
		}
		log.Printf("ERROR: create review: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

// ListApproved returns the latest approved reviews for the storefront.
func (h *ReviewsHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListApprovedReviews(r.Context(), publicReviewLimit)
	if err != nil {
		log.Printf("ERROR: list approved reviews: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeReviewList(w, reviews)
}

// ListAll returns every review for moderation.
func (h *ReviewsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListAllReviews(r.Context())
	if err != nil {
		log.Printf("ERROR: list reviews: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeReviewList(w, reviews)
}

// Approve toggles a review's public visibility.
func (h *ReviewsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid review ID"})
		return
	}

	// A bare POST approves; {"approved": false} un-publishes.
	req := approveReviewRequest{Approved: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	review, err := h.store.SetReviewApproved(r.Context(), database.SetReviewApprovedParams{ID: id, Approved: req.Approved})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "review not found"})
			return
		}
		log.Printf("ERROR: approve review: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(review))
}

// Delete removes a review.
func (h *ReviewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid review ID"})
		return
	}

	deleted, err := h.store.DeleteReview(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete review: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if deleted == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "review not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *ReviewsHandler) writeReviewList(w http.ResponseWriter, reviews []database.Review) {
	resp := make([]reviewResponse, 0, len(reviews))
	for _, review := range reviews {
		resp = append(resp, toReviewResponse(review))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toReviewResponse(r database.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Rating:    r.Rating,
		Comment:   r.Comment.String,
		Approved:  r.Approved,
		CreatedAt: r.CreatedAt,
	}
}
