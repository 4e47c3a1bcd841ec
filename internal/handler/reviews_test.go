package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/handler"
	"github.com/bhumika-medical/api/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock store ---

type mockReviewStore struct {
	orders  map[string]database.Order
	reviews map[uuid.UUID]database.Review
}

func newMockReviewStore() *mockReviewStore {
	return &mockReviewStore{
		orders:  make(map[string]database.Order),
		reviews: make(map[uuid.UUID]database.Review),
	}
}

func (m *mockReviewStore) GetOrderByOrderID(_ context.Context, orderID string) (database.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockReviewStore) CreateReview(_ context.Context, arg database.CreateReviewParams) (database.Review, error) {
	for _, r := range m.reviews {
		if r.OrderID == arg.OrderID {
			return database.Review{}, &pgconn.PgError{Code: "23505", ConstraintName: "reviews_order_id_key"}
		}
	}
	r := database.Review{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		Rating:    arg.Rating,
		Comment:   arg.Comment,
		CreatedAt: time.Now(),
	}
	m.reviews[r.ID] = r
	return r, nil
}

func (m *mockReviewStore) ListApprovedReviews(_ context.Context, limit int32) ([]database.Review, error) {
	var out []database.Review
	for _, r := range m.reviews {
		if r.Approved && int32(len(out)) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReviewStore) ListAllReviews(_ context.Context) ([]database.Review, error) {
	var out []database.Review
	for _, r := range m.reviews {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockReviewStore) SetReviewApproved(_ context.Context, arg database.SetReviewApprovedParams) (database.Review, error) {
	r, ok := m.reviews[arg.ID]
	if !ok {
		return database.Review{}, pgx.ErrNoRows
	}
	r.Approved = arg.Approved
	m.reviews[r.ID] = r
	return r, nil
}

func (m *mockReviewStore) DeleteReview(_ context.Context, id uuid.UUID) (int64, error) {
	if _, ok := m.reviews[id]; !ok {
		return 0, nil
	}
	delete(m.reviews, id)
	return 1, nil
}

func setupReviewsRouter(store *mockReviewStore) *chi.Mux {
	h := handler.NewReviewsHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Route("/reviews/admin", h.RegisterModerationRoutes)
	r.Route("/admin/reviews", h.RegisterAdminRoutes)
	return r
}

// --- Tests ---

func TestReviewCreate_Success(t *testing.T) {
	store := newMockReviewStore()
	store.orders["ORD-1"] = database.Order{OrderID: "ORD-1", Status: workflow.StatusDelivered}
	router := setupReviewsRouter(store)

	body := map[string]interface{}{"orderId": "ORD-1", "rating": 5, "comment": "Fast delivery"}
	rr := doRequest(t, router, "POST", "/reviews/submit", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["approved"] != false {
		t.Error("new review should start unapproved")
	}
}

func TestReviewCreate_OnlyDeliveredOrders(t *testing.T) {
	store := newMockReviewStore()
	store.orders["ORD-1"] = database.Order{OrderID: "ORD-1", Status: workflow.StatusPacked}
	router := setupReviewsRouter(store)

	rr := doRequest(t, router, "POST", "/reviews/submit", map[string]interface{}{"orderId": "ORD-1", "rating": 4})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestReviewCreate_UnknownOrder(t *testing.T) {
	router := setupReviewsRouter(newMockReviewStore())

	rr := doRequest(t, router, "POST", "/reviews/submit", map[string]interface{}{"orderId": "ORD-x", "rating": 4})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestReviewCreate_OnePerOrder(t *testing.T) {
	store := newMockReviewStore()
	store.orders["ORD-1"] = database.Order{OrderID: "ORD-1", Status: workflow.StatusDelivered}
	router := setupReviewsRouter(store)

	body := map[string]interface{}{"orderId": "ORD-1", "rating": 5}
	if rr := doRequest(t, router, "POST", "/reviews/submit", body); rr.Code != http.StatusCreated {
		t.Fatalf("first review: got %d", rr.Code)
	}
	rr := doRequest(t, router, "POST", "/reviews/submit", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("second review: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestReviewCreate_RatingBounds(t *testing.T) {
	router := setupReviewsRouter(newMockReviewStore())

	for _, rating := range []int{0, 6, -1} {
		rr := doRequest(t, router, "POST", "/reviews/submit", map[string]interface{}{"orderId": "ORD-1", "rating": rating})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("rating %d: got %d, want %d", rating, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestReviewPublicList_ApprovedOnly(t *testing.T) {
	store := newMockReviewStore()
	store.orders["ORD-1"] = database.Order{OrderID: "ORD-1", Status: workflow.StatusDelivered}
	store.orders["ORD-2"] = database.Order{OrderID: "ORD-2", Status: workflow.StatusDelivered}

	r1, _ := store.CreateReview(context.Background(), database.CreateReviewParams{OrderID: "ORD-1", Rating: 5})
	store.CreateReview(context.Background(), database.CreateReviewParams{OrderID: "ORD-2", Rating: 4})
	store.SetReviewApproved(context.Background(), database.SetReviewApprovedParams{ID: r1.ID, Approved: true})

	router := setupReviewsRouter(store)

	rr := doRequest(t, router, "GET", "/reviews/public", nil)
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0]["orderId"] != "ORD-1" {
		t.Errorf("public reviews: got %v", resp)
	}
}

func TestReviewApprove(t *testing.T) {
	store := newMockReviewStore()
	r, _ := store.CreateReview(context.Background(), database.CreateReviewParams{OrderID: "ORD-1", Rating: 5})
	router := setupReviewsRouter(store)

	rr := doRequest(t, router, "POST", "/reviews/admin/"+r.ID.String()+"/approve", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["approved"] != true {
		t.Errorf("approved: got %v", resp["approved"])
	}
}

func TestReviewUnapprove(t *testing.T) {
	store := newMockReviewStore()
	r, _ := store.CreateReview(context.Background(), database.CreateReviewParams{OrderID: "ORD-1", Rating: 5})
	store.SetReviewApproved(context.Background(), database.SetReviewApprovedParams{ID: r.ID, Approved: true})
	router := setupReviewsRouter(store)

	rr := doRequest(t, router, "POST", "/reviews/admin/"+r.ID.String()+"/approve",
		map[string]interface{}{"approved": false})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["approved"] != false {
		t.Errorf("approved: got %v", resp["approved"])
	}
}

func TestReviewDelete(t *testing.T) {
	store := newMockReviewStore()
	r, _ := store.CreateReview(context.Background(), database.CreateReviewParams{OrderID: "ORD-1", Rating: 2})
	router := setupReviewsRouter(store)

	rr := doRequest(t, router, "DELETE", "/admin/reviews/"+r.ID.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = doRequest(t, router, "DELETE", "/admin/reviews/"+r.ID.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
