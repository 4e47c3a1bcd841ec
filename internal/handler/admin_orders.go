package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/middleware"
	"github.com/bhumika-medical/api/internal/notify"
	"github.com/bhumika-medical/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// StatusUpdater applies workflow transitions. Satisfied by *service.OrderService.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID, newStatus, actor string) (database.Order, error)
}

// AdminOrderStore defines the database methods needed by admin order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AdminOrderStore interface {
	ListOrders(ctx context.Context, search string) ([]database.Order, error)
	DeleteOrder(ctx context.Context, orderID string) (int64, error)
}

// Mailer delivers a copy of customer notifications to the pharmacy
// inbox. Satisfied by *notify.EmailNotifier; nil disables email.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// AdminOrdersHandler handles the order management endpoints behind the
// admin session guard.
type AdminOrdersHandler struct {
	updater StatusUpdater
	store   AdminOrderStore
	hub     Broadcaster
	mailer  Mailer
}

// NewAdminOrdersHandler creates a new AdminOrdersHandler.
func NewAdminOrdersHandler(updater StatusUpdater, store AdminOrderStore, hub Broadcaster, mailer Mailer) *AdminOrdersHandler {
	return &AdminOrdersHandler{updater: updater, store: store, hub: hub, mailer: mailer}
}

// RegisterRoutes registers admin order endpoints.
// Expected to be mounted inside the authenticated subrouter: /admin/orders
// The CSV export lives at /admin/export and is registered separately by
// the router.
func (h *AdminOrdersHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{orderID}/status", h.UpdateStatus)
	r.Delete("/{orderID}", h.Delete)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateStatusResponse struct {
	Success bool          `json:"success"`
	Order   orderResponse `json:"order"`
	WALink  string        `json:"waLink,omitempty"`
}

// --- Handlers ---

// List returns all orders newest first. The optional q parameter
// filters by order id, customer name or phone.
func (h *AdminOrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order along the workflow and returns the
// updated order plus a prefilled WhatsApp link for notifying the
// customer about the new status.
func (h *AdminOrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	actor := "admin"
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		actor = claims.Email
	}

	order, err := h.updater.UpdateStatus(r.Context(), orderID, req.Status, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrStatusConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, reload and retry"})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toOrderResponse(order)
	broadcastOrderEvent(h.hub, "order.updated", resp)

	result := updateStatusResponse{Success: true, Order: resp}
	if msg, ok := notify.StatusMessage(order); ok {
		result.WALink = notify.WALink(order.Phone, msg)
		if h.mailer != nil {
			go h.sendStatusEmail(order, msg)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// sendStatusEmail mirrors the status notification to the pharmacy
// inbox. Best effort; a mail failure never fails the status change.
func (h *AdminOrdersHandler) sendStatusEmail(order database.Order, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	subject := fmt.Sprintf("Order %s is now %s", order.OrderID, order.Status)
	if err := h.mailer.Send(ctx, subject, msg); err != nil {
		log.Printf("WARN: status email for %s: %v", order.OrderID, err)
	}
}

// Delete removes an order. Deleting an already-deleted order succeeds
// so repeated clicks from the dashboard stay harmless.
func (h *AdminOrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	deleted, err := h.store.DeleteOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if deleted > 0 {
		broadcastOrderEvent(h.hub, "order.deleted", orderResponse{OrderID: orderID})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "deleted": deleted > 0})
}

// ExportCSV streams every order as a CSV download for bookkeeping.
func (h *AdminOrdersHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context(), "")
	if err != nil {
		log.Printf("ERROR: export orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write([]string{"OrderID", "Name", "Phone", "Address", "Total", "Status", "Date"})
	for _, o := range orders {
		cw.Write([]string{
			o.OrderID,
			o.Name,
			o.Phone,
			o.Address,
			numericToString(o.Total),
			o.Status,
			o.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("ERROR: write orders csv: %v", err)
	}
}
