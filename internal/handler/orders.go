package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bhumika-medical/api/internal/cart"
	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/notify"
	"github.com/bhumika-medical/api/internal/service"
	"github.com/bhumika-medical/api/internal/workflow"
	"github.com/bhumika-medical/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxUploadMemory = 8 << 20

// OrderPlacer validates and creates orders. Satisfied by *service.OrderService.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
}

// OrderStore defines the database methods needed by public order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrderByOrderID(ctx context.Context, orderID string) (database.Order, error)
	GetOrderForTracking(ctx context.Context, arg database.GetOrderForTrackingParams) (database.Order, error)
	AttachPaymentProof(ctx context.Context, arg database.AttachPaymentProofParams) (database.Order, error)
}

// FileSaver stores an uploaded file and returns its public URL path.
// Satisfied by *upload.Saver.
type FileSaver interface {
	Save(category, originalName string, r io.Reader) (string, error)
}

// Broadcaster pushes events to the admin dashboards.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// OrdersHandler handles the public storefront order endpoints.
type OrdersHandler struct {
	placer         OrderPlacer
	store          OrderStore
	saver          FileSaver
	hub            Broadcaster
	pharmacyNumber string
	upiID          string
	upiPayee       string
}

// NewOrdersHandler creates a new OrdersHandler.
func NewOrdersHandler(placer OrderPlacer, store OrderStore, saver FileSaver, hub Broadcaster, pharmacyNumber, upiID, upiPayee string) *OrdersHandler {
	return &OrdersHandler{
		placer:         placer,
		store:          store,
		saver:          saver,
		hub:            hub,
		pharmacyNumber: pharmacyNumber,
		upiID:          upiID,
		upiPayee:       upiPayee,
	}
}

// RegisterRoutes registers the public order endpoints.
func (h *OrdersHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.PlaceOrder)
	r.Post("/orders/track", h.Track)
	r.Post("/payment-proof", h.PaymentProof)
	r.Get("/payment-qr", h.PaymentQR)
	r.Post("/cart/quote", h.Quote)
	r.Get("/status-flow", h.StatusFlow)
}

// --- Request / Response types ---

type orderItemRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int32           `json:"qty"`
}

type createOrderRequest struct {
	ClientRef string             `json:"clientRef"`
	Name      string             `json:"name"`
	Phone     string             `json:"phone"`
	Address   string             `json:"address"`
	Pin       string             `json:"pin"`
	Items     []orderItemRequest `json:"items"`
	Total     json.Number        `json:"total"`
	Payment   paymentRequest     `json:"payment"`
}

type paymentRequest struct {
	Method string `json:"method"`
	Txn    string `json:"txn"`
}

type orderItemResponse struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Qty   int32  `json:"qty"`
}

type statusLogResponse struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	By   string    `json:"by"`
	At   time.Time `json:"at"`
}

type orderResponse struct {
	ID         uuid.UUID           `json:"id"`
	OrderID    string              `json:"orderId"`
	ClientRef  string              `json:"clientRef,omitempty"`
	Name       string              `json:"name"`
	Phone      string              `json:"phone"`
	Address    string              `json:"address"`
	Pin        string              `json:"pin"`
	Items      []orderItemResponse `json:"items"`
	Subtotal   string              `json:"subtotal"`
	Discount   string              `json:"discount"`
	Total      string              `json:"total"`
	Status     string              `json:"status"`
	StatusLogs []statusLogResponse `json:"statusLogs"`
	Payment    database.Payment    `json:"payment"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

type placeOrderResponse struct {
	Success bool          `json:"success"`
	OrderID string        `json:"orderId"`
	Order   orderResponse `json:"order"`
	WALink  string        `json:"waLink"`
}

type quoteResponse struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
	Offer    string `json:"offer,omitempty"`
}

// --- Handlers ---

// PlaceOrder creates a new order in Pending and returns it together
// with a WhatsApp deep link carrying the order summary to the pharmacy.
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]cart.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, cart.Item{Name: item.Name, Price: item.Price, Qty: item.Qty})
	}

	order, err := h.placer.CreateOrder(r.Context(), service.CreateOrderRequest{
		ClientRef: req.ClientRef,
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		Pin:       req.Pin,
		Items:     items,
		Total:     req.Total.String(),
		Payment:   database.Payment{Method: req.Payment.Method, Txn: req.Payment.Txn},
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	broadcastOrderEvent(h.hub, "order.created", resp)

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		Success: true,
		OrderID: order.OrderID,
		Order:   resp,
		WALink:  notify.WALink(h.pharmacyNumber, notify.OrderSummaryMessage(order)),
	})
}

// Track lets a customer look up their order by id + phone. Requiring
// the phone keeps bare order ids from leaking other people's orders.
func (h *OrdersHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
		Phone   string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OrderID == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId and phone are required"})
		return
	}

	order, err := h.store.GetOrderForTracking(r.Context(), database.GetOrderForTrackingParams{
		OrderID: req.OrderID,
		Phone:   service.NormalizePhone(req.Phone),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: track order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// PaymentProof accepts a payment screenshot or PDF and merges it into
// the order's payment details.
func (h *OrdersHandler) PaymentProof(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	orderID := r.FormValue("orderId")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "screenshot is required"})
		return
	}
	defer file.Close()

	fileURL, err := h.saver.Save("", header.Filename, file)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	order, err := h.store.AttachPaymentProof(r.Context(), database.AttachPaymentProofParams{
		OrderID: orderID,
		Payment: database.Payment{
			Method:  "UPI",
			Txn:     r.FormValue("txnId"),
			FileURL: fileURL,
		},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: attach payment proof: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	broadcastOrderEvent(h.hub, "order.updated", resp)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"fileUrl": fileURL,
		"order":   resp,
	})
}

// PaymentQR serves a UPI QR code for the order total as PNG.
func (h *OrdersHandler) PaymentQR(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	order, err := h.store.GetOrderByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for payment qr: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	png, err := notify.PaymentQR(h.upiID, h.upiPayee, database.NumericToDecimal(order.Total), order.OrderID)
	if err != nil {
		log.Printf("ERROR: payment qr: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Quote recomputes cart totals server-side so the storefront can show
// the authoritative discount before checkout.
func (h *OrdersHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []orderItemRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]cart.Item, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Qty <= 0 || item.Price.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item"})
			return
		}
		items = append(items, cart.Item{Name: item.Name, Price: item.Price, Qty: item.Qty})
	}

	quote := cart.QuoteItems(items)
	writeJSON(w, http.StatusOK, quoteResponse{
		Subtotal: quote.Subtotal.StringFixed(2),
		Discount: quote.Discount.StringFixed(2),
		Total:    quote.Total.StringFixed(2),
		Offer:    quote.Offer,
	})
}

// StatusFlow exposes the status transition map so the storefront and
// dashboard render the same workflow.
func (h *OrdersHandler) StatusFlow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workflow.Transitions)
}

// --- Helpers ---

func broadcastOrderEvent(hub Broadcaster, eventType string, resp orderResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	hub.Broadcast(ws.Event{Type: eventType, Payload: payload})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		service.ErrNameRequired,
		service.ErrPhoneRequired,
		service.ErrAddressRequired,
		service.ErrPinRequired,
		service.ErrEmptyItems,
		service.ErrInvalidQuantity,
		service.ErrInvalidPrice,
		service.ErrTotalMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toOrderResponse(o database.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			Name:  item.Name,
			Price: item.Price.StringFixed(2),
			Qty:   item.Qty,
		})
	}

	logs := make([]statusLogResponse, 0, len(o.StatusLogs))
	for _, entry := range o.StatusLogs {
		logs = append(logs, statusLogResponse{From: entry.From, To: entry.To, By: entry.By, At: entry.At})
	}

	return orderResponse{
		ID:         o.ID,
		OrderID:    o.OrderID,
		ClientRef:  o.ClientRef.String,
		Name:       o.Name,
		Phone:      o.Phone,
		Address:    o.Address,
		Pin:        o.Pin,
		Items:      items,
		Subtotal:   numericToString(o.Subtotal),
		Discount:   numericToString(o.Discount),
		Total:      numericToString(o.Total),
		Status:     o.Status,
		StatusLogs: logs,
		Payment:    o.Payment,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func numericToString(n pgtype.Numeric) string {
	return database.NumericToDecimal(n).StringFixed(2)
}
