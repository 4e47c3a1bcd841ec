package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bhumika-medical/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error)
	SetProductStock(ctx context.Context, arg database.SetProductStockParams) (database.Product, error)
	SetProductImage(ctx context.Context, arg database.SetProductImageParams) (database.Product, error)
}

// ProductsHandler handles catalog endpoints, public and admin.
type ProductsHandler struct {
	store ProductStore
	saver FileSaver
}

// NewProductsHandler creates a new ProductsHandler.
func NewProductsHandler(store ProductStore, saver FileSaver) *ProductsHandler {
	return &ProductsHandler{store: store, saver: saver}
}

// RegisterPublicRoutes registers the storefront catalog endpoint.
func (h *ProductsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/products", h.ListPublic)
}

// RegisterAdminRoutes registers the catalog management endpoints.
// Expected to be mounted inside the authenticated subrouter: /admin/products
func (h *ProductsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/stock", h.SetStock)
	r.Post("/{id}/image", h.SetImage)
}

// --- Request / Response types ---

type createProductRequest struct {
	Name    string      `json:"name"`
	Company string      `json:"company"`
	Mrp     json.Number `json:"mrp"`
	Stock   int32       `json:"stock"`
}

type updateProductRequest struct {
	Name    *string      `json:"name"`
	Company *string      `json:"company"`
	Mrp     *json.Number `json:"mrp"`
}

type setStockRequest struct {
	Stock int32 `json:"stock"`
}

type productResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Mrp       string    `json:"mrp,omitempty"`
	Image     string    `json:"image"`
	ImageType string    `json:"imageType"`
	Stock     int32     `json:"stock"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// --- Handlers ---

// ListPublic returns only active, in-stock products for the storefront.
func (h *ProductsHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListAll returns the whole catalog, hidden products included.
func (h *ProductsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	products, err := h.store.ListProducts(r.Context(), activeOnly)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a product to the catalog. Names are unique.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock must be >= 0"})
		return
	}

	mrp, err := parseOptionalMoney(req.Mrp)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid mrp"})
		return
	}

	company := pgtype.Text{}
	if req.Company != "" {
		company = pgtype.Text{String: req.Company, Valid: true}
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:    req.Name,
		Company: company,
		Mrp:     mrp,
		Stock:   req.Stock,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "products_name_key") {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a product with this name already exists"})
			return
		}
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update applies a partial edit; omitted fields are left untouched.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params := database.UpdateProductParams{ID: id}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name cannot be empty"})
			return
		}
		params.Name = pgtype.Text{String: name, Valid: true}
	}
	if req.Company != nil {
		params.Company = pgtype.Text{String: *req.Company, Valid: true}
	}
	if req.Mrp != nil {
		mrp, err := parseOptionalMoney(*req.Mrp)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid mrp"})
			return
		}
		params.Mrp = mrp
	}

	product, err := h.store.UpdateProduct(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		if database.IsUniqueViolation(err, "products_name_key") {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a product with this name already exists"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a product from the catalog.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	deleted, err := h.store.DeleteProduct(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if deleted == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetStock updates the stock count. Zero stock hides the product from
// the storefront; restocking brings it back automatically.
func (h *ProductsHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock must be >= 0"})
		return
	}

	product, err := h.store.SetProductStock(r.Context(), database.SetProductStockParams{ID: id, Stock: req.Stock})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: set product stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// SetImage uploads a real product photo, replacing the placeholder.
func (h *ProductsHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	imageURL, err := h.saver.Save("products", header.Filename, file)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	product, err := h.store.SetProductImage(r.Context(), database.SetProductImageParams{ID: id, Image: imageURL})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: set product image: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// --- Helpers ---

func toProductResponse(p database.Product) productResponse {
	mrp := ""
	if p.Mrp.Valid {
		mrp = database.NumericToDecimal(p.Mrp).StringFixed(2)
	}
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Company:   p.Company.String,
		Mrp:       mrp,
		Image:     p.Image,
		ImageType: p.ImageType,
		Stock:     p.Stock,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func parseOptionalMoney(n json.Number) (pgtype.Numeric, error) {
	if n.String() == "" {
		return pgtype.Numeric{}, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.IsNegative() {
		return pgtype.Numeric{}, errors.New("invalid amount")
	}
	return database.DecimalToNumeric(d), nil
}
