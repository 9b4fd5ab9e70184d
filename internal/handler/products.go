package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/catalog"
)

// ProductCatalog is the product cache plus its database mutators.
// Satisfied by *catalog.ProductStore.
type ProductCatalog interface {
	List(categoryID *uuid.UUID) []catalog.Product
	Get(id uuid.UUID) (catalog.Product, bool)
	Add(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, id uuid.UUID, in catalog.ProductInput) (catalog.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductHandler handles product endpoints.
type ProductHandler struct {
	store ProductCatalog
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductCatalog) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers the public read endpoints: /products
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the mutators and export: /admin/products
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/export", h.Export)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type productRequest struct {
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Discount    string    `json:"discount"`
	CategoryID  string    `json:"category_id"`
	Description string    `json:"description"`
	Images      *[]string `json:"images"`
}

type productResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Price          string     `json:"price"`
	Discount       string     `json:"discount"`
	EffectivePrice string     `json:"effective_price"`
	Image          string     `json:"image"`
	Images         []string   `json:"images"`
	CategoryID     *uuid.UUID `json:"category_id"`
	Description    string     `json:"description"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toProductResponse(p catalog.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price.StringFixed(2),
		Discount:       p.Discount.StringFixed(2),
		EffectivePrice: p.EffectivePrice().StringFixed(2),
		Image:          p.Image,
		Images:         images,
		CategoryID:     p.CategoryID,
		Description:    p.Description,
		CreatedAt:      p.CreatedAt,
	}
}

// toInput parses the request. An omitted "images" leaves Images nil, which
// Update treats as "keep the current list".
func (req productRequest) toInput() (catalog.ProductInput, string) {
	in := catalog.ProductInput{Name: req.Name, Description: req.Description}

	if strings.TrimSpace(req.Price) == "" {
		return in, "price is required"
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		return in, "invalid price"
	}
	in.Price = price

	if s := strings.TrimSpace(req.Discount); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return in, "invalid discount"
		}
		in.Discount = d
	}

	if s := strings.TrimSpace(req.CategoryID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return in, "invalid category_id"
		}
		in.CategoryID = &id
	}

	if req.Images != nil {
		in.Images = append([]string{}, *req.Images...)
	}
	return in, ""
}

// writeProductError maps catalog errors to responses.
func writeProductError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrNameRequired),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidDiscount),
		errors.Is(err, catalog.ErrImageRequired),
		errors.Is(err, catalog.ErrUnknownCategory):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, catalog.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
	default:
		log.Printf("ERROR: %s product: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// --- Handlers ---

// List returns products oldest first, optionally filtered by ?category_id=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var categoryID *uuid.UUID
	if s := r.URL.Query().Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		categoryID = &id
	}

	products := h.store.List(categoryID)
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}
	p, ok := h.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Create adds a product with at least one image.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	in, msg := req.toInput()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if in.Images == nil {
		in.Images = []string{}
	}

	p, err := h.store.Add(r.Context(), in)
	if err != nil {
		writeProductError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// Update rewrites a product. Images are replaced only when sent.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	in, msg := req.toInput()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	p, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		writeProductError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeProductError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the catalog as products.xlsx.
func (h *ProductHandler) Export(w http.ResponseWriter, r *http.Request) {
	sheet, err := newSheet("Products",
		"ID", "Name", "Price", "Discount", "Effective Price", "Category ID", "Description", "Images", "Created At")
	if err != nil {
		log.Printf("ERROR: create products sheet: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	for _, p := range h.store.List(nil) {
		category := ""
		if p.CategoryID != nil {
			category = p.CategoryID.String()
		}
		sheet.addRow(
			p.ID.String(),
			p.Name,
			p.Price.StringFixed(2),
			p.Discount.StringFixed(2),
			p.EffectivePrice().StringFixed(2),
			category,
			p.Description,
			strings.Join(p.Images, "\n"),
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	sheet.send(w, "products.xlsx")
}
