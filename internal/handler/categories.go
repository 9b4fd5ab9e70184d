package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/waraqa-store/api/internal/catalog"
	"github.com/waraqa-store/api/internal/database"
)

// CategoryCatalog is the category cache plus its database mutators.
// Satisfied by *catalog.CategoryStore.
type CategoryCatalog interface {
	List() []database.Category
	Get(id uuid.UUID) (database.Category, bool)
	Add(ctx context.Context, name string) (database.Category, error)
	Update(ctx context.Context, id uuid.UUID, name string) (database.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	store CategoryCatalog
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryCatalog) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes registers the public read endpoints: /categories
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the mutators: /admin/categories
func (h *CategoryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

// --- Handlers ---

// List returns every category, oldest first.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories := h.store.List()
	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}
	c, ok := h.store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// Create adds a category. The cached list picks it up from the change feed.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	category, err := h.store.Add(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, catalog.ErrNameRequired) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}
		log.Printf("ERROR: create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update renames a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	category, err := h.store.Update(r.Context(), catID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNameRequired):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		case errors.Is(err, catalog.ErrCategoryNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		default:
			log.Printf("ERROR: update category: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes a category that no product references.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	if err := h.store.Delete(r.Context(), catID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrCategoryNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		case errors.Is(err, catalog.ErrCategoryInUse):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "لا يمكن حذف قسم يحتوي على منتجات"})
		default:
			log.Printf("ERROR: delete category: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
