package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/checkout"
	"github.com/waraqa-store/api/internal/locations"
	"github.com/waraqa-store/api/internal/service"
)

// SettingsManager reads and writes store settings and delivery fees.
// Satisfied by *service.SettingsService.
type SettingsManager interface {
	All(ctx context.Context) (map[string]string, error)
	Public(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, values map[string]string) error
	Fees(ctx context.Context) (checkout.FeeTable, error)
	UpdateFees(ctx context.Context, fees checkout.FeeTable) error
}

// SettingsHandler handles store settings and delivery fee endpoints.
type SettingsHandler struct {
	svc SettingsManager
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc SettingsManager) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// RegisterRoutes registers the public endpoints at the API root.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings/public", h.Public)
	r.Get("/delivery-fees", h.Fees)
}

// RegisterAdminRoutes registers the back-office endpoints under /admin.
func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/settings", h.All)
	r.Put("/settings", h.Update)
	r.Put("/delivery-fees", h.UpdateFees)
}

type deliveryFeeResponse struct {
	Governorate string `json:"governorate"`
	Fee         string `json:"fee"`
}

// Public returns contact, social and checkout settings.
func (h *SettingsHandler) Public(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Public(r.Context())
	if err != nil {
		log.Printf("ERROR: public settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) All(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.All(r.Context())
	if err != nil {
		log.Printf("ERROR: list settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update upserts the given keys and answers with the full settings map.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.svc.Update(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownSetting),
			errors.Is(err, service.ErrStoreEmailRequired),
			errors.Is(err, service.ErrInvalidThreshold):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update settings: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.All(w, r)
}

// Fees lists every served governorate with its configured fee; unconfigured
// governorates are omitted.
func (h *SettingsHandler) Fees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.svc.Fees(r.Context())
	if err != nil {
		log.Printf("ERROR: list delivery fees: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]deliveryFeeResponse, 0, len(fees))
	for _, g := range locations.Names() {
		if fee, ok := fees[g]; ok {
			resp = append(resp, deliveryFeeResponse{Governorate: g, Fee: fee.StringFixed(2)})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateFees accepts {"governorate": "fee", ...}.
func (h *SettingsHandler) UpdateFees(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fees given"})
		return
	}

	fees := make(checkout.FeeTable, len(req))
	for g, raw := range req {
		fee, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fee for " + g})
			return
		}
		fees[g] = fee
	}

	if err := h.svc.UpdateFees(r.Context(), fees); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownGovernorate), errors.Is(err, service.ErrNegativeFee):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update delivery fees: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.Fees(w, r)
}
