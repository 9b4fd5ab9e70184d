package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/waraqa-store/api/internal/notify"
)

// OrderNotifier is the order notification function.
// Satisfied by *notify.Service.
type OrderNotifier interface {
	Send(ctx context.Context, sourceIP string, p notify.Payload) (notify.Result, error)
}

// FunctionHandler exposes server-side functions callable from the storefront.
type FunctionHandler struct {
	notifier OrderNotifier
}

// NewFunctionHandler creates a new FunctionHandler.
func NewFunctionHandler(notifier OrderNotifier) *FunctionHandler {
	return &FunctionHandler{notifier: notifier}
}

// RegisterRoutes registers function endpoints: /functions
func (h *FunctionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-order-email", h.SendOrderEmail)
}

// maxPayloadBytes covers a 5 MiB proof image after base64 plus the order.
const maxPayloadBytes = 8 << 20

type sendOrderEmailResponse struct {
	Success          bool   `json:"success"`
	EmailID          string `json:"email_id"`
	TransferImageURL string `json:"transfer_image_url,omitempty"`
}

// SendOrderEmail validates the order document and emails it to the store.
func (h *FunctionHandler) SendOrderEmail(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	var p notify.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	res, err := h.notifier.Send(r.Context(), clientIP(r), p)
	if err != nil {
		var perr *notify.PayloadError
		switch {
		case errors.Is(err, notify.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": notify.ErrRateLimited.Error()})
		case errors.As(err, &perr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   notify.ErrInvalidPayload.Error(),
				"details": perr.Details,
			})
		default:
			log.Printf("ERROR: send order email: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, sendOrderEmailResponse{
		Success:          true,
		EmailID:          res.EmailID,
		TransferImageURL: res.TransferImageURL,
	})
}
