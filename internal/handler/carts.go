package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/cart"
	"github.com/waraqa-store/api/internal/catalog"
	"github.com/waraqa-store/api/internal/checkout"
	"github.com/waraqa-store/api/internal/enum"
	"github.com/waraqa-store/api/internal/service"
)

// OrderSubmitter places orders and prices delivery.
// Satisfied by *service.OrderService.
type OrderSubmitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*service.Submission, error)
	Quote(ctx context.Context, subtotal decimal.Decimal, governorate string) (checkout.Delivery, error)
}

// ProductLookup resolves a product from the catalog cache.
type ProductLookup interface {
	Get(id uuid.UUID) (catalog.Product, bool)
}

// CartHandler handles session carts and checkout.
type CartHandler struct {
	carts    *cart.Registry
	products ProductLookup
	orders   OrderSubmitter
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *cart.Registry, products ProductLookup, orders OrderSubmitter) *CartHandler {
	return &CartHandler{carts: carts, products: products, orders: orders}
}

// RegisterRoutes registers cart and checkout endpoints at the API root.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout/quote", h.Quote)
	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{cid}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/items", h.AddItem)
			r.Delete("/items", h.Clear)
			r.Patch("/items/{pid}", h.UpdateItem)
			r.Delete("/items/{pid}", h.RemoveItem)
			r.Post("/checkout", h.Checkout)
		})
	})
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type quoteRequest struct {
	Subtotal    string `json:"subtotal"`
	CartID      string `json:"cart_id"`
	Governorate string `json:"governorate"`
}

type quoteResponse struct {
	Subtotal string `json:"subtotal"`
	Fee      string `json:"fee"`
	IsFree   bool   `json:"is_free"`
	Total    string `json:"total"`
}

type checkoutRequest struct {
	checkout.CustomerForm
	TransferImage     string `json:"transfer_image"`
	TransferImageName string `json:"transfer_image_name"`
	ExpectedTotal     string `json:"expected_total"`
}

type checkoutResponse struct {
	OrderID        uuid.UUID `json:"order_id"`
	Status         string    `json:"status"`
	Subtotal       string    `json:"subtotal"`
	DeliveryFee    string    `json:"delivery_fee"`
	IsFreeDelivery bool      `json:"is_free_delivery"`
	Total          string    `json:"total"`
	TotalItems     int       `json:"total_items"`
	Notified       bool      `json:"notified"`
}

type cartItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Image          string    `json:"image"`
	Price          string    `json:"price"`
	Discount       string    `json:"discount"`
	EffectivePrice string    `json:"effective_price"`
	Quantity       int       `json:"quantity"`
	LineTotal      string    `json:"line_total"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice string             `json:"total_price"`
}

func toCartResponse(id uuid.UUID, c *cart.Cart) cartResponse {
	items := c.Items()
	resp := cartResponse{
		ID:         id,
		Items:      make([]cartItemResponse, len(items)),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice().StringFixed(2),
	}
	for i, it := range items {
		resp.Items[i] = cartItemResponse{
			ProductID:      it.Product.ID,
			Name:           it.Product.Name,
			Image:          it.Product.Image,
			Price:          it.Product.Price.StringFixed(2),
			Discount:       it.Product.Discount.StringFixed(2),
			EffectivePrice: it.Product.EffectivePrice().StringFixed(2),
			Quantity:       it.Quantity,
			LineTotal:      it.LineTotal().StringFixed(2),
		}
	}
	return resp
}

// --- Helpers ---

// cartFromRequest resolves {cid}. It writes the error response itself.
func (h *CartHandler) cartFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *cart.Cart, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart ID"})
		return uuid.Nil, nil, false
	}
	c, ok := h.carts.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart not found"})
		return uuid.Nil, nil, false
	}
	return id, c, true
}

func hasItem(c *cart.Cart, productID uuid.UUID) bool {
	for _, it := range c.Items() {
		if it.Product.ID == productID {
			return true
		}
	}
	return false
}

// clientIP is the request's remote address without the port. RealIP has
// already replaced RemoteAddr when the API runs behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- Handlers ---

// Create starts an empty session cart.
func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, c := h.carts.Create()
	writeJSON(w, http.StatusCreated, toCartResponse(id, c))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.cartFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// AddItem snapshots the product from the catalog and adds one unit.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.cartFromRequest(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}

	p, found := h.products.Get(productID)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	c.Add(p.Snapshot())
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// UpdateItem sets a line's quantity; below 1 removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.cartFromRequest(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}
	if !hasItem(c, productID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not in cart"})
		return
	}

	c.UpdateQuantity(productID, *req.Quantity)
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.cartFromRequest(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	c.Remove(productID)
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, c, ok := h.cartFromRequest(w, r)
	if !ok {
		return
	}
	c.Clear()
	writeJSON(w, http.StatusOK, toCartResponse(id, c))
}

// Quote prices delivery for either an explicit subtotal or a cart.
func (h *CartHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var subtotal decimal.Decimal
	switch {
	case req.CartID != "":
		cartID, err := uuid.Parse(req.CartID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart_id"})
			return
		}
		c, ok := h.carts.Get(cartID)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart not found"})
			return
		}
		subtotal = c.TotalPrice()
	case strings.TrimSpace(req.Subtotal) != "":
		d, err := decimal.NewFromString(strings.TrimSpace(req.Subtotal))
		if err != nil || d.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subtotal"})
			return
		}
		subtotal = d
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subtotal or cart_id is required"})
		return
	}

	d, err := h.orders.Quote(r.Context(), subtotal, strings.TrimSpace(req.Governorate))
	if err != nil {
		log.Printf("ERROR: quote delivery: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Subtotal: subtotal.StringFixed(2),
		Fee:      d.Fee.StringFixed(2),
		IsFree:   d.IsFree,
		Total:    d.Total.StringFixed(2),
	})
}

// Checkout submits the cart as an order. On success the ordered lines leave
// the cart.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.cartFromRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	submit := service.SubmitRequest{
		Form:     req.CustomerForm,
		Cart:     c,
		SourceIP: clientIP(r),
	}

	if req.TransferImage != "" {
		proof, err := checkout.DecodeProof(req.TransferImageName, req.TransferImage)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		submit.Proof = proof
	}

	if s := strings.TrimSpace(req.ExpectedTotal); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expected_total"})
			return
		}
		submit.ExpectedTotal = &d
	}

	sub, err := h.orders.Submit(r.Context(), submit)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	order := sub.Order
	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:        sub.ID,
		Status:         enum.OrderStatusPending,
		Subtotal:       order.Subtotal().StringFixed(2),
		DeliveryFee:    order.DeliveryFee().StringFixed(2),
		IsFreeDelivery: order.IsFreeDelivery(),
		Total:          order.Total().StringFixed(2),
		TotalItems:     order.TotalItems(),
		Notified:       sub.NotifyErr == nil,
	})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "invalid checkout form",
			"fields": verr.Fields,
		})
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrMissingProof),
		errors.Is(err, checkout.ErrInvalidImage),
		errors.Is(err, checkout.ErrImageTooLarge):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTotalMismatch):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order total changed, please review your cart"})
	case errors.Is(err, service.ErrSubmitInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already being submitted"})
	case errors.Is(err, service.ErrOrderPersistence), errors.Is(err, service.ErrOrderItemsPersistence):
		log.Printf("ERROR: checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "حدث خطأ أثناء إرسال الطلب، حاول مرة أخرى"})
	default:
		log.Printf("ERROR: checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
