package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/enum"
)

// OrderStore defines the database methods needed by the admin order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// OrderDeleteStore is the transactional half used by Delete.
type OrderDeleteStore interface {
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// TxBeginner starts a database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewOrderDeleteStore creates an OrderDeleteStore bound to a transaction.
type NewOrderDeleteStore func(db database.DBTX) OrderDeleteStore

// OrderHandler handles the back-office order endpoints.
type OrderHandler struct {
	store    OrderStore
	pool     TxBeginner
	newStore NewOrderDeleteStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, pool TxBeginner, newStore NewOrderDeleteStore) *OrderHandler {
	return &OrderHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers order endpoints: /admin/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/counts", h.Counts)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	CustomerName     string              `json:"customer_name"`
	CustomerPhone    string              `json:"customer_phone"`
	Governorate      string              `json:"governorate"`
	City             string              `json:"city"`
	FullAddress      string              `json:"full_address"`
	PaymentMethod    string              `json:"payment_method"`
	Subtotal         string              `json:"subtotal"`
	DeliveryFee      string              `json:"delivery_fee"`
	Total            string              `json:"total"`
	Status           string              `json:"status"`
	TransferImageURL *string             `json:"transfer_image_url"`
	Notes            *string             `json:"notes"`
	CreatedAt        time.Time           `json:"created_at"`
	Items            []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductID       *string   `json:"product_id"`
	ProductName     string    `json:"product_name"`
	ProductPrice    string    `json:"product_price"`
	ProductDiscount string    `json:"product_discount"`
	Quantity        int32     `json:"quantity"`
	LineTotal       string    `json:"line_total"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// List handles GET /admin/orders, newest first, each order with its items.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePaging(w, r, 50, 200)
	if !ok {
		return
	}

	params := database.ListOrdersParams{Limit: int32(limit), Offset: int32(offset)}
	if s := r.URL.Query().Get("status"); s != "" {
		if !slices.Contains(enum.OrderStatuses, s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	resp, err := h.listWithItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

func (h *OrderHandler) listWithItems(ctx context.Context, params database.ListOrdersParams) ([]orderResponse, error) {
	orders, err := h.store.ListOrders(ctx, params)
	if err != nil {
		return nil, err
	}
	resp := make([]orderResponse, len(orders))
	if len(orders) == 0 {
		return resp, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := h.store.ListOrderItemsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	byOrder := make(map[uuid.UUID][]orderItemResponse, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], toOrderItemResponse(it))
	}

	for i, o := range orders {
		resp[i] = toOrderResponse(o, byOrder[o.ID])
	}
	return resp, nil
}

// Counts handles GET /admin/orders/counts. Every status is present, zero when
// no order has it.
func (h *OrderHandler) Counts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.CountOrdersByStatus(r.Context())
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	counts := make(map[string]int64, len(enum.OrderStatuses)+1)
	for _, s := range enum.OrderStatuses {
		counts[s] = 0
	}
	var total int64
	for _, row := range rows {
		counts[row.Status] = row.OrderCount
		total += row.OrderCount
	}
	counts["all"] = total
	writeJSON(w, http.StatusOK, counts)
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrders(r.Context(), []uuid.UUID{orderID})
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	itemResps := make([]orderItemResponse, len(items))
	for i, it := range items {
		itemResps[i] = toOrderItemResponse(it)
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, itemResps))
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	if !slices.Contains(enum.OrderStatuses, req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:       orderID,
		Status:   req.Status,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status moved between the read and the write.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated, nil))
}

// Delete handles DELETE /admin/orders/{id}: items first, then the header,
// in one transaction.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin delete order tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	qtx := h.newStore(tx)
	if err := qtx.DeleteOrderItemsByOrder(r.Context(), orderID); err != nil {
		log.Printf("ERROR: delete order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if _, err := qtx.DeleteOrder(r.Context(), orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /admin/orders/export: one row per order line, the
// order columns repeated, optionally filtered by ?status=.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{Limit: exportLimit}
	if s := r.URL.Query().Get("status"); s != "" {
		if !slices.Contains(enum.OrderStatuses, s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.listWithItems(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: export orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	sheet, err := newSheet("Orders",
		"Order ID", "Date", "Status", "Customer", "Phone", "Governorate", "City", "Address",
		"Payment", "Product", "Unit Price", "Discount", "Quantity", "Line Total",
		"Subtotal", "Delivery Fee", "Total", "Notes")
	if err != nil {
		log.Printf("ERROR: create orders sheet: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	for _, o := range orders {
		notes := ""
		if o.Notes != nil {
			notes = *o.Notes
		}
		head := []interface{}{
			o.ID.String(), o.CreatedAt.Format("2006-01-02 15:04"), o.Status,
			o.CustomerName, o.CustomerPhone, o.Governorate, o.City, o.FullAddress, o.PaymentMethod,
		}
		tail := []interface{}{o.Subtotal, o.DeliveryFee, o.Total, notes}

		if len(o.Items) == 0 {
			sheet.addRow(append(append(head, "", "", "", "", ""), tail...)...)
			continue
		}
		for _, it := range o.Items {
			line := []interface{}{it.ProductName, it.ProductPrice, it.ProductDiscount, int(it.Quantity), it.LineTotal}
			row := append(append(append([]interface{}{}, head...), line...), tail...)
			sheet.addRow(row...)
		}
	}

	sheet.send(w, "orders.xlsx")
}

// --- Helpers ---

const exportLimit = 10000

// parsePaging reads ?limit= and ?offset=. It writes the 400 itself and
// reports ok=false on bad input.
func parsePaging(w http.ResponseWriter, r *http.Request, def, maxLimit int) (limit, offset int, ok bool) {
	limit = def
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return 0, 0, false
		}
		limit = min(v, maxLimit)
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return 0, 0, false
		}
		offset = v
	}
	return limit, offset, true
}

func numericToString(n pgtype.Numeric) string {
	return database.NumericToDecimal(n).StringFixed(2)
}

func toOrderResponse(o database.Order, items []orderItemResponse) orderResponse {
	if items == nil {
		items = []orderItemResponse{}
	}
	resp := orderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Governorate:   o.Governorate,
		City:          o.City,
		FullAddress:   o.FullAddress,
		PaymentMethod: o.PaymentMethod,
		Subtotal:      numericToString(o.Subtotal),
		DeliveryFee:   numericToString(o.DeliveryFee),
		Total:         numericToString(o.Total),
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		Items:         items,
	}
	if o.TransferImageUrl.Valid {
		resp.TransferImageURL = &o.TransferImageUrl.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	price := database.NumericToDecimal(it.ProductPrice)
	discount := database.NumericToDecimal(it.ProductDiscount)
	resp := orderItemResponse{
		ID:              it.ID,
		ProductName:     it.ProductName,
		ProductPrice:    price.StringFixed(2),
		ProductDiscount: discount.StringFixed(2),
		Quantity:        it.Quantity,
		LineTotal:       price.Sub(discount).Mul(decimal.NewFromInt32(it.Quantity)).StringFixed(2),
	}
	// Products deleted after the order keep the line with a NULL product_id.
	if it.ProductID.Valid {
		s := uuid.UUID(it.ProductID.Bytes).String()
		resp.ProductID = &s
	}
	return resp
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:    {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed:  {enum.OrderStatusProcessing, enum.OrderStatusCancelled},
	enum.OrderStatusProcessing: {enum.OrderStatusShipped, enum.OrderStatusCancelled},
	enum.OrderStatusShipped:    {enum.OrderStatusDelivered},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	if !slices.Contains(allowed, next) {
		return fmt.Errorf("cannot transition from %s to %s", current, next)
	}
	return nil
}
