package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/cart"
	"github.com/waraqa-store/api/internal/checkout"
	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/enum"
	"github.com/waraqa-store/api/internal/notify"
)

// Errors returned by the order service.
var (
	ErrOrderPersistence      = errors.New("could not save the order")
	ErrOrderItemsPersistence = errors.New("could not save the order items")
	ErrNotification          = errors.New("order notification failed")
	ErrTotalMismatch         = errors.New("order total changed")
	ErrSubmitInProgress      = errors.New("order submission already in progress")
)

// State is the position of a submission in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to persist orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) error
	CreateOrderItems(ctx context.Context, arg []database.CreateOrderItemsParams) (int64, error)
	SetOrderTransferImage(ctx context.Context, arg database.SetOrderTransferImageParams) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CheckoutLoader supplies the delivery rates for one checkout.
// Satisfied by *SettingsService.
type CheckoutLoader interface {
	Checkout(ctx context.Context) (CheckoutConfig, error)
}

// Notifier sends the order notification. Satisfied by *notify.Service.
type Notifier interface {
	Send(ctx context.Context, sourceIP string, p notify.Payload) (notify.Result, error)
}

// SubmitRequest is one checkout of a session cart.
type SubmitRequest struct {
	Form  checkout.CustomerForm
	Cart  *cart.Cart
	Proof *checkout.ProofImage
	// ExpectedTotal, when set, is the total the customer was shown. A
	// different server-side total fails the submission before anything is
	// written.
	ExpectedTotal *decimal.Decimal
	SourceIP      string
}

// Submission is the outcome of Submit.
type Submission struct {
	ID    uuid.UUID
	State State
	Order *checkout.Order
	// NotifyErr is set when the order was saved but the notification failed.
	NotifyErr error
}

// OrderService runs the checkout sequence: assemble, persist header and
// items, clear the cart, notify.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	settings CheckoutLoader
	notifier Notifier
	now      func() time.Time

	inflight sync.Map // *cart.Cart -> struct{}
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, settings CheckoutLoader, notifier Notifier) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		settings: settings,
		notifier: notifier,
		now:      time.Now,
	}
}

// Quote prices the delivery for a subtotal and governorate.
func (s *OrderService) Quote(ctx context.Context, subtotal decimal.Decimal, governorate string) (checkout.Delivery, error) {
	cfg, err := s.settings.Checkout(ctx)
	if err != nil {
		return checkout.Delivery{}, err
	}
	return cfg.Rates.Resolve(subtotal, governorate), nil
}

// Submit validates the checkout and persists the order. Form, cart and proof
// errors are returned with StateIdle and nothing written. A persistence
// failure returns StateFailed and leaves the cart as it was. Once the order
// is saved the ordered lines leave the cart and the result is StateSucceeded
// whatever the notification outcome. The stored proof URL, if any, is then
// recorded on the order.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	sub := &Submission{State: StateIdle}

	if _, busy := s.inflight.LoadOrStore(req.Cart, struct{}{}); busy {
		return sub, ErrSubmitInProgress
	}
	defer s.inflight.Delete(req.Cart)

	cfg, err := s.settings.Checkout(ctx)
	if err != nil {
		return sub, fmt.Errorf("load checkout settings: %w", err)
	}

	items := req.Cart.Items()
	order, err := checkout.Assemble(req.Form, items, cfg.Rates, req.Proof)
	if err != nil {
		return sub, err
	}
	sub.Order = order

	if req.ExpectedTotal != nil && !req.ExpectedTotal.Equal(order.Total()) {
		return sub, fmt.Errorf("%w: expected %s, got %s", ErrTotalMismatch,
			req.ExpectedTotal.StringFixed(2), order.Total().StringFixed(2))
	}

	sub.State = StateSubmitting
	sub.ID = uuid.New()

	if err := s.persist(ctx, sub.ID, order); err != nil {
		sub.State = StateFailed
		return sub, err
	}

	sub.State = StateSucceeded
	req.Cart.Subtract(items)

	payload := buildPayload(sub.ID, order, cfg.VodafoneCashNumber, s.now())
	res, err := s.notifier.Send(ctx, req.SourceIP, payload)
	if err != nil {
		sub.NotifyErr = fmt.Errorf("%w: %w", ErrNotification, err)
		log.Printf("ERROR: notify order %s: %v", sub.ID, err)
	}
	if res.TransferImageURL != "" {
		s.recordTransferImage(ctx, sub.ID, res.TransferImageURL)
	}
	return sub, nil
}

// recordTransferImage stores the uploaded proof's URL on the saved order.
// Failures are logged; the order itself is already committed.
func (s *OrderService) recordTransferImage(ctx context.Context, id uuid.UUID, url string) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Printf("ERROR: record transfer image for order %s: begin tx: %v", id, err)
		return
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.newStore(tx).SetOrderTransferImage(ctx, database.SetOrderTransferImageParams{
		ID:               id,
		TransferImageUrl: pgtype.Text{String: url, Valid: true},
	}); err != nil {
		log.Printf("ERROR: record transfer image for order %s: %v", id, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		log.Printf("ERROR: record transfer image for order %s: commit: %v", id, err)
	}
}

// persist writes the header and the item batch in one transaction.
func (s *OrderService) persist(ctx context.Context, id uuid.UUID, order *checkout.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrOrderPersistence, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	form := order.Customer()

	if err := store.CreateOrder(ctx, database.CreateOrderParams{
		ID:            id,
		CustomerName:  form.Name,
		CustomerPhone: form.Phone,
		Governorate:   form.Governorate,
		City:          form.City,
		FullAddress:   form.Address,
		PaymentMethod: form.PaymentMethod,
		Subtotal:      database.DecimalToNumeric(order.Subtotal()),
		DeliveryFee:   database.DecimalToNumeric(order.DeliveryFee()),
		Total:         database.DecimalToNumeric(order.Total()),
		Status:        enum.OrderStatusPending,
		Notes:         pgtype.Text{String: form.Notes, Valid: form.Notes != ""},
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrOrderPersistence, err)
	}

	lines := order.Lines()
	items := make([]database.CreateOrderItemsParams, len(lines))
	for i, l := range lines {
		items[i] = database.CreateOrderItemsParams{
			OrderID:         id,
			ProductID:       pgtype.UUID{Bytes: l.ProductID, Valid: true},
			ProductName:     l.Name,
			ProductPrice:    database.DecimalToNumeric(l.Price),
			ProductDiscount: database.DecimalToNumeric(l.Discount),
			Quantity:        int32(l.Quantity),
		}
	}
	if _, err := store.CreateOrderItems(ctx, items); err != nil {
		return fmt.Errorf("%w: %w", ErrOrderItemsPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrOrderPersistence, err)
	}
	return nil
}

// buildPayload converts a saved order into the notification document. The
// proof image travels base64-encoded; the notifier stores it.
func buildPayload(id uuid.UUID, order *checkout.Order, walletNumber string, at time.Time) notify.Payload {
	form := order.Customer()
	subtotal := order.Subtotal()
	fee := order.DeliveryFee()

	p := notify.Payload{
		OrderID:  id.String(),
		Customer: notify.Customer{Name: form.Name, Phone: form.Phone},
		DeliveryAddress: notify.Address{
			Governorate: form.Governorate,
			City:        form.City,
			FullAddress: form.Address,
		},
		Payment:        notify.Payment{Method: form.PaymentMethod},
		Subtotal:       &subtotal,
		DeliveryFee:    &fee,
		IsFreeDelivery: order.IsFreeDelivery(),
		Total:          order.Total(),
		OrderDate:      at.UTC().Format(time.RFC3339),
	}

	if proof := order.Proof(); proof != nil {
		p.Payment.TransferImageBase64 = proof.Base64()
		p.Payment.TransferImageType = proof.ContentType
		p.Payment.VodafoneCashNumber = walletNumber
	}

	for _, l := range order.Lines() {
		item := notify.Item{Name: l.Name, Price: l.Price, Quantity: l.Quantity}
		if l.Discount.IsPositive() {
			d := l.Discount
			item.Discount = &d
		}
		p.Items = append(p.Items, item)
	}
	return p
}
